package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dinhtoai1/layso/internal/queue"
	"github.com/Dinhtoai1/layso/internal/registry"
	"github.com/Dinhtoai1/layso/internal/store"
)

type Handler struct {
	engine     *queue.Engine
	store      store.Store
	sessionTTL time.Duration
}

type Options struct {
	SessionTTL time.Duration
}

func NewHandler(engine *queue.Engine, st store.Store, options Options) *Handler {
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{engine: engine, store: st, sessionTTL: ttl}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleIssueTicket)
	mux.HandleFunc("/api/tickets/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/actions/recall", h.handleRecall)
	mux.HandleFunc("/api/queue/status", h.handleStatus)
	mux.HandleFunc("/api/queue/latest-calls", h.handleLatestCalls)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/services", h.handleServices)
	mux.HandleFunc("/api/admin/reset", h.handleReset)
	mux.HandleFunc("/api/admin/wipe", h.handleWipe)
	mux.HandleFunc("/api/admin/counters", h.handleCounters)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/change-password", h.handleChangePassword)
	mux.HandleFunc("/api/ratings", h.handleSubmitRating)
	mux.HandleFunc("/api/ratings/report", h.handleRatingsReport)
	mux.HandleFunc("/api/ratings/export", h.handleRatingsExport)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type serviceRequest struct {
	Service string `json:"service"`
}

type ticketResponse struct {
	Service  string `json:"service"`
	Number   string `json:"number"`
	Display  int    `json:"display"`
	Prefix   int    `json:"counter_prefix"`
	Sequence int    `json:"raw_sequence"`
	Waiting  int    `json:"waiting"`
	IsRecall bool   `json:"is_recall,omitempty"`
	Message  string `json:"message,omitempty"`
}

func ticketToResponse(t queue.Ticket) ticketResponse {
	return ticketResponse{
		Service:  t.Service,
		Number:   t.Number.String(),
		Display:  t.Number.Display(),
		Prefix:   t.Number.Prefix,
		Sequence: t.Number.Sequence,
		Waiting:  t.Waiting,
		IsRecall: t.IsRecall,
		Message:  t.Message,
	}
}

func (h *Handler) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, ok := decodeServiceRequest(w, r)
	if !ok {
		return
	}

	ticket, err := h.engine.IssueTicket(r.Context(), req.Service)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	waiting, err := h.engine.WaitingCount(r.Context(), ticket.Service)
	if err == nil {
		ticket.Waiting = waiting
	}
	writeJSON(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, ok := decodeServiceRequest(w, r)
	if !ok {
		return
	}

	ticket, err := h.engine.CallNext(r.Context(), req.Service)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *Handler) handleRecall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, ok := decodeServiceRequest(w, r)
	if !ok {
		return
	}

	ticket, err := h.engine.RecallLast(r.Context(), req.Service)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	service := strings.TrimSpace(r.URL.Query().Get("service"))
	statuses, err := h.engine.Status(r.Context(), service)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *Handler) handleLatestCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	calls, err := h.engine.CurrentCalling(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	calls, err := h.store.ListCalls(r.Context(), limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, registry.All())
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.engine.ResetCounters(r.Context()); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleWipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Confirm string `json:"confirm"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if payload.Confirm != "YES" {
		writeError(w, http.StatusBadRequest, "confirmation_required", `wipe requires {"confirm":"YES"}`)
		return
	}

	if err := h.engine.WipeCounters(r.Context()); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "wiped"})
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := h.store.ListCounters(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	session, err := h.store.Login(r.Context(), req.Username, req.Password, h.sessionTTL)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.OldPassword == "" || len(req.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "invalid_request", "old_password is required and new_password must be at least 6 characters")
		return
	}

	if err := h.store.ChangePassword(r.Context(), session.Username, req.OldPassword, req.NewPassword); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

type ratingRequest struct {
	Service       string `json:"service"`
	ServiceRating int    `json:"service_rating"`
	TimeRating    int    `json:"time_rating"`
	Attitude      int    `json:"attitude"`
	Overall       int    `json:"overall"`
	Comment       string `json:"comment"`
	CustomerCode  string `json:"customer_code"`
}

func (h *Handler) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ratingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	desc, err := registry.Resolve(req.Service)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if req.Overall < 1 || req.Overall > 5 {
		writeError(w, http.StatusBadRequest, "invalid_request", "overall must be between 1 and 5")
		return
	}
	for _, value := range []int{req.ServiceRating, req.TimeRating, req.Attitude} {
		if value != 0 && (value < 1 || value > 5) {
			writeError(w, http.StatusBadRequest, "invalid_request", "criteria ratings must be between 1 and 5 when provided")
			return
		}
	}

	rating := store.Rating{
		Service:       desc.Name,
		ServiceRating: req.ServiceRating,
		TimeRating:    req.TimeRating,
		Attitude:      req.Attitude,
		Overall:       req.Overall,
		Comment:       strings.TrimSpace(req.Comment),
		CustomerCode:  strings.TrimSpace(req.CustomerCode),
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.store.AddRating(r.Context(), rating); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type ratingsReport struct {
	Service        string  `json:"service"`
	Count          int     `json:"count"`
	AverageOverall float64 `json:"average_overall"`
	Stars          [5]int  `json:"stars"`
}

func (h *Handler) handleRatingsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ratings, err := h.store.ListRatings(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	totals := make(map[string]*ratingsReport)
	for _, rating := range ratings {
		report, ok := totals[rating.Service]
		if !ok {
			report = &ratingsReport{Service: rating.Service}
			totals[rating.Service] = report
		}
		report.Count++
		report.AverageOverall += float64(rating.Overall)
		if rating.Overall >= 1 && rating.Overall <= 5 {
			report.Stars[rating.Overall-1]++
		}
	}

	reports := make([]ratingsReport, 0, len(registry.All()))
	for _, desc := range registry.All() {
		report := ratingsReport{Service: desc.Name}
		if found, ok := totals[desc.Name]; ok && found.Count > 0 {
			report.Count = found.Count
			report.AverageOverall = found.AverageOverall / float64(found.Count)
			report.Stars = found.Stars
		}
		reports = append(reports, report)
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleRatingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ratings, err := h.store.ListRatings(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ratings.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"service", "overall", "service_rating", "time_rating", "attitude", "comment", "customer_code", "created_at"})
	for _, rating := range ratings {
		_ = writer.Write([]string{
			rating.Service,
			strconv.Itoa(rating.Overall),
			strconv.Itoa(rating.ServiceRating),
			strconv.Itoa(rating.TimeRating),
			strconv.Itoa(rating.Attitude),
			rating.Comment,
			rating.CustomerCode,
			rating.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writer.Flush()
}

func decodeServiceRequest(w http.ResponseWriter, r *http.Request) (serviceRequest, bool) {
	var req serviceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return serviceRequest{}, false
	}
	req.Service = strings.TrimSpace(req.Service)
	if req.Service == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "service is required")
		return serviceRequest{}, false
	}
	return req, true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, registry.ErrInvalidService):
		return http.StatusBadRequest, "invalid_service", "unknown service name"
	case errors.Is(err, store.ErrNoCustomerWaiting):
		return http.StatusNotFound, "queue_empty", "no customer waiting"
	case errors.Is(err, store.ErrNothingCalled):
		return http.StatusNotFound, "nothing_called", "no number has been called yet"
	case errors.Is(err, store.ErrDailyLimitReached):
		return http.StatusConflict, "daily_limit_reached", "daily ticket limit reached"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

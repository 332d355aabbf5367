package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dinhtoai1/layso/internal/store"
)

type authContextKey struct{}

const roleAdmin = "admin"

// AuthMiddleware resolves the session token on protected endpoints and
// stashes the session in the request context. Counter and display
// endpoints stay public; staff actions need any valid session and the
// admin surface needs the admin role.
func AuthMiddleware(st store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionTokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		if isAdminEndpoint(r) && session.Role != roleAdmin {
			writeError(w, http.StatusForbidden, "access_denied", "admin role required")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	session, ok := ctx.Value(authContextKey{}).(store.Session)
	return session, ok
}

func sessionTokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-Token"))
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/display") {
		return true
	}
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/api/tickets":
		return r.Method == http.MethodPost
	case "/api/queue/status", "/api/queue/latest-calls", "/api/history", "/api/services":
		return r.Method == http.MethodGet
	case "/api/auth/login":
		return r.Method == http.MethodPost
	case "/api/ratings":
		return r.Method == http.MethodPost
	default:
		return r.Method == http.MethodOptions
	}
}

func isAdminEndpoint(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/admin/") {
		return true
	}
	switch r.URL.Path {
	case "/api/ratings/report", "/api/ratings/export":
		return true
	default:
		return false
	}
}

// Package memory implements the store over process memory. It backs tests
// and DSN-less development runs; state is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dinhtoai1/layso/internal/store"
	"github.com/Dinhtoai1/layso/internal/ticket"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type staffUser struct {
	passwordHash []byte
	service      string
	role         string
}

type Store struct {
	mu          sync.Mutex
	maxSequence int
	counters    map[string]store.CounterRecord
	calls       []store.CallRecord
	ratings     []store.Rating
	resetDay    string
	hasResetDay bool
	users       map[string]*staffUser
	sessions    map[string]store.Session
}

type Options struct {
	MaxDailySequence int
}

func NewStore(options Options) *Store {
	maxSequence := options.MaxDailySequence
	if maxSequence <= 0 {
		maxSequence = ticket.MaxSequence
	}
	return &Store{
		maxSequence: maxSequence,
		counters:    make(map[string]store.CounterRecord),
		users:       make(map[string]*staffUser),
		sessions:    make(map[string]store.Session),
	}
}

func (s *Store) IssueTicket(ctx context.Context, service string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.counters[service]
	if !ok {
		record = store.CounterRecord{Service: service}
	}
	if record.IssuedCount >= s.maxSequence {
		return 0, store.ErrDailyLimitReached
	}
	record.IssuedCount++
	record.LastUpdated = now
	s.counters[service] = record
	return record.IssuedCount, nil
}

func (s *Store) CallNext(ctx context.Context, service string, prefix int, now time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.counters[service]
	if !ok || record.CalledCount >= record.IssuedCount {
		return 0, 0, store.ErrNoCustomerWaiting
	}
	record.CalledCount++
	record.LastUpdated = now
	s.counters[service] = record

	s.calls = append(s.calls, store.CallRecord{
		Service:  service,
		Number:   ticket.Encode(prefix, record.CalledCount).String(),
		Time:     now,
		IsRecall: false,
	})
	return record.CalledCount, record.IssuedCount, nil
}

func (s *Store) RecallLast(ctx context.Context, service string, prefix int, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.counters[service]
	if !ok || record.CalledCount == 0 {
		return 0, store.ErrNothingCalled
	}
	record.LastUpdated = now
	s.counters[service] = record

	s.calls = append(s.calls, store.CallRecord{
		Service:  service,
		Number:   ticket.Encode(prefix, record.CalledCount).String(),
		Time:     now,
		IsRecall: true,
	})
	return record.CalledCount, nil
}

func (s *Store) GetCounter(ctx context.Context, service string) (store.CounterRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.counters[service]
	if !ok {
		return store.CounterRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) ListCounters(ctx context.Context) ([]store.CounterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]store.CounterRecord, 0, len(s.counters))
	for _, record := range s.counters {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Service < records[j].Service })
	return records, nil
}

func (s *Store) ResetAll(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for service, record := range s.counters {
		record.IssuedCount = 0
		record.CalledCount = 0
		record.LastUpdated = now
		s.counters[service] = record
	}
	return nil
}

func (s *Store) WipeAll(ctx context.Context, services []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = make(map[string]store.CounterRecord, len(services))
	for _, service := range services {
		s.counters[service] = store.CounterRecord{Service: service, LastUpdated: now}
	}
	return nil
}

func (s *Store) GetResetDay(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetDay, s.hasResetDay, nil
}

func (s *Store) InitResetDay(ctx context.Context, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasResetDay {
		s.resetDay = day
		s.hasResetDay = true
	}
	return nil
}

func (s *Store) SwapResetDay(ctx context.Context, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasResetDay || s.resetDay == day {
		return false, nil
	}
	s.resetDay = day
	return true, nil
}

func (s *Store) ListCalls(ctx context.Context, limit int) ([]store.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	records := make([]store.CallRecord, 0, limit)
	for i := len(s.calls) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, s.calls[i])
	}
	return records, nil
}

func (s *Store) AddRating(ctx context.Context, rating store.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings = append(s.ratings, rating)
	return nil
}

func (s *Store) ListRatings(ctx context.Context) ([]store.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratings := make([]store.Rating, len(s.ratings))
	for i := range s.ratings {
		ratings[i] = s.ratings[len(s.ratings)-1-i]
	}
	return ratings, nil
}

func (s *Store) Login(ctx context.Context, username, password string, ttl time.Duration) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.Session{}, store.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return store.Session{}, store.ErrInvalidCredentials
	}

	session := store.Session{
		Token:     uuid.NewString(),
		Username:  username,
		Service:   user.service,
		Role:      user.role,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *Store) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(oldPassword)); err != nil {
		return store.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.passwordHash = hash
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || time.Now().UTC().After(session.ExpiresAt) {
		delete(s.sessions, token)
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) EnsureStaffUser(ctx context.Context, username, password, service, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.users[username] = &staffUser{passwordHash: hash, service: service, role: role}
	return nil
}

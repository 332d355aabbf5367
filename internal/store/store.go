package store

import (
	"context"
	"time"
)

// CounterRecord is the persisted queue state for one service: how many
// tickets were handed out and how many were called since the last reset.
type CounterRecord struct {
	Service     string    `json:"service"`
	IssuedCount int       `json:"issued_count"`
	CalledCount int       `json:"called_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// CallRecord is one append-only history entry, written once per call and
// once per recall. Never updated or deleted by the queue core.
type CallRecord struct {
	Service  string    `json:"service"`
	Number   string    `json:"number"`
	Time     time.Time `json:"time"`
	IsRecall bool      `json:"is_recall"`
}

// Rating covers both schema generations: the old five-criteria form and the
// newer overall-only form (zero means the criterion was not submitted).
type Rating struct {
	Service       string    `json:"service"`
	ServiceRating int       `json:"service_rating,omitempty"`
	TimeRating    int       `json:"time_rating,omitempty"`
	Attitude      int       `json:"attitude,omitempty"`
	Overall       int       `json:"overall"`
	Comment       string    `json:"comment,omitempty"`
	CustomerCode  string    `json:"customer_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Service   string    `json:"service"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store interface {
	// IssueTicket atomically increments the issued count for the service,
	// creating the record on first use, and returns the new raw sequence.
	// Fails with ErrDailyLimitReached once the sequence cap is hit.
	IssueTicket(ctx context.Context, service string, now time.Time) (int, error)

	// CallNext atomically advances the called count, guarded by
	// called < issued, and appends the call history entry in the same
	// operation. Returns the new called count and the issued count.
	CallNext(ctx context.Context, service string, prefix int, now time.Time) (called, issued int, err error)

	// RecallLast touches the record without advancing any counter and
	// appends a recall-flagged history entry. Guarded by called > 0.
	RecallLast(ctx context.Context, service string, prefix int, now time.Time) (called int, err error)

	GetCounter(ctx context.Context, service string) (CounterRecord, bool, error)
	ListCounters(ctx context.Context) ([]CounterRecord, error)

	// ResetAll zeroes every counter record. History and ratings are not
	// touched. WipeAll deletes all records and recreates one empty record
	// per given service.
	ResetAll(ctx context.Context, now time.Time) error
	WipeAll(ctx context.Context, services []string, now time.Time) error

	// Reset-day marker used by the lazy daily reset. SwapResetDay updates
	// the marker only when it differs from day and reports whether this
	// caller won the swap, so redundant resets collapse to no-ops.
	GetResetDay(ctx context.Context) (string, bool, error)
	InitResetDay(ctx context.Context, day string) error
	SwapResetDay(ctx context.Context, day string) (bool, error)

	ListCalls(ctx context.Context, limit int) ([]CallRecord, error)

	AddRating(ctx context.Context, rating Rating) error
	ListRatings(ctx context.Context) ([]Rating, error)

	Login(ctx context.Context, username, password string, ttl time.Duration) (Session, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	GetSession(ctx context.Context, token string) (Session, error)
	EnsureStaffUser(ctx context.Context, username, password, service, role string) error
}

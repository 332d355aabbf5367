package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Dinhtoai1/layso/internal/store"
	"github.com/Dinhtoai1/layso/internal/ticket"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const resetDayKey = "last_reset_day"

type Store struct {
	pool        *pgxpool.Pool
	maxSequence int
}

type Options struct {
	MaxDailySequence int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	maxSequence := options.MaxDailySequence
	if maxSequence <= 0 {
		maxSequence = ticket.MaxSequence
	}
	return &Store{pool: pool, maxSequence: maxSequence}
}

func (s *Store) IssueTicket(ctx context.Context, service string, now time.Time) (int, error) {
	var issued int
	row := s.pool.QueryRow(ctx, `
		INSERT INTO counters (service, issued_count, called_count, last_updated)
		VALUES ($1, 1, 0, $2)
		ON CONFLICT (service)
		DO UPDATE SET issued_count = counters.issued_count + 1, last_updated = $2
		WHERE counters.issued_count < $3
		RETURNING issued_count
	`, service, now, s.maxSequence)
	if err := row.Scan(&issued); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrDailyLimitReached
		}
		return 0, err
	}
	return issued, nil
}

func (s *Store) CallNext(ctx context.Context, service string, prefix int, now time.Time) (int, int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var called, issued int
	row := tx.QueryRow(ctx, `
		UPDATE counters
		SET called_count = called_count + 1, last_updated = $2
		WHERE service = $1 AND called_count < issued_count
		RETURNING called_count, issued_count
	`, service, now)
	if err = row.Scan(&called, &issued); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNoCustomerWaiting
		}
		return 0, 0, err
	}

	number := ticket.Encode(prefix, called).String()
	if err = appendCall(ctx, tx, service, number, now, false); err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return called, issued, nil
}

func (s *Store) RecallLast(ctx context.Context, service string, prefix int, now time.Time) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var called int
	row := tx.QueryRow(ctx, `
		UPDATE counters
		SET last_updated = $2
		WHERE service = $1 AND called_count > 0
		RETURNING called_count
	`, service, now)
	if err = row.Scan(&called); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNothingCalled
		}
		return 0, err
	}

	number := ticket.Encode(prefix, called).String()
	if err = appendCall(ctx, tx, service, number, now, true); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return called, nil
}

func appendCall(ctx context.Context, tx pgx.Tx, service, number string, at time.Time, isRecall bool) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO call_history (event_id, service, number, called_at, is_recall)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), service, number, at, isRecall)
	return err
}

func (s *Store) GetCounter(ctx context.Context, service string) (store.CounterRecord, bool, error) {
	var record store.CounterRecord
	row := s.pool.QueryRow(ctx, `
		SELECT service, issued_count, called_count, last_updated
		FROM counters
		WHERE service = $1
	`, service)
	if err := row.Scan(&record.Service, &record.IssuedCount, &record.CalledCount, &record.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CounterRecord{}, false, nil
		}
		return store.CounterRecord{}, false, err
	}
	return record, true, nil
}

func (s *Store) ListCounters(ctx context.Context) ([]store.CounterRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service, issued_count, called_count, last_updated
		FROM counters
		ORDER BY service ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.CounterRecord
	for rows.Next() {
		var record store.CounterRecord
		if err := rows.Scan(&record.Service, &record.IssuedCount, &record.CalledCount, &record.LastUpdated); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) ResetAll(ctx context.Context, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE counters
		SET issued_count = 0, called_count = 0, last_updated = $1
	`, now)
	return err
}

func (s *Store) WipeAll(ctx context.Context, services []string, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM counters`); err != nil {
		return err
	}
	for _, service := range services {
		if _, err = tx.Exec(ctx, `
			INSERT INTO counters (service, issued_count, called_count, last_updated)
			VALUES ($1, 0, 0, $2)
		`, service, now); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetResetDay(ctx context.Context) (string, bool, error) {
	var day string
	row := s.pool.QueryRow(ctx, `SELECT value FROM app_state WHERE key = $1`, resetDayKey)
	if err := row.Scan(&day); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return day, true, nil
}

func (s *Store) InitResetDay(ctx context.Context, day string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, resetDayKey, day)
	return err
}

func (s *Store) SwapResetDay(ctx context.Context, day string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE app_state
		SET value = $2
		WHERE key = $1 AND value <> $2
	`, resetDayKey, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListCalls(ctx context.Context, limit int) ([]store.CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT service, number, called_at, is_recall
		FROM call_history
		ORDER BY called_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.CallRecord
	for rows.Next() {
		var record store.CallRecord
		if err := rows.Scan(&record.Service, &record.Number, &record.Time, &record.IsRecall); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) AddRating(ctx context.Context, rating store.Rating) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (rating_id, service, service_rating, time_rating, attitude, overall, comment, customer_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.NewString(), rating.Service, rating.ServiceRating, rating.TimeRating, rating.Attitude, rating.Overall, rating.Comment, rating.CustomerCode, rating.CreatedAt)
	return err
}

func (s *Store) ListRatings(ctx context.Context) ([]store.Rating, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service, service_rating, time_rating, attitude, overall, comment, customer_code, created_at
		FROM ratings
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []store.Rating
	for rows.Next() {
		var rating store.Rating
		if err := rows.Scan(&rating.Service, &rating.ServiceRating, &rating.TimeRating, &rating.Attitude, &rating.Overall, &rating.Comment, &rating.CustomerCode, &rating.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (s *Store) Login(ctx context.Context, username, password string, ttl time.Duration) (store.Session, error) {
	var passwordHash, service, role string
	row := s.pool.QueryRow(ctx, `
		SELECT password_hash, service, role
		FROM staff_users
		WHERE username = $1
	`, username)
	if err := row.Scan(&passwordHash, &service, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrInvalidCredentials
		}
		return store.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return store.Session{}, store.ErrInvalidCredentials
	}

	session := store.Session{
		Token:     uuid.NewString(),
		Username:  username,
		Service:   service,
		Role:      role,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff_sessions (token, username, expires_at)
		VALUES ($1, $2, $3)
	`, session.Token, session.Username, session.ExpiresAt)
	if err != nil {
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT password_hash FROM staff_users WHERE username = $1
	`, username)
	if err := row.Scan(&passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(oldPassword)); err != nil {
		return store.ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE staff_users SET password_hash = $2 WHERE username = $1
	`, username, string(newHash))
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT s.token, s.username, u.service, u.role, s.expires_at
		FROM staff_sessions s
		JOIN staff_users u ON u.username = s.username
		WHERE s.token = $1 AND s.expires_at > now()
	`, token)
	if err := row.Scan(&session.Token, &session.Username, &session.Service, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) EnsureStaffUser(ctx context.Context, username, password, service, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO staff_users (username, password_hash, service, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, username, string(hash), service, role)
	return err
}

package postgres

import (
	"context"
	"time"
)

// Older deployments predate the called counter and the reset-day marker, so
// the schema is brought up to date in place: missing columns are added with
// a zero default instead of branching on document shape at every read site.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		service text PRIMARY KEY,
		issued_count integer NOT NULL DEFAULT 0,
		last_updated timestamptz NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE counters ADD COLUMN IF NOT EXISTS called_count integer NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS call_history (
		event_id uuid PRIMARY KEY,
		service text NOT NULL,
		number text NOT NULL,
		called_at timestamptz NOT NULL,
		is_recall boolean NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS call_history_service_time ON call_history (service, called_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		rating_id uuid PRIMARY KEY,
		service text NOT NULL,
		service_rating integer NOT NULL DEFAULT 0,
		time_rating integer NOT NULL DEFAULT 0,
		attitude integer NOT NULL DEFAULT 0,
		overall integer NOT NULL DEFAULT 0,
		comment text NOT NULL DEFAULT '',
		customer_code text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_state (
		key text PRIMARY KEY,
		value text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staff_users (
		username text PRIMARY KEY,
		password_hash text NOT NULL,
		service text NOT NULL DEFAULT '',
		role text NOT NULL DEFAULT 'staff'
	)`,
	`CREATE TABLE IF NOT EXISTS staff_sessions (
		token uuid PRIMARY KEY,
		username text NOT NULL REFERENCES staff_users (username),
		expires_at timestamptz NOT NULL
	)`,
}

// Migrate creates or upgrades the schema and seeds one counter record per
// service so a fresh database serves status queries immediately.
func (s *Store) Migrate(ctx context.Context, services []string) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	for _, service := range services {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO counters (service, issued_count, called_count, last_updated)
			VALUES ($1, 0, 0, $2)
			ON CONFLICT (service) DO NOTHING
		`, service, now)
		if err != nil {
			return err
		}
	}
	return nil
}

package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// dayCache remembers the last day this process confirmed as reset, saving a
// store round trip on every mutating request. Process-local only; the
// persisted marker stays authoritative.
type dayCache struct {
	mu  sync.Mutex
	day string
}

func (c *dayCache) matches(day string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day == day
}

func (c *dayCache) set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = day
}

// ResetIfNewDay resets all counters once per calendar day in the configured
// zone, gated solely by the persisted reset-day marker so the timer and the
// lazy fallback can race freely. On the very first run the marker is
// initialized without resetting, so a freshly seeded database is not
// zeroed.
func (e *Engine) ResetIfNewDay(ctx context.Context) error {
	today := e.now().In(e.location).Format("2006-01-02")
	if e.resetDay.matches(today) {
		return nil
	}

	day, found, err := e.store.GetResetDay(ctx)
	if err != nil {
		return err
	}
	if !found {
		if err := e.store.InitResetDay(ctx, today); err != nil {
			return err
		}
		e.resetDay.set(today)
		return nil
	}
	if day == today {
		e.resetDay.set(today)
		return nil
	}

	won, err := e.store.SwapResetDay(ctx, today)
	if err != nil {
		return err
	}
	if !won {
		e.resetDay.set(today)
		return nil
	}

	log.Printf("daily reset: zeroing counters for %s", today)
	if err := e.store.ResetAll(ctx, e.now().UTC()); err != nil {
		// The marker must not stay on today while the counters still hold
		// yesterday's counts: roll it back so the next trigger retries.
		if _, rollbackErr := e.store.SwapResetDay(ctx, day); rollbackErr != nil {
			log.Printf("reset-day rollback error: %v", rollbackErr)
		}
		return err
	}
	e.resetDay.set(today)
	return nil
}

// maybeResetDay is the lazy fallback on the request path. Reset is
// best-effort there: failures are logged and never block issuance.
func (e *Engine) maybeResetDay(ctx context.Context) {
	if err := e.ResetIfNewDay(ctx); err != nil {
		log.Printf("lazy reset error: %v", err)
	}
}

// RunResetLoop drives the scheduled trigger. A coarse interval check
// replaces a midnight-exact cron; ResetIfNewDay is idempotent, so firing
// late or alongside the lazy fallback is harmless.
func (e *Engine) RunResetLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := e.ResetIfNewDay(checkCtx); err != nil {
				log.Printf("scheduled reset error: %v", err)
			}
			cancel()
		}
	}
}

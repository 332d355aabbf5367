package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dinhtoai1/layso/internal/store"
	"github.com/Dinhtoai1/layso/internal/store/memory"
)

type flakyResetStore struct {
	store.Store
	failures int
}

func (s *flakyResetStore) ResetAll(ctx context.Context, now time.Time) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("storage unavailable")
	}
	return s.Store.ResetAll(ctx, now)
}

func TestResetRetriesAfterStorageFailure(t *testing.T) {
	flaky := &flakyResetStore{Store: memory.NewStore(memory.Options{}), failures: 1}
	engine := New(flaky, Options{Location: time.UTC})
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return day1 }
	for i := 0; i < 3; i++ {
		if _, err := engine.IssueTicket(ctx, "Văn thư"); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	engine.now = func() time.Time { return day1.Add(24 * time.Hour) }
	if err := engine.ResetIfNewDay(ctx); err == nil {
		t.Fatal("expected an error while counter storage is down")
	}

	// The blip cleared; the marker must not have advanced, so the next
	// trigger performs the reset and the day starts at sequence 1.
	ticket, err := engine.IssueTicket(ctx, "Văn thư")
	if err != nil {
		t.Fatalf("issue after blip: %v", err)
	}
	if ticket.Number.Sequence != 1 {
		t.Fatalf("first ticket after blip: sequence %d, want 1", ticket.Number.Sequence)
	}
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dinhtoai1/layso/internal/store"
)

func TestListCallsNewestFirstWithLimit(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := st.IssueTicket(ctx, "Văn thư", now); err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, _, err := st.CallNext(ctx, "Văn thư", 2, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("call: %v", err)
		}
	}

	calls, err := st.ListCalls(ctx, 3)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	for i, call := range calls {
		want := fmt.Sprintf("2%03d", 5-i)
		if call.Number != want {
			t.Fatalf("call %d: number %q, want %q", i, call.Number, want)
		}
	}
}

func TestSessionExpiry(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()

	if err := st.EnsureStaffUser(ctx, "staff1", "secret1", "", "staff"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	session, err := st.Login(ctx, "staff1", "secret1", -time.Minute)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := st.GetSession(ctx, session.Token); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}

	session, err = st.Login(ctx, "staff1", "secret1", time.Hour)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := st.GetSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Username != "staff1" || got.Role != "staff" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestEnsureStaffUserDoesNotOverwrite(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()

	if err := st.EnsureStaffUser(ctx, "staff1", "secret1", "", "staff"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := st.EnsureStaffUser(ctx, "staff1", "other", "", "admin"); err != nil {
		t.Fatalf("repeat ensure: %v", err)
	}
	if _, err := st.Login(ctx, "staff1", "secret1", time.Hour); err != nil {
		t.Fatalf("original password rejected: %v", err)
	}
	if _, err := st.Login(ctx, "staff1", "other", time.Hour); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestWipeRecreatesEmptyRecords(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if _, err := st.IssueTicket(ctx, "Văn thư", now); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := st.WipeAll(ctx, []string{"Văn thư", "Đất đai"}, now); err != nil {
		t.Fatalf("wipe: %v", err)
	}

	records, err := st.ListCounters(ctx)
	if err != nil {
		t.Fatalf("list counters: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, record := range records {
		if record.IssuedCount != 0 || record.CalledCount != 0 {
			t.Fatalf("record not empty: %+v", record)
		}
	}
}

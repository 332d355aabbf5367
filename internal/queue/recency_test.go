package queue

import (
	"testing"
	"time"
)

func TestRecallTrackerWindow(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tracker := newRecallTracker(8 * time.Second)

	if tracker.IsRecent("Văn thư", base) {
		t.Fatal("unmarked service reported recent")
	}

	tracker.Mark("Văn thư", base)
	if !tracker.IsRecent("Văn thư", base.Add(5*time.Second)) {
		t.Fatal("mark inside window not reported")
	}
	if tracker.IsRecent("Đất đai", base.Add(5*time.Second)) {
		t.Fatal("mark leaked to another service")
	}
	if tracker.IsRecent("Văn thư", base.Add(9*time.Second)) {
		t.Fatal("mark outside window reported recent")
	}
	// The stale mark was evicted on the previous check.
	if tracker.IsRecent("Văn thư", base.Add(6*time.Second)) {
		t.Fatal("evicted mark reported recent")
	}
}

package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeClock returns a tracker whose clock is advanced by hand.
func fakeClock(t *testing.T) (*Tracker, func(time.Duration)) {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	tr := New()
	tr.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return tr, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestTouch_BasicTracking(t *testing.T) {
	tr, _ := fakeClock(t)

	tr.Touch("av-1", "mount")

	roster := tr.Roster(0)
	if len(roster) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(roster))
	}
	e := roster[0]
	if e.ViewID != "av-1" {
		t.Errorf("expected view av-1, got %s", e.ViewID)
	}
	if e.LastOp != "mount" {
		t.Errorf("expected last_op mount, got %s", e.LastOp)
	}
	if e.OpCount != 1 {
		t.Errorf("expected op_count 1, got %d", e.OpCount)
	}
}

func TestTouch_UpdatesExistingView(t *testing.T) {
	tr, advance := fakeClock(t)

	tr.Touch("av-1", "mount")
	advance(time.Minute)
	tr.Touch("av-1", "payload")
	advance(time.Minute)
	tr.Touch("av-1", "select")

	e := tr.Roster(0)[0]
	if e.OpCount != 3 {
		t.Errorf("expected 3 ops, got %d", e.OpCount)
	}
	if e.LastOp != "select" {
		t.Errorf("expected last op select, got %s", e.LastOp)
	}
	if got := e.LastSeen.Sub(e.FirstSeen); got != 2*time.Minute {
		t.Errorf("expected 2m between first and last seen, got %v", got)
	}
}

func TestTouch_IgnoresEmptyID(t *testing.T) {
	tr := New()
	tr.Touch("", "mount")
	if n := len(tr.Roster(0)); n != 0 {
		t.Errorf("expected empty roster, got %d entries", n)
	}
}

func TestForget(t *testing.T) {
	tr := New()
	tr.Touch("av-1", "mount")
	tr.Forget("av-1")
	tr.Forget("av-missing")
	if n := len(tr.Roster(0)); n != 0 {
		t.Errorf("expected empty roster, got %d entries", n)
	}
}

func TestRoster_StaleThresholdAndOrder(t *testing.T) {
	tr, advance := fakeClock(t)

	tr.Touch("old", "mount")
	advance(10 * time.Minute)
	tr.Touch("middle", "mount")
	advance(time.Minute)
	tr.Touch("new", "mount")

	var ids []string
	for _, e := range tr.Roster(5 * time.Minute) {
		ids = append(ids, e.ViewID)
	}
	if diff := cmp.Diff([]string{"new", "middle"}, ids); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
	if n := len(tr.Roster(0)); n != 3 {
		t.Errorf("expected 3 entries without threshold, got %d", n)
	}
}

func TestSweep_DropsIdleViews(t *testing.T) {
	tr, advance := fakeClock(t)

	tr.Touch("idle-b", "mount")
	tr.Touch("idle-a", "mount")
	advance(20 * time.Minute)
	tr.Touch("busy", "payload")

	var closed []string
	cfg := &ReaperConfig{
		IdleThreshold: 15 * time.Minute,
		OnIdle:        func(id string) { closed = append(closed, id) },
	}
	tr.sweep(cfg)

	if diff := cmp.Diff([]string{"idle-a", "idle-b"}, closed); diff != "" {
		t.Errorf("closed mismatch (-want +got):\n%s", diff)
	}
	roster := tr.Roster(0)
	if len(roster) != 1 || roster[0].ViewID != "busy" {
		t.Errorf("expected only busy to remain, got %+v", roster)
	}

	// A second sweep does not report the same views again.
	closed = nil
	tr.sweep(cfg)
	if len(closed) != 0 {
		t.Errorf("expected no views on second sweep, got %v", closed)
	}
}

func TestSweep_TouchKeepsViewAlive(t *testing.T) {
	tr, advance := fakeClock(t)

	tr.Touch("av-1", "mount")
	advance(14 * time.Minute)
	tr.Touch("av-1", "hover")
	advance(14 * time.Minute)

	if got := tr.sweep(&ReaperConfig{IdleThreshold: 15 * time.Minute}); len(got) != 0 {
		t.Errorf("expected nothing reaped, got %v", got)
	}
}

func TestStartReaper_ClosesIdleViews(t *testing.T) {
	tr, advance := fakeClock(t)
	tr.Touch("av-1", "mount")
	advance(time.Hour)

	closed := make(chan string, 1)
	tr.StartReaper(&ReaperConfig{
		IdleThreshold: time.Minute,
		SweepInterval: 10 * time.Millisecond,
		OnIdle:        func(id string) { closed <- id },
	})
	defer tr.Stop()

	select {
	case id := <-closed:
		if id != "av-1" {
			t.Errorf("closed %q, want av-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not close the idle view")
	}
}

func TestStartReaper_StopsCleanly(t *testing.T) {
	tr := New()

	tr.StartReaper(&ReaperConfig{
		SweepInterval: 50 * time.Millisecond,
	})

	time.Sleep(150 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		tr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return within 2 seconds")
	}
}

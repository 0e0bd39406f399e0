// Package presence tracks activity on mounted views.
//
// The server touches a view on every request or payload that reaches it. A
// background reaper closes views that have been idle longer than a
// configurable threshold, so abandoned browser tabs and crashed clients do
// not keep renderers alive.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is a single view's activity snapshot.
type Entry struct {
	ViewID    string    `json:"view_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	LastOp    string    `json:"last_op"` // e.g. "payload", "select", "stream"
	IdleSecs  float64   `json:"idle_secs"`
	OpCount   int64     `json:"op_count"`
}

// ReaperConfig configures the background idle-view reaper.
type ReaperConfig struct {
	// IdleThreshold is how long a view must be untouched before it is closed.
	// Default: 15 minutes.
	IdleThreshold time.Duration

	// SweepInterval is how often the reaper scans for idle views.
	// Default: 60 seconds, or IdleThreshold when that is shorter.
	SweepInterval time.Duration

	// OnIdle is called for each view the reaper drops.
	// Called outside the lock, so it may close the view synchronously.
	OnIdle func(viewID string)

	Logger *slog.Logger
}

// Tracker maintains last-activity times for mounted views.
type Tracker struct {
	mu    sync.RWMutex
	views map[string]*viewState
	now   func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type viewState struct {
	firstSeen time.Time
	lastSeen  time.Time
	lastOp    string
	opCount   int64
}

// New creates a new tracker.
func New() *Tracker {
	return &Tracker{
		views: make(map[string]*viewState),
		now:   time.Now,
	}
}

// Touch records activity on a view, adding it when unknown.
func (t *Tracker) Touch(viewID, op string) {
	if viewID == "" {
		return
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.views[viewID]
	if !ok {
		state = &viewState{firstSeen: now}
		t.views[viewID] = state
	}
	state.lastSeen = now
	state.lastOp = op
	state.opCount++
}

// Forget stops tracking a view.
func (t *Tracker) Forget(viewID string) {
	t.mu.Lock()
	delete(t.views, viewID)
	t.mu.Unlock()
}

// Roster returns a snapshot of tracked views, most recently active first.
// Views idle longer than staleThreshold are excluded; pass 0 to include all.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.views))
	for id, state := range t.views {
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			ViewID:    id,
			FirstSeen: state.firstSeen,
			LastSeen:  state.lastSeen,
			LastOp:    state.lastOp,
			IdleSecs:  idle.Seconds(),
			OpCount:   state.opCount,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].ViewID < entries[j].ViewID
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartReaper launches a background goroutine that periodically drops idle
// views. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = 15 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = min(60*time.Second, cfg.IdleThreshold)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	cfg.Logger.Info("presence: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

// sweep drops every view idle longer than the threshold and returns their ids.
func (t *Tracker) sweep(cfg *ReaperConfig) []string {
	now := t.now()

	var idle []string
	t.mu.Lock()
	for id, state := range t.views {
		if now.Sub(state.lastSeen) > cfg.IdleThreshold {
			idle = append(idle, id)
			delete(t.views, id)
		}
	}
	t.mu.Unlock()
	sort.Strings(idle)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, id := range idle {
		logger.Info("presence: reaper closing idle view",
			"view_id", id,
			"threshold", cfg.IdleThreshold)
		if cfg.OnIdle != nil {
			cfg.OnIdle(id)
		}
	}
	return idle
}

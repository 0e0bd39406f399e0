package render

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
)

// State is the lifecycle state of a Manager.
type State int

const (
	Uninitialized State = iota
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Config configures a Manager.
type Config struct {
	Surface Surface
	Loader  Loader
	Intents Intents
	Logger  *slog.Logger
	Metrics *Metrics

	// Spawn runs a backend acquisition. Default: a new goroutine.
	Spawn func(func())
	// Schedule runs fn after the current render cycle, without Manager
	// locks held. Default: a zero-delay timer.
	Schedule func(fn func())
	// OnChange is called, without locks held, when an asynchronous step
	// changed what Err or Live report.
	OnChange func()
}

// token is the cancellation token of one render cycle. Disposing it makes a
// pending acquisition drop its result.
type token struct {
	ctx      context.Context
	cancel   context.CancelFunc
	disposed atomic.Bool
	view     focus.View
	key      string
}

func (t *token) dispose() {
	t.disposed.Store(true)
	t.cancel()
}

// handle is the single live renderer instance.
type handle struct {
	renderer Renderer
	hits     *hitAdapter
	key      string
}

// Manager owns at most one live renderer for a mounted view. Teardown of the
// previous instance always happens before the next one is constructed.
type Manager struct {
	surface  Surface
	loader   Loader
	intents  Intents
	logger   *slog.Logger
	metrics  *Metrics
	spawn    func(func())
	schedule func(func())
	onChange func()

	mu         sync.Mutex
	state      State
	ctx        context.Context
	cancel     context.CancelFunc
	probed     bool
	err        *Error
	key        string
	view       focus.View
	pending    *token
	live       *handle
	stopResize func()
	generation uint64
}

// NewManager returns an unmounted Manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		surface:  cfg.Surface,
		loader:   cfg.Loader,
		intents:  cfg.Intents,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		spawn:    cfg.Spawn,
		schedule: cfg.Schedule,
		onChange: cfg.OnChange,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.spawn == nil {
		m.spawn = func(fn func()) { go fn() }
	}
	if m.schedule == nil {
		m.schedule = func(fn func()) { time.AfterFunc(0, fn) }
	}
	return m
}

// Mount starts observing surface size changes and resets the per-mount
// capability and error state. Mounting a disposed Manager is a no-op.
func (m *Manager) Mount(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Uninitialized {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.state = Ready
	m.probed = false
	m.err = nil
	m.key = ""
	m.stopResize = m.surface.OnResize(func(Size) { m.reconcileSize() })
}

// Update runs one render cycle for view. key identifies the inputs that
// require a rebuild (see focus.View.Key); an update with the key of the
// current cycle only restyles the live renderer in place when it supports it.
func (m *Manager) Update(view focus.View, key string) {
	if tok := m.prepare(view, key); tok != nil {
		m.spawn(func() { m.acquire(tok) })
	}
}

// prepare performs the synchronous part of a cycle and returns the token of
// an acquisition to start, if any.
func (m *Manager) prepare(view focus.View, key string) *token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Ready || !m.surface.Ready() || m.err != nil {
		return nil
	}

	if key == m.key {
		m.view = view
		m.restyleLocked(view)
		return nil
	}

	if !m.probed {
		if err := m.probeLocked(); err != nil {
			m.failLocked(capabilityError(err))
			return nil
		}
		m.probed = true
	}

	m.teardownLocked()
	m.surface.Clear()
	m.key = key
	m.view = view

	if len(view.Focused.Nodes) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	tok := &token{ctx: ctx, cancel: cancel, view: view, key: key}
	m.pending = tok
	return tok
}

// acquire loads the backend module and constructs the renderer unless the
// cycle was disposed in the meantime.
func (m *Manager) acquire(tok *token) {
	mod, loadErr := m.loader.Load(tok.ctx)

	var fit *handle
	changed := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()

		if tok.disposed.Load() || m.pending != tok {
			m.metrics.discarded()
			m.logger.Debug("render: discarded stale acquisition", "key", tok.key)
			return false
		}
		m.pending = nil
		tok.cancel()

		if loadErr != nil || mod == nil {
			m.logger.Warn("render: failed to load renderer", "err", loadErr)
			m.failLocked(acquisitionError(loadErr))
			return true
		}

		r, err := construct(mod, m.surface, tok.view)
		if err != nil {
			m.logger.Warn("render: renderer construction failed", "err", err)
			m.failLocked(constructionError(err))
			return true
		}

		h := &handle{renderer: r, key: tok.key}
		h.hits = newHitAdapter(r, m.surface, m.intents, tok.view)
		h.hits.Attach()
		m.live = h
		m.generation++
		m.metrics.constructed()
		m.logger.Debug("render: renderer constructed",
			"nodes", len(tok.view.Nodes),
			"relationships", len(tok.view.Relationships),
			"hit_testing", h.hits.SupportsHitTesting())

		// Hover may have moved while the module was loading.
		if !sameStyle(m.view, tok.view) {
			m.restyleLocked(m.view)
		}
		if _, ok := r.(Fitter); ok {
			fit = h
		}
		return true
	}()

	if fit != nil {
		m.schedule(func() { m.fitIfLive(fit) })
	}
	if changed && m.onChange != nil {
		m.onChange()
	}
}

// construct calls the backend constructor, converting a panic into an error.
func construct(mod Module, s Surface, view focus.View) (r Renderer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, panicError(rec)
		}
	}()
	return mod.New(s, view.Nodes, view.Relationships)
}

func (m *Manager) probeLocked() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(rec)
		}
	}()
	return m.surface.Probe()
}

func (m *Manager) failLocked(e *Error) {
	m.err = e
	m.metrics.failed(e.Kind)
}

// restyleLocked pushes updated records to a live renderer that supports
// in-place updates. Failures are ignored; the next rebuild catches up.
func (m *Manager) restyleLocked(view focus.View) {
	if m.live == nil {
		return
	}
	u, ok := m.live.renderer.(Updater)
	if !ok {
		return
	}
	bestEffort(m.logger, "update", func() error { return u.Update(view.Nodes, view.Relationships) })
}

// teardownLocked disposes the pending cycle and destroys the live renderer.
func (m *Manager) teardownLocked() {
	if m.pending != nil {
		m.pending.dispose()
		m.pending = nil
	}
	h := m.live
	m.live = nil
	if h == nil {
		return
	}
	if h.hits != nil {
		bestEffort(m.logger, "detach", func() error { h.hits.Detach(); return nil })
	}
	if d, ok := h.renderer.(Destroyer); ok {
		bestEffort(m.logger, "destroy", d.Destroy)
	}
	m.metrics.tornDown()
}

func (m *Manager) fitIfLive(h *handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live != h {
		return
	}
	if f, ok := h.renderer.(Fitter); ok {
		bestEffort(m.logger, "fit", f.FitView)
	}
}

func (m *Manager) reconcileSize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil {
		return
	}
	if r, ok := m.live.renderer.(Resizer); ok {
		bestEffort(m.logger, "resize", r.Resize)
	}
	if f, ok := m.live.renderer.(Fitter); ok {
		bestEffort(m.logger, "fit", f.FitView)
	}
}

// ResetView re-frames the live renderer. Failures are logged and swallowed.
func (m *Manager) ResetView() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil {
		return
	}
	f, ok := m.live.renderer.(Fitter)
	if !ok {
		return
	}
	if err := call(f.FitView); err != nil {
		m.logger.Error("render: error resetting view", "err", err)
	}
}

// Close disposes any pending cycle, tears down the live renderer and stops
// observing the surface. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Disposed {
		return
	}
	m.teardownLocked()
	if m.stopResize != nil {
		m.stopResize()
		m.stopResize = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.state = Disposed
}

// Err returns the sticky render error of this mount, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		return nil
	}
	return m.err
}

// Live reports whether a renderer instance is currently live.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live != nil
}

// Pending reports whether an acquisition is in flight.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Generation counts renderer constructions since the Manager was created.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HitTesting reports whether the live renderer resolves pointer events.
func (m *Manager) HitTesting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live != nil && m.live.hits != nil && m.live.hits.SupportsHitTesting()
}

func sameStyle(a, b focus.View) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for i := range a.Nodes {
		if a.Nodes[i].Hovered != b.Nodes[i].Hovered || a.Nodes[i].Size != b.Nodes[i].Size {
			return false
		}
	}
	return true
}

// call runs fn, converting a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(rec)
		}
	}()
	return fn()
}

// bestEffort runs a cosmetic backend operation; failures are only logged.
func bestEffort(logger *slog.Logger, op string, fn func() error) {
	if err := call(fn); err != nil {
		logger.Debug("render: best-effort operation failed", "op", op, "err", err)
	}
}

// Package explorer is one mounted graph view: it feeds normalized payloads
// into the selection machine, re-derives the view on every change and drives
// the renderer lifecycle manager with it.
package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/normalize"
	"github.com/alfredjeanlab/atlasgraph/internal/panel"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
)

// Cause says what produced a snapshot.
type Cause string

const (
	CauseLoad   Cause = "load"
	CauseSelect Cause = "select"
	CauseHover  Cause = "hover"
	CauseReset  Cause = "reset"
	CauseRender Cause = "render"
)

// Snapshot is a consistent readout of the view.
type Snapshot struct {
	Cause       Cause            `json:"cause"`
	Revision    uint64           `json:"revision"`
	Loaded      bool             `json:"loaded"`
	Summary     *string          `json:"summary"`
	Shape       normalize.Shape  `json:"shape,omitempty"`
	Graph       model.Graph      `json:"graph"`
	State       focus.State      `json:"state"`
	Connected   []string         `json:"connected_ids"`
	View        focus.View       `json:"view"`
	Detail      panel.Detail     `json:"detail"`
	RenderError string           `json:"render_error,omitempty"`
	ErrorKind   render.ErrorKind `json:"render_error_kind,omitempty"`

	// FirstError is set on the first snapshot carrying RenderError.
	FirstError bool `json:"-"`
}

// Listener receives every new snapshot. It is called without Explorer locks
// held.
type Listener func(Snapshot)

// Options configures an Explorer.
type Options struct {
	Surface     render.Surface
	Loader      render.Loader
	Palette     *style.Palette
	PickerLimit int
	Logger      *slog.Logger
	Metrics     *Metrics
	Listener    Listener

	// Spawn and Schedule are passed to the render.Manager.
	Spawn    func(func())
	Schedule func(func())
}

// Explorer is a single-writer view. All methods are safe for concurrent use.
type Explorer struct {
	palette  *style.Palette
	limit    int
	logger   *slog.Logger
	metrics  *Metrics
	listener Listener
	manager  *render.Manager

	mu       sync.Mutex
	machine  *focus.Machine
	summary  *string
	shape    normalize.Shape
	revision uint64
	loaded   bool
	closed   bool
	seq      uint64
	errSeen  bool

	// renderMu orders Manager updates by seq without holding mu.
	renderMu    sync.Mutex
	renderedSeq uint64
}

// New mounts a view on opts.Surface. The view shows the loading state until
// the first payload arrives.
func New(ctx context.Context, opts Options) *Explorer {
	e := &Explorer{
		palette:  opts.Palette,
		limit:    opts.PickerLimit,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		listener: opts.Listener,
		machine:  focus.NewMachine(),
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.limit <= 0 {
		e.limit = panel.DefaultPickerLimit
	}
	e.manager = render.NewManager(render.Config{
		Surface:  opts.Surface,
		Loader:   opts.Loader,
		Intents:  intents{e},
		Logger:   e.logger,
		Metrics:  e.metrics.renderer(),
		Spawn:    opts.Spawn,
		Schedule: opts.Schedule,
		OnChange: e.renderChanged,
	})
	e.manager.Mount(ctx)
	return e
}

// Load normalizes payload and replaces the graph. A selection whose node is
// gone is reset.
func (e *Explorer) Load(payload any) normalize.Result {
	res := normalize.Normalize(payload)
	e.metrics.payload(res.Shape)
	e.apply(CauseLoad, func(m *focus.Machine) bool {
		if m.SetGraph(res.Graph) {
			e.logger.Debug("explorer: selection reset by new graph")
		}
		e.summary = res.Summary
		e.shape = res.Shape
		e.revision++
		e.loaded = true
		return true
	})
	return res
}

// LoadJSON decodes data and loads it. Invalid JSON leaves the view unchanged.
func (e *Explorer) LoadJSON(data []byte) (normalize.Result, error) {
	v, err := normalize.Decode(data)
	if err != nil {
		return normalize.Result{}, err
	}
	return e.Load(v), nil
}

// SelectNode focuses the node with the given id. Unknown ids are ignored.
func (e *Explorer) SelectNode(id string) bool {
	return e.apply(CauseSelect, func(m *focus.Machine) bool { return m.SelectNodeByID(id) })
}

// SelectEdge focuses edge.
func (e *Explorer) SelectEdge(edge *model.GraphEdge) bool {
	return e.apply(CauseSelect, func(m *focus.Machine) bool { return m.SelectEdge(edge) })
}

// SelectEdgeByKey focuses the first edge with the given identity.
func (e *Explorer) SelectEdgeByKey(key model.EdgeKey) bool {
	return e.apply(CauseSelect, func(m *focus.Machine) bool { return m.SelectEdgeByKey(key) })
}

// Hover highlights a node while nothing is focused. "" clears the hover.
func (e *Explorer) Hover(id string) bool {
	return e.apply(CauseHover, func(m *focus.Machine) bool { return m.SetHover(id) })
}

// ResetView clears selection, focus and hover and re-frames the drawing.
func (e *Explorer) ResetView() {
	e.apply(CauseReset, func(m *focus.Machine) bool {
		m.ResetView()
		return true
	})
	e.manager.ResetView()
}

// Snapshot returns the current readout.
func (e *Explorer) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(CauseRender, e.deriveLocked())
}

// Err returns the sticky render error, or nil.
func (e *Explorer) Err() error { return e.manager.Err() }

// Close tears the view down. Further changes are ignored.
func (e *Explorer) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.manager.Close()
}

// apply runs one transition and, when it changed something, re-renders and
// notifies the listener.
func (e *Explorer) apply(cause Cause, fn func(m *focus.Machine) bool) bool {
	e.mu.Lock()
	if e.closed || !fn(e.machine) {
		e.mu.Unlock()
		return false
	}
	e.seq++
	seq := e.seq
	view := e.deriveLocked()
	key := view.Key(e.revision)
	loaded := e.loaded
	e.mu.Unlock()

	if loaded {
		e.render(seq, view, key)
	}

	e.mu.Lock()
	snap := e.snapshotLocked(cause, view)
	e.markErrorLocked(&snap)
	e.mu.Unlock()
	e.notify(snap)
	return true
}

func (e *Explorer) render(seq uint64, view focus.View, key string) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	if seq <= e.renderedSeq {
		return
	}
	e.renderedSeq = seq
	e.manager.Update(view, key)
}

func (e *Explorer) deriveLocked() focus.View {
	return focus.Derive(e.machine.Graph(), e.machine.Snapshot(), e.palette)
}

func (e *Explorer) snapshotLocked(cause Cause, view focus.View) Snapshot {
	st := e.machine.Snapshot()
	g := e.machine.Graph()
	d := panel.Build(st, g, e.limit, e.palette)
	if !e.loaded || e.manager.Pending() {
		d.SetLoading()
	}
	s := Snapshot{
		Cause:     cause,
		Revision:  e.revision,
		Loaded:    e.loaded,
		Summary:   e.summary,
		Shape:     e.shape,
		Graph:     g,
		State:     st,
		Connected: view.Connected(),
		View:      view,
	}
	if err := e.manager.Err(); err != nil {
		d.SetRenderError(err)
		s.RenderError = err.Error()
		var re *render.Error
		if errors.As(err, &re) {
			s.ErrorKind = re.Kind
		}
	}
	s.Detail = d
	return s
}

// renderChanged runs after an asynchronous render step settled.
func (e *Explorer) renderChanged() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	snap := e.snapshotLocked(CauseRender, e.deriveLocked())
	e.markErrorLocked(&snap)
	e.mu.Unlock()
	e.notify(snap)
}

func (e *Explorer) markErrorLocked(s *Snapshot) {
	if s.RenderError == "" || e.errSeen {
		return
	}
	e.errSeen = true
	s.FirstError = true
	e.logger.Warn("explorer: graph unavailable", "err", s.RenderError)
}

func (e *Explorer) notify(s Snapshot) {
	if e.listener != nil {
		e.listener(s)
	}
}

// intents routes renderer hits back into the view.
type intents struct{ e *Explorer }

func (i intents) SelectNodeByID(id string) { i.e.SelectNode(id) }

func (i intents) SelectEdgeByKey(key model.EdgeKey) { i.e.SelectEdgeByKey(key) }

func (i intents) Hover(id string) { i.e.Hover(id) }

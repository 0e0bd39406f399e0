package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/events"
	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/idgen"
	"github.com/alfredjeanlab/atlasgraph/internal/normalize"
	"github.com/alfredjeanlab/atlasgraph/internal/presence"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
	"github.com/alfredjeanlab/atlasgraph/internal/render/stream"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
)

// SSE event names that are not produced by the stream renderer.
const (
	EventViewState   = "view.state"
	EventViewClosed  = "view.closed"
	EventRenderError = "render.error"
)

// Close reasons.
const (
	ReasonDeleted  = "deleted"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// errViewNotFound is returned for unknown view ids.
var errViewNotFound = errors.New("view not found")

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// Options configures a ViewServer.
type Options struct {
	Palette     *style.Palette
	PickerLimit int
	Metrics     *explorer.Metrics
	Logger      *slog.Logger

	// Loader acquires the renderer for new views. Defaults to the stream
	// backend.
	Loader render.Loader

	// Spawn and Schedule are passed to every view's render.Manager.
	Spawn    func(func())
	Schedule func(func())
}

// ViewServer owns the registry of mounted views and fans their output out to
// SSE clients and the event bus.
type ViewServer struct {
	publisher events.Publisher
	sseHub    *sseHub
	Presence  *presence.Tracker
	opts      Options
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	views map[string]*view
}

type view struct {
	id       string
	created  time.Time
	surface  *stream.Surface
	explorer *explorer.Explorer
}

// ViewInfo summarizes a mounted view.
type ViewInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Loaded    bool      `json:"loaded"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	Revision  uint64    `json:"revision"`
}

// NewViewServer returns a ViewServer publishing to p.
func NewViewServer(p events.Publisher, opts Options) *ViewServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Palette == nil {
		opts.Palette = style.DefaultPalette()
	}
	if opts.Loader == nil {
		opts.Loader = render.Static(stream.Module{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ViewServer{
		publisher: p,
		sseHub:    newSSEHub(),
		Presence:  presence.New(),
		opts:      opts,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		views:     make(map[string]*view),
	}
}

// Mount creates a view with a fresh id.
func (s *ViewServer) Mount(ctx context.Context) (string, error) {
	id, err := idgen.Generate()
	if err != nil {
		return "", fmt.Errorf("generating view id: %w", err)
	}
	s.mount(ctx, id)
	return id, nil
}

// mount registers a view under id, or returns the existing one.
func (s *ViewServer) mount(ctx context.Context, id string) *view {
	s.mu.Lock()
	if v, ok := s.views[id]; ok {
		s.mu.Unlock()
		return v
	}
	v := &view{id: id, created: time.Now().UTC()}
	v.surface = stream.NewSurface(stream.SinkFunc(func(event string, payload any) {
		s.broadcastView(id, event, payload)
	}))
	v.explorer = explorer.New(s.ctx, explorer.Options{
		Surface:     v.surface,
		Loader:      s.opts.Loader,
		Palette:     s.opts.Palette,
		PickerLimit: s.opts.PickerLimit,
		Logger:      s.logger.With("view_id", id),
		Metrics:     s.opts.Metrics,
		Listener:    func(snap explorer.Snapshot) { s.onSnapshot(s.ctx, id, snap) },
		Spawn:       s.opts.Spawn,
		Schedule:    s.opts.Schedule,
	})
	s.views[id] = v
	s.mu.Unlock()

	s.Presence.Touch(id, "mount")
	s.logger.Info("view mounted", "view_id", id)
	s.publish(ctx, events.TopicViewMounted, events.ViewMounted{ViewID: id})
	return v
}

// lookup returns the view and records activity on it.
func (s *ViewServer) lookup(id, op string) (*view, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errViewNotFound
	}
	s.Presence.Touch(id, op)
	return v, nil
}

// Snapshot returns the current readout of a view.
func (s *ViewServer) Snapshot(id string) (explorer.Snapshot, error) {
	v, err := s.lookup(id, "get")
	if err != nil {
		return explorer.Snapshot{}, err
	}
	return v.explorer.Snapshot(), nil
}

// LoadPayload decodes a JSON payload and loads it into a view.
func (s *ViewServer) LoadPayload(id string, data []byte) (normalize.Result, error) {
	v, err := s.lookup(id, "payload")
	if err != nil {
		return normalize.Result{}, err
	}
	res, err := v.explorer.LoadJSON(data)
	if err != nil {
		return normalize.Result{}, inputError(err.Error())
	}
	return res, nil
}

// HandlePayload loads a payload received from the event bus. Views that do
// not exist yet are mounted under the requested id when it is well formed.
func (s *ViewServer) HandlePayload(ctx context.Context, p events.Payload) error {
	v, err := s.lookup(p.ViewID, "payload")
	if errors.Is(err, errViewNotFound) {
		if !idgen.View.Valid(p.ViewID) {
			return fmt.Errorf("view %s: %w", p.ViewID, errViewNotFound)
		}
		v = s.mount(ctx, p.ViewID)
	}
	content, err := normalize.Decode(p.Content)
	if err != nil {
		return err
	}
	// An envelope summary fills in for payloads that carry none.
	if obj, ok := content.(map[string]any); ok && p.Summary != nil {
		if _, has := obj["summary"]; !has {
			obj["summary"] = *p.Summary
		}
	}
	res := v.explorer.Load(content)
	s.logger.Debug("payload ingested", "view_id", p.ViewID, "shape", res.Shape, "nodes", len(res.Graph.Nodes))
	return nil
}

// Select focuses a node by id, or an edge when key is non-nil.
func (s *ViewServer) Select(id string, sel selectInput) (bool, error) {
	v, err := s.lookup(id, "select")
	if err != nil {
		return false, err
	}
	switch {
	case sel.Edge != nil:
		return v.explorer.SelectEdgeByKey(*sel.Edge), nil
	case sel.NodeID != "":
		return v.explorer.SelectNode(sel.NodeID), nil
	default:
		return false, inputError("node_id or edge is required")
	}
}

// Hover highlights a node; "" clears the hover.
func (s *ViewServer) Hover(id, nodeID string) (bool, error) {
	v, err := s.lookup(id, "hover")
	if err != nil {
		return false, err
	}
	return v.explorer.Hover(nodeID), nil
}

// ResetView clears the selection of a view and re-frames its drawing.
func (s *ViewServer) ResetView(id string) error {
	v, err := s.lookup(id, "reset")
	if err != nil {
		return err
	}
	v.explorer.ResetView()
	return nil
}

// Pointer dispatches a client pointer event on the view's surface and returns
// the number of handlers that saw it.
func (s *ViewServer) Pointer(id string, evt render.PointerEvent) (int, error) {
	switch evt.Kind {
	case render.EventClick, render.EventPointerMove, render.EventPointerLeave:
	default:
		return 0, inputError(fmt.Sprintf("unknown pointer event kind %q", evt.Kind))
	}
	v, err := s.lookup(id, "pointer")
	if err != nil {
		return 0, err
	}
	return v.surface.Dispatch(evt), nil
}

// Resize records the client's canvas size.
func (s *ViewServer) Resize(id string, sz render.Size) error {
	if sz.Width <= 0 || sz.Height <= 0 {
		return inputError("width and height must be positive")
	}
	v, err := s.lookup(id, "resize")
	if err != nil {
		return err
	}
	v.surface.SetSize(sz)
	return nil
}

// ReportCapability records whether the client can host an accelerated
// drawing context. It only affects the next build.
func (s *ViewServer) ReportCapability(id, message string) error {
	v, err := s.lookup(id, "capability")
	if err != nil {
		return err
	}
	if message == "" {
		v.surface.ReportCapability(nil)
	} else {
		v.surface.ReportCapability(errors.New(message))
	}
	return nil
}

// CloseView tears a view down and removes it from the registry.
func (s *ViewServer) CloseView(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return errViewNotFound
	}

	ev := events.ViewClosed{ViewID: id, Reason: reason}
	s.broadcastView(id, EventViewClosed, ev)
	v.explorer.Close()
	s.Presence.Forget(id)
	s.logger.Info("view closed", "view_id", id, "reason", reason)
	s.publish(ctx, events.TopicViewClosed, ev)
	return nil
}

// Views lists mounted views ordered by id.
func (s *ViewServer) Views() []ViewInfo {
	s.mu.RLock()
	vs := make([]*view, 0, len(s.views))
	for _, v := range s.views {
		vs = append(vs, v)
	}
	s.mu.RUnlock()

	out := make([]ViewInfo, 0, len(vs))
	for _, v := range vs {
		snap := v.explorer.Snapshot()
		out = append(out, ViewInfo{
			ID:        v.id,
			CreatedAt: v.created,
			Loaded:    snap.Loaded,
			NodeCount: len(snap.Graph.Nodes),
			EdgeCount: len(snap.Graph.Edges),
			Revision:  snap.Revision,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StartReaper closes views left untouched for idle. A zero idle disables it.
func (s *ViewServer) StartReaper(idle time.Duration) {
	if idle <= 0 {
		return
	}
	s.Presence.StartReaper(&presence.ReaperConfig{
		IdleThreshold: idle,
		Logger:        s.logger,
		OnIdle: func(id string) {
			_ = s.CloseView(s.ctx, id, ReasonIdle)
		},
	})
}

// Shutdown closes every view and stops the reaper.
func (s *ViewServer) Shutdown(ctx context.Context) {
	s.Presence.Stop()
	s.mu.RLock()
	ids := make([]string, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.CloseView(ctx, id, ReasonShutdown)
	}
	s.cancel()
}

// onSnapshot forwards a view change to stream clients and the event bus.
// It runs without view locks held and must not call back into the view.
func (s *ViewServer) onSnapshot(ctx context.Context, id string, snap explorer.Snapshot) {
	s.broadcastView(id, EventViewState, snap)

	if snap.FirstError {
		ev := events.RenderError{ViewID: id, Kind: string(snap.ErrorKind), Message: snap.RenderError}
		s.broadcastView(id, EventRenderError, ev)
		s.publish(ctx, events.TopicRenderError, ev)
	}

	switch snap.Cause {
	case explorer.CauseSelect, explorer.CauseReset:
		s.publish(ctx, events.TopicFocusChanged, events.FocusChanged{
			ViewID: id,
			Focus:  snap.State.Focus,
			Hover:  snap.State.HoveredNodeID,
		})
	}
}

// publish sends an event to the bus. Failures are logged and never block the
// caller.
func (s *ViewServer) publish(ctx context.Context, topic string, event any) {
	if ctx == nil || ctx.Err() != nil {
		ctx = s.ctx
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// broadcastView fans a view event out to SSE clients.
func (s *ViewServer) broadcastView(id, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", "view_id", id, "event", name, "error", err)
		return
	}
	s.sseHub.broadcast(viewTopic(id, name), name, data)
}

// Package stream is the browser rendering backend. The browser draws; this
// side publishes the records to draw over the view's event stream and
// receives pointer events and size changes back from the client.
package stream

import (
	"errors"
	"sync"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
)

// Event names published to a Sink.
const (
	EventFrame   = "render.frame"
	EventFit     = "render.fit"
	EventDestroy = "render.destroy"
	EventClear   = "render.clear"
)

// ErrSurface is returned when the module is asked to draw on a surface it
// does not own.
var ErrSurface = errors.New("stream: unsupported surface")

// Sink receives renderer output, typically the view's SSE topic.
type Sink interface {
	Publish(event string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any)

func (f SinkFunc) Publish(event string, payload any) { f(event, payload) }

// Surface is a render.Surface backed by a remote browser canvas.
type Surface struct {
	render.Listeners

	sink Sink

	mu         sync.Mutex
	size       render.Size
	capability error
	instances  uint64
}

// NewSurface returns a surface publishing to sink.
func NewSurface(sink Sink) *Surface {
	return &Surface{sink: sink}
}

func (s *Surface) Ready() bool { return s.sink != nil }

// Probe returns the capability failure last reported by the client.
func (s *Surface) Probe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capability
}

// ReportCapability records whether the client could create an accelerated
// drawing context. It only affects mounts that have not probed yet.
func (s *Surface) ReportCapability(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capability = err
}

func (s *Surface) Clear() { s.sink.Publish(EventClear, struct{}{}) }

// Size returns the last size reported by the client.
func (s *Surface) Size() render.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// SetSize records a client-reported size and notifies resize observers when
// it changed.
func (s *Surface) SetSize(sz render.Size) {
	s.mu.Lock()
	changed := sz != s.size
	s.size = sz
	s.mu.Unlock()
	if changed {
		s.NotifyResize(sz)
	}
}

func (s *Surface) nextInstance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances++
	return s.instances
}

// Frame is the payload of EventFrame.
type Frame struct {
	Instance      uint64             `json:"instance"`
	Width         int                `json:"width,omitempty"`
	Height        int                `json:"height,omitempty"`
	Nodes         []focus.NodeRecord `json:"nodes"`
	Relationships []focus.RelRecord  `json:"relationships"`
}

// Marker is the payload of EventFit and EventDestroy.
type Marker struct {
	Instance uint64 `json:"instance"`
}

// Module constructs stream renderers.
type Module struct{}

// New implements render.Module. The initial frame is published immediately.
func (Module) New(s render.Surface, nodes []focus.NodeRecord, rels []focus.RelRecord) (render.Renderer, error) {
	ss, ok := s.(*Surface)
	if !ok {
		return nil, ErrSurface
	}
	r := &Renderer{surface: ss, instance: ss.nextInstance()}
	r.set(nodes, rels)
	r.publishFrame()
	return r, nil
}

// Renderer mirrors the records the browser currently draws. It implements
// every optional render capability.
type Renderer struct {
	surface  *Surface
	instance uint64

	mu        sync.Mutex
	nodes     []focus.NodeRecord
	rels      []focus.RelRecord
	nodeIDs   map[string]struct{}
	relIDs    map[string]struct{}
	size      render.Size
	destroyed bool
}

func (r *Renderer) set(nodes []focus.NodeRecord, rels []focus.RelRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes, r.rels = nodes, rels
	r.nodeIDs = make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		r.nodeIDs[n.ID] = struct{}{}
	}
	r.relIDs = make(map[string]struct{}, len(rels))
	for _, rel := range rels {
		r.relIDs[rel.ID] = struct{}{}
	}
	r.size = r.surface.Size()
}

func (r *Renderer) publishFrame() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	f := Frame{
		Instance:      r.instance,
		Width:         r.size.Width,
		Height:        r.size.Height,
		Nodes:         r.nodes,
		Relationships: r.rels,
	}
	r.mu.Unlock()
	r.surface.sink.Publish(EventFrame, f)
}

// Instance identifies this renderer among those built on its surface.
func (r *Renderer) Instance() uint64 { return r.instance }

// Resize adopts the surface size; the following fit carries it to the client.
func (r *Renderer) Resize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.size = r.surface.Size()
	return nil
}

func (r *Renderer) FitView() error {
	r.mu.Lock()
	destroyed := r.destroyed
	r.mu.Unlock()
	if destroyed {
		return errors.New("stream: renderer destroyed")
	}
	r.surface.sink.Publish(EventFit, Marker{Instance: r.instance})
	return nil
}

func (r *Renderer) Update(nodes []focus.NodeRecord, rels []focus.RelRecord) error {
	r.set(nodes, rels)
	r.publishFrame()
	return nil
}

func (r *Renderer) Destroy() error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	r.destroyed = true
	r.mu.Unlock()
	r.surface.sink.Publish(EventDestroy, Marker{Instance: r.instance})
	return nil
}

// GetHits resolves the browser-side target ids of evt against the records
// this renderer published. Ids the renderer does not know are not hits.
func (r *Renderer) GetHits(evt render.PointerEvent, kinds []render.TargetKind) render.Hits {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hits render.Hits
	for _, k := range kinds {
		switch k {
		case render.TargetNode:
			if _, ok := r.nodeIDs[evt.NodeID]; ok && evt.NodeID != "" {
				hits.NVLTargets.Nodes = append(hits.NVLTargets.Nodes, render.Target{ID: evt.NodeID})
			}
		case render.TargetRelationship:
			if _, ok := r.relIDs[evt.RelationshipID]; ok && evt.RelationshipID != "" {
				hits.NVLTargets.Relationships = append(hits.NVLTargets.Relationships, render.Target{ID: evt.RelationshipID})
			}
		}
	}
	return hits
}

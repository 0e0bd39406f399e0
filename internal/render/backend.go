// Package render owns the external rendering backend of a mounted graph view:
// capability probing, construction, hit-test wiring, resize reconciliation
// and teardown.
//
// Backends are pluggable. A Module constructs a Renderer against a Surface;
// every renderer capability beyond construction (resize, fit, hit-testing,
// in-place update, destroy) is optional and detected by type assertion, so a
// minimal backend degrades to a static drawing.
package render

import (
	"context"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
)

// EventKind is a pointer event delivered by a Surface.
type EventKind string

const (
	EventClick        EventKind = "click"
	EventPointerMove  EventKind = "move"
	EventPointerLeave EventKind = "leave"
)

// PointerEvent is a pointer interaction on the display surface. Surfaces
// whose client resolves targets itself (a browser canvas) fill NodeID or
// RelationshipID; others only carry coordinates.
type PointerEvent struct {
	Kind           EventKind `json:"kind"`
	X              float64   `json:"x,omitempty"`
	Y              float64   `json:"y,omitempty"`
	NodeID         string    `json:"node_id,omitempty"`
	RelationshipID string    `json:"relationship_id,omitempty"`
}

// Size is the dimension of a display surface in backend units.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Surface is the display surface a renderer draws on. Only the Manager
// touches it.
type Surface interface {
	// Ready reports whether the surface can be drawn on yet.
	Ready() bool
	// Probe requests a throwaway accelerated drawing context. A non-nil
	// error means the surface can never host a renderer.
	Probe() error
	// Clear removes whatever a previous renderer left on the surface.
	Clear()
	// Listen registers fn for events of kind and returns its remover.
	Listen(kind EventKind, fn func(PointerEvent)) (remove func())
	// OnResize registers fn for size changes and returns a stop function.
	OnResize(fn func(Size)) (stop func())
}

// Loader acquires a rendering module. It is the only asynchronous step of a
// render cycle.
type Loader interface {
	Load(ctx context.Context) (Module, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Module, error)

func (f LoaderFunc) Load(ctx context.Context) (Module, error) { return f(ctx) }

// Static returns a Loader that resolves to mod immediately.
func Static(mod Module) Loader {
	return LoaderFunc(func(context.Context) (Module, error) { return mod, nil })
}

// Module constructs renderers.
type Module interface {
	New(s Surface, nodes []focus.NodeRecord, rels []focus.RelRecord) (Renderer, error)
}

// Renderer is a live backend instance. See the optional capability
// interfaces below.
type Renderer any

// Resizer is implemented by renderers that track the surface size.
type Resizer interface {
	Resize() error
}

// Fitter is implemented by renderers that can frame the whole graph.
type Fitter interface {
	FitView() error
}

// Destroyer is implemented by renderers holding resources beyond the
// surface listeners the Manager attaches.
type Destroyer interface {
	Destroy() error
}

// Updater is implemented by renderers that can restyle in place without a
// rebuild. The Manager uses it for hover changes.
type Updater interface {
	Update(nodes []focus.NodeRecord, rels []focus.RelRecord) error
}

// TargetKind selects what GetHits resolves.
type TargetKind string

const (
	TargetNode         TargetKind = "node"
	TargetRelationship TargetKind = "relationship"
)

// Target is a single hit.
type Target struct {
	ID string `json:"id"`
}

// Targets groups hits by kind, nearest first.
type Targets struct {
	Nodes         []Target `json:"nodes"`
	Relationships []Target `json:"relationships"`
}

// Hits is the result of a hit test.
type Hits struct {
	NVLTargets Targets `json:"nvlTargets"`
}

// HitTester is implemented by renderers that resolve pointer events to
// graph entities.
type HitTester interface {
	GetHits(evt PointerEvent, kinds []TargetKind) Hits
}

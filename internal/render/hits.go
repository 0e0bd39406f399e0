package render

import (
	"github.com/alfredjeanlab/atlasgraph/internal/focus"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// Intents receives selection intents resolved from pointer events.
type Intents interface {
	SelectNodeByID(id string)
	SelectEdgeByKey(key model.EdgeKey)
	Hover(id string)
}

// hitAdapter wires a renderer's hit-testing to the surface. It is only
// attached when the renderer implements HitTester.
type hitAdapter struct {
	tester  HitTester
	surface Surface
	intents Intents
	view    focus.View

	removers []func()
}

func newHitAdapter(r Renderer, s Surface, intents Intents, view focus.View) *hitAdapter {
	a := &hitAdapter{surface: s, intents: intents, view: view}
	a.tester, _ = r.(HitTester)
	return a
}

func (a *hitAdapter) SupportsHitTesting() bool {
	return a.tester != nil && a.intents != nil
}

// Attach registers the click, move and leave handlers. It is a no-op when
// hit-testing is unsupported.
func (a *hitAdapter) Attach() {
	if !a.SupportsHitTesting() {
		return
	}
	a.removers = append(a.removers,
		a.surface.Listen(EventClick, a.onClick),
		a.surface.Listen(EventPointerMove, a.onMove),
		a.surface.Listen(EventPointerLeave, a.onLeave),
	)
}

// Detach removes every handler Attach registered.
func (a *hitAdapter) Detach() {
	for _, remove := range a.removers {
		if remove != nil {
			remove()
		}
	}
	a.removers = nil
}

// onClick prefers a relationship hit over a node hit.
func (a *hitAdapter) onClick(evt PointerEvent) {
	hits := a.tester.GetHits(evt, []TargetKind{TargetNode, TargetRelationship})

	if rels := hits.NVLTargets.Relationships; len(rels) > 0 && rels[0].ID != "" {
		for _, r := range a.view.Relationships {
			if r.ID == rels[0].ID {
				a.intents.SelectEdgeByKey(model.EdgeKey{Source: r.From, Target: r.To, Type: r.Type})
				return
			}
		}
	}
	if nodes := hits.NVLTargets.Nodes; len(nodes) > 0 && nodes[0].ID != "" {
		a.intents.SelectNodeByID(nodes[0].ID)
	}
}

// onMove and onLeave only drive hover while the view had no focus; focus and
// hover are mutually exclusive highlight sources.
func (a *hitAdapter) onMove(evt PointerEvent) {
	if a.view.Focus.Active() {
		return
	}
	hits := a.tester.GetHits(evt, []TargetKind{TargetNode})
	id := ""
	if nodes := hits.NVLTargets.Nodes; len(nodes) > 0 {
		id = nodes[0].ID
	}
	a.intents.Hover(id)
}

func (a *hitAdapter) onLeave(PointerEvent) {
	if a.view.Focus.Active() {
		return
	}
	a.intents.Hover("")
}

// Package focus tracks the current selection over a canonical graph and
// derives the view state (connected set, focused subgraph, per-entity visual
// attributes) from it.
package focus

import "github.com/alfredjeanlab/atlasgraph/internal/model"

// State is a snapshot of the selection fields.
type State struct {
	SelectedNode  *model.GraphNode   `json:"selected_node,omitempty"`
	SelectedEdge  *model.GraphEdge   `json:"selected_edge,omitempty"`
	Focus         model.FocusContext `json:"focus"`
	HoveredNodeID string             `json:"hovered_node_id,omitempty"`
}

// Machine is the selection state machine for one mounted view. It is not
// safe for concurrent use; callers serialize access.
type Machine struct {
	graph model.Graph
	state State
}

// NewMachine returns a machine over an empty graph.
func NewMachine() *Machine {
	return &Machine{graph: model.EmptyGraph()}
}

// Graph returns the current canonical graph.
func (m *Machine) Graph() model.Graph { return m.graph }

// Snapshot returns a copy of the selection state.
func (m *Machine) Snapshot() State { return m.state }

// SetGraph replaces the canonical graph. A selection whose node or focused
// edge no longer exists is cleared so focus never references a dangling id.
// It reports whether the selection was reset.
func (m *Machine) SetGraph(g model.Graph) bool {
	if g.Nodes == nil {
		g.Nodes = []model.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []model.GraphEdge{}
	}
	m.graph = g

	if !m.dangling() {
		return false
	}
	m.state.SelectedNode = nil
	m.state.SelectedEdge = nil
	m.state.Focus = model.NoFocus()
	return true
}

// dangling reports whether the selection refers to something the current
// graph lacks.
func (m *Machine) dangling() bool {
	if sel := m.state.SelectedNode; sel != nil && !m.graph.HasNode(sel.ID) {
		return true
	}
	if f := m.state.Focus; f.Kind == model.FocusEdge && f.Edge != nil {
		_, ok := m.graph.EdgeByKey(f.Edge.Key())
		return !ok
	}
	return false
}

// SelectNodeByID focuses the node with the given id. Unknown ids are a no-op.
func (m *Machine) SelectNodeByID(id string) bool {
	if id == "" {
		return false
	}
	n, ok := m.graph.Node(id)
	if !ok {
		return false
	}
	m.state.SelectedNode = n
	m.state.Focus = model.NodeFocus(*n)
	m.state.SelectedEdge = nil
	return true
}

// SelectEdge focuses e. The selected node becomes e's target endpoint, or
// nil when the target is not in the graph.
func (m *Machine) SelectEdge(e *model.GraphEdge) bool {
	if e == nil {
		return false
	}
	edge := *e
	m.state.SelectedEdge = &edge
	m.state.Focus = model.EdgeFocus(edge)
	m.state.SelectedNode, _ = m.graph.Node(edge.Target)
	return true
}

// SelectEdgeByKey resolves a relationship identity to the first matching edge
// and focuses it.
func (m *Machine) SelectEdgeByKey(key model.EdgeKey) bool {
	e, ok := m.graph.EdgeByKey(key)
	if !ok {
		return false
	}
	return m.SelectEdge(e)
}

// ResetView clears selection, focus and hover.
func (m *Machine) ResetView() {
	m.state = State{}
}

// SetHover records the hovered node. Hover only applies while no focus is
// active; it reports whether the hovered id changed.
func (m *Machine) SetHover(id string) bool {
	if m.state.Focus.Active() {
		return false
	}
	if m.state.HoveredNodeID == id {
		return false
	}
	m.state.HoveredNodeID = id
	return true
}

// ClearHover is SetHover("").
func (m *Machine) ClearHover() bool { return m.SetHover("") }

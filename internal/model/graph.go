package model

import "strings"

// GraphNode is a single node of a canonical graph. Nodes are immutable
// snapshots: a new payload replaces the whole graph.
type GraphNode struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Label string         `json:"label"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// GraphEdge is a directed relationship between two nodes.
type GraphEdge struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   string         `json:"type"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// EdgeKey is the (source, target, type) identity of an edge. It is not
// enforced unique; duplicate edges share a key and render separately.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Key returns the identity triple of e.
func (e GraphEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// Touches reports whether id is either endpoint of e.
func (e GraphEdge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// String renders the key as the relationship record id "source-target-type".
func (k EdgeKey) String() string {
	return k.Source + "-" + k.Target + "-" + k.Type
}

// ParseEdgeKey splits a "source,target,type" triple as typed on the command line.
func ParseEdgeKey(s string) (EdgeKey, bool) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return EdgeKey{}, false
	}
	return EdgeKey{Source: parts[0], Target: parts[1], Type: parts[2]}, true
}

// Graph is the canonical {nodes, edges} value. Normalized graphs never carry
// nil slices.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EmptyGraph returns a graph with empty, non-nil slices.
func EmptyGraph() Graph {
	return Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// Node returns the first node with the given id.
func (g Graph) Node(id string) (*GraphNode, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			n := g.Nodes[i]
			return &n, true
		}
	}
	return nil, false
}

// HasNode reports whether a node with the given id exists.
func (g Graph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// EdgeByKey returns the first edge with the given identity.
func (g Graph) EdgeByKey(key EdgeKey) (*GraphEdge, bool) {
	for i := range g.Edges {
		if g.Edges[i].Key() == key {
			e := g.Edges[i]
			return &e, true
		}
	}
	return nil, false
}

// Incoming returns the edges whose target is id, in canonical order.
func (g Graph) Incoming(id string) []GraphEdge {
	var out []GraphEdge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges whose source is id, in canonical order.
func (g Graph) Outgoing(id string) []GraphEdge {
	var out []GraphEdge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

package model

// FocusKind tags the active variant of a FocusContext.
type FocusKind string

const (
	FocusNone FocusKind = ""
	FocusNode FocusKind = "node"
	FocusEdge FocusKind = "edge"
)

// FocusContext is the single active selection driving highlighting and
// subgraph narrowing. At most one of Node and Edge is set, matching Kind.
type FocusContext struct {
	Kind FocusKind  `json:"type,omitempty"`
	Node *GraphNode `json:"node,omitempty"`
	Edge *GraphEdge `json:"edge,omitempty"`
}

func NoFocus() FocusContext { return FocusContext{} }

func NodeFocus(n GraphNode) FocusContext {
	return FocusContext{Kind: FocusNode, Node: &n}
}

func EdgeFocus(e GraphEdge) FocusContext {
	return FocusContext{Kind: FocusEdge, Edge: &e}
}

// Active reports whether any focus is set.
func (f FocusContext) Active() bool { return f.Kind != FocusNone }

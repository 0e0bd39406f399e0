package focus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
)

// IDSet is a set of node ids.
type IDSet map[string]struct{}

func newIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set contains nothing.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NodeRecord is a node as handed to a rendering backend.
type NodeRecord struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Caption    string         `json:"caption"`
	Color      string         `json:"color"`
	Size       float64        `json:"size"`
	Opacity    float64        `json:"opacity"`
	Properties map[string]any `json:"properties"`

	Selected  bool `json:"selected,omitempty"`
	Hovered   bool `json:"hovered,omitempty"`
	Connected bool `json:"connected,omitempty"`
	Dimmed    bool `json:"dimmed,omitempty"`
}

// RelRecord is a relationship as handed to a rendering backend.
type RelRecord struct {
	ID         string         `json:"id"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Color      string         `json:"color"`
	Width      float64        `json:"width"`
	Opacity    float64        `json:"opacity"`
	Properties map[string]any `json:"properties"`

	Selected  bool `json:"selected,omitempty"`
	Connected bool `json:"connected,omitempty"`
	Dimmed    bool `json:"dimmed,omitempty"`
}

// View is the derived, render-ready state of a graph under a focus.
type View struct {
	Focus         model.FocusContext `json:"focus"`
	ConnectedIDs  IDSet              `json:"-"`
	Focused       model.Graph        `json:"focused"`
	Nodes         []NodeRecord       `json:"nodes"`
	Relationships []RelRecord        `json:"relationships"`

	selectedNodeID string
	selectedEdgeID string
}

// Connected returns the connected ids in lexical order, or nil without focus.
func (v View) Connected() []string {
	if v.ConnectedIDs == nil {
		return nil
	}
	return v.ConnectedIDs.Sorted()
}

// Key identifies everything that requires a renderer rebuild: the graph
// revision, the focus and the selection identities. Hover is excluded.
func (v View) Key(revision uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|", revision, v.Focus.Kind)
	switch v.Focus.Kind {
	case model.FocusNode:
		b.WriteString(v.Focus.Node.ID)
	case model.FocusEdge:
		b.WriteString(v.Focus.Edge.Key().String())
	}
	fmt.Fprintf(&b, "|%s|%s", v.selectedNodeID, v.selectedEdgeID)
	return b.String()
}

// ConnectedIDs returns the neighbourhood of the focus: the focused node plus
// every endpoint of an edge touching it, or the two endpoints of a focused
// edge. It returns nil when nothing is focused.
func ConnectedIDs(edges []model.GraphEdge, f model.FocusContext) IDSet {
	switch f.Kind {
	case model.FocusNode:
		center := f.Node.ID
		set := newIDSet(center)
		for _, e := range edges {
			if e.Touches(center) {
				set[e.Source] = struct{}{}
				set[e.Target] = struct{}{}
			}
		}
		return set
	case model.FocusEdge:
		return newIDSet(f.Edge.Source, f.Edge.Target)
	default:
		return nil
	}
}

// FocusedGraph narrows g to the subgraph a focus shows.
func FocusedGraph(g model.Graph, f model.FocusContext, connected IDSet) model.Graph {
	switch f.Kind {
	case model.FocusEdge:
		key := f.Edge.Key()
		ends := newIDSet(key.Source, key.Target)
		out := model.EmptyGraph()
		for _, n := range g.Nodes {
			if ends.Has(n.ID) {
				out.Nodes = append(out.Nodes, n)
			}
		}
		for _, e := range g.Edges {
			if e.Key() == key {
				out.Edges = append(out.Edges, e)
			}
		}
		return out
	case model.FocusNode:
		if connected == nil {
			connected = newIDSet(f.Node.ID)
		}
		out := model.EmptyGraph()
		for _, n := range g.Nodes {
			if connected.Has(n.ID) {
				out.Nodes = append(out.Nodes, n)
			}
		}
		for _, e := range g.Edges {
			if connected.Has(e.Source) && connected.Has(e.Target) {
				out.Edges = append(out.Edges, e)
			}
		}
		return out
	default:
		return g
	}
}

// Derive computes the view of g under st. It is a pure function.
func Derive(g model.Graph, st State, palette *style.Palette) View {
	connected := ConnectedIDs(g.Edges, st.Focus)
	focused := FocusedGraph(g, st.Focus, connected)

	v := View{
		Focus:         st.Focus,
		ConnectedIDs:  connected,
		Focused:       focused,
		Nodes:         make([]NodeRecord, 0, len(focused.Nodes)),
		Relationships: make([]RelRecord, 0, len(focused.Edges)),
	}

	// Under edge focus the source endpoint is drawn as the selected node.
	switch {
	case st.Focus.Kind == model.FocusNode:
		v.selectedNodeID = st.Focus.Node.ID
	case st.Focus.Kind == model.FocusEdge:
		v.selectedNodeID = st.Focus.Edge.Source
	case st.SelectedNode != nil:
		v.selectedNodeID = st.SelectedNode.ID
	}
	switch {
	case st.Focus.Kind == model.FocusEdge:
		v.selectedEdgeID = st.Focus.Edge.Key().String()
	case st.SelectedEdge != nil:
		v.selectedEdgeID = st.SelectedEdge.Key().String()
	}

	hovered := ""
	if !st.Focus.Active() {
		hovered = st.HoveredNodeID
	}

	for _, n := range focused.Nodes {
		v.Nodes = append(v.Nodes, nodeRecord(n, v.selectedNodeID, hovered, connected, palette))
	}
	for _, e := range focused.Edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		v.Relationships = append(v.Relationships, relRecord(e, v.selectedEdgeID, connected))
	}
	return v
}

func nodeRecord(n model.GraphNode, selectedID, hoveredID string, connected IDSet, p *style.Palette) NodeRecord {
	r := NodeRecord{
		ID:         n.ID,
		Labels:     []string{n.Type},
		Caption:    style.Caption(n),
		Color:      p.Color(n.Type),
		Size:       style.NodeRadius,
		Opacity:    1,
		Properties: properties(n.Meta),
		Selected:   selectedID != "" && n.ID == selectedID,
		Hovered:    hoveredID != "" && n.ID == hoveredID,
		Connected:  connected.Has(n.ID),
	}
	r.Dimmed = connected != nil && !r.Connected

	switch {
	case r.Selected:
		r.Size = style.NodeSelectedRadius
	case r.Hovered, r.Connected:
		r.Size = style.NodeHoverRadius
	}
	if r.Dimmed {
		r.Color = style.NodeDimColor
		r.Opacity = style.NodeDimOpacity
	}
	return r
}

func relRecord(e model.GraphEdge, selectedID string, connected IDSet) RelRecord {
	id := e.Key().String()
	r := RelRecord{
		ID:         id,
		From:       e.Source,
		To:         e.Target,
		Type:       e.Type,
		Color:      style.EdgeColor,
		Width:      style.EdgeWidth,
		Opacity:    1,
		Properties: properties(e.Meta),
		Selected:   selectedID != "" && id == selectedID,
		Connected:  connected != nil && connected.Has(e.Source) && connected.Has(e.Target),
	}
	r.Dimmed = connected != nil && !r.Connected

	switch {
	case r.Selected:
		r.Width = style.EdgeSelectedWidth
	case r.Connected:
		r.Width = style.EdgeHoverWidth
	}
	switch {
	case r.Dimmed:
		r.Color = style.EdgeDimColor
		r.Opacity = style.EdgeDimOpacity
	case r.Selected:
		r.Color = style.EdgeSelectedColor
	case r.Connected:
		r.Color = style.EdgeHoverColor
	}
	return r
}

func properties(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

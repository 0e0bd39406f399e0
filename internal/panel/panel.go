// Package panel builds the side-panel readout of a mounted view: the quick
// node picker, the overview of the selected node and the focus card.
package panel

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/alfredjeanlab/atlasgraph/internal/focus"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/style"
)

// DefaultPickerLimit is how many nodes the quick picker lists.
const DefaultPickerLimit = 200

// cardProperties is how many properties the focus card shows.
const cardProperties = 3

// Readout messages.
const (
	MsgLoading     = "Loading graph…"
	MsgEmpty       = "No graph data to display"
	MsgUnavailable = "Graph unavailable"
	MsgNoRelations = "No relationships"
)

// Property is one rendered metadata entry.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EdgeRef is an edge listed in the node overview. Peer is the source for
// incoming edges and the target for outgoing ones.
type EdgeRef struct {
	Type string        `json:"type"`
	Peer string        `json:"peer"`
	Key  model.EdgeKey `json:"key"`
}

// PickerEntry is one row of the quick picker.
type PickerEntry struct {
	ID       string `json:"id"`
	Caption  string `json:"caption"`
	Color    string `json:"color"`
	Selected bool   `json:"selected,omitempty"`
}

// Picker lists the first nodes of the graph in canonical order. Picking an
// entry is the same transition as clicking the node.
type Picker struct {
	Entries   []PickerEntry `json:"entries"`
	Nodes     int           `json:"nodes"`
	Edges     int           `json:"edges"`
	Limit     int           `json:"limit"`
	Truncated bool          `json:"truncated,omitempty"`
}

// Heading returns "Nodes (n) / Edges (m)".
func (p Picker) Heading() string {
	return fmt.Sprintf("Nodes (%d) / Edges (%d)", p.Nodes, p.Edges)
}

// Footer returns the truncation note, or "".
func (p Picker) Footer() string {
	if !p.Truncated {
		return ""
	}
	return fmt.Sprintf("Showing first %d nodes", p.Limit)
}

// NodeDetail is the overview of the selected node.
type NodeDetail struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Type       string     `json:"type"`
	TypeLabel  string     `json:"type_label"`
	Color      string     `json:"color"`
	Properties []Property `json:"properties"`
	Incoming   []EdgeRef  `json:"incoming"`
	Outgoing   []EdgeRef  `json:"outgoing"`
}

// FocusCard summarizes the active focus.
type FocusCard struct {
	Kind model.FocusKind `json:"type"`

	// Node focus.
	Label      string     `json:"label,omitempty"`
	NodeType   string     `json:"node_type,omitempty"`
	Incoming   int        `json:"incoming,omitempty"`
	Outgoing   int        `json:"outgoing,omitempty"`
	Properties []Property `json:"properties,omitempty"`

	// Edge focus.
	Relationship string `json:"relationship,omitempty"`
	Source       string `json:"source,omitempty"`
	Target       string `json:"target,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
}

// Title returns the first line of the card.
func (c FocusCard) Title() string {
	if c.Kind == model.FocusEdge {
		return "Relationship: " + c.Relationship
	}
	return c.Label
}

// Detail is the full panel readout.
type Detail struct {
	Picker   Picker      `json:"picker"`
	Selected *NodeDetail `json:"selected,omitempty"`
	Focus    *FocusCard  `json:"focus,omitempty"`
	Empty    bool        `json:"empty,omitempty"`
	Loading  bool        `json:"loading,omitempty"`
	Notice   string      `json:"notice,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// SetLoading marks the graph as not yet drawn.
func (d *Detail) SetLoading() {
	d.Loading = true
	d.Notice = MsgLoading
}

// SetRenderError replaces the drawing with the unavailable card. The picker
// and overview stay usable.
func (d *Detail) SetRenderError(err error) {
	if err == nil {
		return
	}
	d.Error = err.Error()
	d.Loading = false
	d.Notice = MsgUnavailable
}

// Build assembles the panel for st over g. limit <= 0 uses
// DefaultPickerLimit; a nil palette uses the built-in taxonomy.
func Build(st focus.State, g model.Graph, limit int, p *style.Palette) Detail {
	if limit <= 0 {
		limit = DefaultPickerLimit
	}
	d := Detail{Picker: buildPicker(st, g, limit, p)}
	if len(g.Nodes) == 0 {
		d.Empty = true
		d.Notice = MsgEmpty
	}
	if st.SelectedNode != nil {
		d.Selected = buildNode(*st.SelectedNode, g, p)
	}
	switch st.Focus.Kind {
	case model.FocusNode:
		n := st.Focus.Node
		d.Focus = &FocusCard{
			Kind:       model.FocusNode,
			Label:      style.Caption(*n),
			NodeType:   n.Type,
			Incoming:   len(g.Incoming(n.ID)),
			Outgoing:   len(g.Outgoing(n.ID)),
			Properties: firstProperties(n.Meta, cardProperties),
		}
	case model.FocusEdge:
		e := st.Focus.Edge
		d.Focus = &FocusCard{
			Kind:         model.FocusEdge,
			Relationship: e.Type,
			Source:       e.Source,
			Target:       e.Target,
			Explanation:  Explain(e.Type),
		}
	}
	return d
}

func buildPicker(st focus.State, g model.Graph, limit int, p *style.Palette) Picker {
	n := min(len(g.Nodes), limit)
	pk := Picker{
		Entries:   make([]PickerEntry, 0, n),
		Nodes:     len(g.Nodes),
		Edges:     len(g.Edges),
		Limit:     limit,
		Truncated: len(g.Nodes) > limit,
	}
	for _, node := range g.Nodes[:n] {
		pk.Entries = append(pk.Entries, PickerEntry{
			ID:       node.ID,
			Caption:  style.Caption(node),
			Color:    p.Color(node.Type),
			Selected: st.SelectedNode != nil && st.SelectedNode.ID == node.ID,
		})
	}
	return pk
}

func buildNode(n model.GraphNode, g model.Graph, p *style.Palette) *NodeDetail {
	d := &NodeDetail{
		ID:         n.ID,
		Label:      style.Caption(n),
		Type:       n.Type,
		TypeLabel:  p.TypeLabel(n.Type),
		Color:      p.Color(n.Type),
		Properties: firstProperties(n.Meta, -1),
		Incoming:   []EdgeRef{},
		Outgoing:   []EdgeRef{},
	}
	for _, e := range g.Incoming(n.ID) {
		d.Incoming = append(d.Incoming, EdgeRef{Type: e.Type, Peer: e.Source, Key: e.Key()})
	}
	for _, e := range g.Outgoing(n.ID) {
		d.Outgoing = append(d.Outgoing, EdgeRef{Type: e.Type, Peer: e.Target, Key: e.Key()})
	}
	return d
}

// firstProperties renders up to n metadata entries in key order; n < 0
// renders all of them.
func firstProperties(meta map[string]any, n int) []Property {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	out := make([]Property, 0, len(keys))
	for _, k := range keys {
		out = append(out, Property{Key: k, Value: FormatValue(meta[k])})
	}
	return out
}

// FormatValue renders a metadata value: objects and arrays as JSON, scalars
// as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

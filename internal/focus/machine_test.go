package focus

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

func testGraph() model.Graph {
	return model.Graph{
		Nodes: []model.GraphNode{
			{ID: "a", Type: "EC2", Label: "web-1"},
			{ID: "b", Type: "SG", Label: "sg-web"},
			{ID: "c", Type: "VPC", Label: "main"},
			{ID: "d", Type: "S3Bucket", Label: "logs"},
		},
		Edges: []model.GraphEdge{
			{Source: "a", Target: "b", Type: "MEMBER_OF_EC2_SECURITY_GROUP"},
			{Source: "b", Target: "c", Type: "MEMBER_OF_VPC"},
			{Source: "d", Target: "a", Type: "ATTACHED_TO"},
		},
	}
}

func TestMachine_SelectNodeByID(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SelectEdge(&model.GraphEdge{Source: "a", Target: "b", Type: "MEMBER_OF_EC2_SECURITY_GROUP"})

	if !m.SelectNodeByID("c") {
		t.Fatal("SelectNodeByID(c) = false")
	}
	st := m.Snapshot()
	if st.Focus.Kind != model.FocusNode || st.Focus.Node.ID != "c" {
		t.Errorf("focus = %+v", st.Focus)
	}
	if st.SelectedNode == nil || st.SelectedNode.ID != "c" {
		t.Errorf("selected node = %+v", st.SelectedNode)
	}
	if st.SelectedEdge != nil {
		t.Errorf("selected edge = %+v, want nil", st.SelectedEdge)
	}
}

func TestMachine_SelectNodeByID_Unknown(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SelectNodeByID("a")
	before := m.Snapshot()

	for _, id := range []string{"", "zzz"} {
		if m.SelectNodeByID(id) {
			t.Errorf("SelectNodeByID(%q) = true", id)
		}
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Errorf("state changed on no-op (-before +after):\n%s", diff)
	}
}

func TestMachine_SelectEdge(t *testing.T) {
	for _, tc := range []struct {
		name       string
		edge       model.GraphEdge
		wantNodeID string
	}{
		{"TargetPresent", model.GraphEdge{Source: "a", Target: "b", Type: "MEMBER_OF_EC2_SECURITY_GROUP"}, "b"},
		{"TargetAbsent", model.GraphEdge{Source: "a", Target: "ghost", Type: "X"}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine()
			m.SetGraph(testGraph())
			m.SelectNodeByID("d")

			if !m.SelectEdge(&tc.edge) {
				t.Fatal("SelectEdge = false")
			}
			st := m.Snapshot()
			if st.SelectedEdge == nil || st.SelectedEdge.Key() != tc.edge.Key() {
				t.Errorf("selected edge = %+v, want %+v", st.SelectedEdge, tc.edge)
			}
			if st.Focus.Kind != model.FocusEdge || st.Focus.Edge.Key() != tc.edge.Key() {
				t.Errorf("focus = %+v", st.Focus)
			}
			switch {
			case tc.wantNodeID == "" && st.SelectedNode != nil:
				t.Errorf("selected node = %+v, want nil", st.SelectedNode)
			case tc.wantNodeID != "" && (st.SelectedNode == nil || st.SelectedNode.ID != tc.wantNodeID):
				t.Errorf("selected node = %+v, want %q", st.SelectedNode, tc.wantNodeID)
			}
		})
	}
}

func TestMachine_SelectEdge_Nil(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	if m.SelectEdge(nil) {
		t.Error("SelectEdge(nil) = true")
	}
	if m.Snapshot().Focus.Active() {
		t.Error("focus set by nil edge")
	}
}

func TestMachine_SelectEdgeByKey(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	if m.SelectEdgeByKey(model.EdgeKey{Source: "x", Target: "y", Type: "z"}) {
		t.Error("unknown key selected")
	}
	if !m.SelectEdgeByKey(model.EdgeKey{Source: "b", Target: "c", Type: "MEMBER_OF_VPC"}) {
		t.Fatal("known key not selected")
	}
	if got := m.Snapshot().SelectedNode; got == nil || got.ID != "c" {
		t.Errorf("selected node = %+v", got)
	}
}

func TestMachine_StaleSelectionReset(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SelectNodeByID("a")

	refreshed := testGraph()
	refreshed.Nodes = refreshed.Nodes[1:] // drop "a"
	if !m.SetGraph(refreshed) {
		t.Fatal("SetGraph did not report a reset")
	}
	st := m.Snapshot()
	if st.SelectedNode != nil || st.SelectedEdge != nil || st.Focus.Active() {
		t.Errorf("selection survived refresh: %+v", st)
	}
}

func TestMachine_StaleEdgeFocusReset(t *testing.T) {
	for _, tc := range []struct {
		name      string
		edge      model.GraphEdge
		refreshed func() model.Graph
	}{
		{
			// The target never existed, so no selected node guards the focus.
			name: "DanglingTargetAllGone",
			edge: model.GraphEdge{Source: "a", Target: "ghost", Type: "X"},
			refreshed: func() model.Graph {
				return model.Graph{Nodes: []model.GraphNode{{ID: "z"}}}
			},
		},
		{
			name: "EdgeRemovedEndpointsKept",
			edge: model.GraphEdge{Source: "b", Target: "c", Type: "MEMBER_OF_VPC"},
			refreshed: func() model.Graph {
				g := testGraph()
				g.Edges = g.Edges[:1]
				return g
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine()
			m.SetGraph(testGraph())
			m.SelectEdge(&tc.edge)

			if !m.SetGraph(tc.refreshed()) {
				t.Fatal("SetGraph did not report a reset")
			}
			st := m.Snapshot()
			if st.SelectedNode != nil || st.SelectedEdge != nil || st.Focus.Active() {
				t.Errorf("edge focus survived refresh: %+v", st)
			}
			if v := Derive(m.Graph(), st, nil); v.ConnectedIDs != nil {
				t.Errorf("connected set after reset = %v, want nil", v.ConnectedIDs)
			}
		})
	}
}

func TestMachine_EdgeFocusKeptWhenEdgeSurvives(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SelectEdgeByKey(model.EdgeKey{Source: "d", Target: "a", Type: "ATTACHED_TO"})

	if m.SetGraph(testGraph()) {
		t.Error("SetGraph reset a surviving edge focus")
	}
	if st := m.Snapshot(); st.Focus.Kind != model.FocusEdge {
		t.Errorf("focus = %+v", st.Focus)
	}
}

func TestMachine_SelectionKeptWhenNodeSurvives(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SelectNodeByID("b")

	if m.SetGraph(testGraph()) {
		t.Error("SetGraph reset a surviving selection")
	}
	if st := m.Snapshot(); st.Focus.Kind != model.FocusNode {
		t.Errorf("focus = %+v", st.Focus)
	}
}

func TestMachine_SetGraphNilSlices(t *testing.T) {
	m := NewMachine()
	m.SetGraph(model.Graph{})
	if g := m.Graph(); g.Nodes == nil || g.Edges == nil {
		t.Errorf("graph has nil slices: %+v", g)
	}
}

func TestMachine_ResetView(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())
	m.SetHover("d")
	m.SelectEdgeByKey(model.EdgeKey{Source: "d", Target: "a", Type: "ATTACHED_TO"})
	m.ResetView()
	if diff := cmp.Diff(State{}, m.Snapshot()); diff != "" {
		t.Errorf("state after reset (-want +got):\n%s", diff)
	}
}

func TestMachine_HoverOnlyWithoutFocus(t *testing.T) {
	m := NewMachine()
	m.SetGraph(testGraph())

	if !m.SetHover("a") {
		t.Fatal("SetHover(a) = false")
	}
	if m.SetHover("a") {
		t.Error("repeated SetHover reported a change")
	}
	m.SelectNodeByID("b")
	if m.SetHover("c") {
		t.Error("hover changed while focused")
	}
	if m.ClearHover() {
		t.Error("hover cleared while focused")
	}
	m.ResetView()
	if !m.SetHover("c") || m.Snapshot().HoveredNodeID != "c" {
		t.Error("hover not applied after reset")
	}
	if !m.ClearHover() || m.Snapshot().HoveredNodeID != "" {
		t.Error("ClearHover failed")
	}
}

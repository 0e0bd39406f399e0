package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// Result is the output of Normalize. Summary is nil when the payload carries
// none.
type Result struct {
	Summary *string     `json:"summary,omitempty"`
	Shape   Shape       `json:"shape"`
	Graph   model.Graph `json:"graph"`
}

// Normalize maps any accepted payload shape to a canonical graph. It never
// panics and the returned graph never holds nil slices or null edges.
func Normalize(input any) Result {
	shape := Detect(input)
	res := Result{Shape: shape, Graph: model.EmptyGraph()}

	obj, _ := input.(map[string]any)
	switch shape {
	case ShapeCanonical:
		res.Graph = graphFrom(obj)
		return res
	case ShapeWrapped, ShapeLoose:
		if data, ok := obj["data"].(map[string]any); ok {
			res.Graph = graphFrom(data)
		}
	case ShapeCollection:
		res.Graph = graphFrom(obj["data"].([]any)[0].(map[string]any))
	default:
		return res
	}
	if s, ok := obj["summary"].(string); ok {
		res.Summary = &s
	}
	return res
}

// NormalizeJSON decodes data and normalizes it. Invalid JSON degrades to an
// empty graph like any other unrecognized payload.
func NormalizeJSON(data []byte) Result {
	v, err := Decode(data)
	if err != nil {
		return Normalize(nil)
	}
	return Normalize(v)
}

// Decode parses a JSON document into generic values, keeping numbers exact.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return v, nil
}

// DecodeYAML parses a YAML payload file into the same generic representation
// Decode produces.
func DecodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding yaml payload: %w", err)
	}
	return v, nil
}

func graphFrom(obj map[string]any) model.Graph {
	g := model.EmptyGraph()
	nodes, _ := obj["nodes"].([]any)
	for _, raw := range nodes {
		if n, ok := nodeFrom(raw); ok {
			g.Nodes = append(g.Nodes, n)
		}
	}
	edges, _ := obj["edges"].([]any)
	for _, raw := range edges {
		if e, ok := edgeFrom(raw); ok {
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}

func nodeFrom(raw any) (model.GraphNode, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return model.GraphNode{}, false
	}
	return model.GraphNode{
		ID:    scalar(m["id"]),
		Type:  scalar(m["type"]),
		Label: scalar(m["label"]),
		Meta:  meta(m["meta"]),
	}, true
}

func edgeFrom(raw any) (model.GraphEdge, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return model.GraphEdge{}, false
	}
	return model.GraphEdge{
		Source: scalar(m["source"]),
		Target: scalar(m["target"]),
		Type:   scalar(m["type"]),
		Meta:   meta(m["meta"]),
	}, true
}

// scalar renders string and numeric values as strings; anything else is "".
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	default:
		return ""
	}
}

func meta(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	return m
}

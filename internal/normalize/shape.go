// Package normalize converts the loosely shaped graph payloads produced by the
// assistant into a canonical model.Graph.
package normalize

// Shape is the closed set of payload layouts the normalizer accepts.
type Shape string

const (
	// ShapeCanonical is {nodes, edges}.
	ShapeCanonical Shape = "canonical"
	// ShapeWrapped is {summary?, data: {nodes: [...], edges}}.
	ShapeWrapped Shape = "wrapped"
	// ShapeCollection is {summary?, data: [{nodes, edges}, ...]}; only the
	// first result is used.
	ShapeCollection Shape = "collection"
	// ShapeLoose is {summary?, data: {...}} with optional nodes/edges. An
	// array data that is not a collection is loose too and yields no
	// entities.
	ShapeLoose Shape = "loose"
	// ShapeUnknown is anything else and yields an empty graph.
	ShapeUnknown Shape = "unknown"
)

// Shapes lists every tag in discrimination order.
var Shapes = []Shape{ShapeCanonical, ShapeWrapped, ShapeCollection, ShapeLoose, ShapeUnknown}

// Detect returns the shape of input. The checks run in order and the first
// match wins.
func Detect(input any) Shape {
	obj, ok := input.(map[string]any)
	if !ok {
		return ShapeUnknown
	}
	_, hasNodes := obj["nodes"]
	_, hasEdges := obj["edges"]
	if hasNodes && hasEdges {
		return ShapeCanonical
	}

	switch data := obj["data"].(type) {
	case map[string]any:
		if _, ok := data["nodes"].([]any); ok {
			return ShapeWrapped
		}
		return ShapeLoose
	case []any:
		if len(data) > 0 {
			if _, ok := data[0].(map[string]any); ok {
				return ShapeCollection
			}
		}
		return ShapeLoose
	}
	return ShapeUnknown
}

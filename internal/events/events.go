package events

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// Event topic constants
const (
	TopicFocusChanged = "atlas.focus.changed"
	TopicViewMounted  = "atlas.view.mounted"
	TopicViewClosed   = "atlas.view.closed"
	TopicRenderError  = "atlas.render.error"

	// PayloadSubjectPrefix is followed by the target view id.
	PayloadSubjectPrefix = "atlas.payload."
)

// Event types

type FocusChanged struct {
	ViewID string             `json:"view_id"`
	Focus  model.FocusContext `json:"focus"`
	Hover  string             `json:"hovered_node_id,omitempty"`
}

type ViewMounted struct {
	ViewID string `json:"view_id"`
}

type ViewClosed struct {
	ViewID string `json:"view_id"`
	Reason string `json:"reason,omitempty"` // "deleted", "idle", "shutdown"
}

type RenderError struct {
	ViewID  string `json:"view_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Payload is an inbound graph payload addressed to a view. Content is any
// JSON value the normalizer accepts.
type Payload struct {
	ViewID  string          `json:"view_id"`
	Summary *string         `json:"summary,omitempty"`
	Content json.RawMessage `json:"content"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

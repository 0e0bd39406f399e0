// Package client provides a transport-agnostic interface for the view server
// and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// ViewsClient is the interface the atlas CLI commands use to drive mounted
// views on a server. It is implemented by HTTPClient.
type ViewsClient interface {
	// Views
	CreateView(ctx context.Context, payload json.RawMessage) (*CreateViewResponse, error)
	ListViews(ctx context.Context) ([]ViewInfo, error)
	GetView(ctx context.Context, id string) (*explorer.Snapshot, error)
	DeleteView(ctx context.Context, id string) error

	// Payloads
	LoadPayload(ctx context.Context, id string, payload json.RawMessage) (*LoadResult, error)

	// Focus
	SelectNode(ctx context.Context, id, nodeID string) (bool, error)
	SelectEdge(ctx context.Context, id string, key model.EdgeKey) (bool, error)
	Hover(ctx context.Context, id, nodeID string) (bool, error)
	ResetView(ctx context.Context, id string) error

	// Reference
	Explain(ctx context.Context, relType string) (string, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateViewResponse is returned by CreateView.
type CreateViewResponse struct {
	ID        string `json:"id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// ViewInfo summarizes a mounted view.
type ViewInfo struct {
	ID        string `json:"id"`
	Loaded    bool   `json:"loaded"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Revision  uint64 `json:"revision"`
}

// LoadResult describes a loaded payload.
type LoadResult struct {
	Summary   *string `json:"summary"`
	Shape     string  `json:"shape"`
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
}

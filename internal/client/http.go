package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// HTTPClient implements ViewsClient over the view server's JSON API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout bounds every request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// NewHTTPClient targets baseURL, e.g. "http://localhost:8080". A non-empty
// token is sent as a bearer token.
func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op; the client holds no connections of its own.
func (c *HTTPClient) Close() error { return nil }

func viewPath(id string, action ...string) string {
	p := "/v1/views/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

func (c *HTTPClient) CreateView(ctx context.Context, payload json.RawMessage) (*CreateViewResponse, error) {
	var body any
	if len(payload) > 0 {
		body = payload
	}
	return call[CreateViewResponse](ctx, c, http.MethodPost, "/v1/views", body)
}

func (c *HTTPClient) ListViews(ctx context.Context) ([]ViewInfo, error) {
	resp, err := call[struct {
		Views []ViewInfo `json:"views"`
	}](ctx, c, http.MethodGet, "/v1/views", nil)
	if err != nil {
		return nil, err
	}
	return resp.Views, nil
}

func (c *HTTPClient) GetView(ctx context.Context, id string) (*explorer.Snapshot, error) {
	return call[explorer.Snapshot](ctx, c, http.MethodGet, viewPath(id), nil)
}

func (c *HTTPClient) DeleteView(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, viewPath(id), nil, nil)
}

func (c *HTTPClient) LoadPayload(ctx context.Context, id string, payload json.RawMessage) (*LoadResult, error) {
	return call[LoadResult](ctx, c, http.MethodPut, viewPath(id, "payload"), payload)
}

func (c *HTTPClient) SelectNode(ctx context.Context, id, nodeID string) (bool, error) {
	return c.focusAction(ctx, viewPath(id, "select"), map[string]string{"node_id": nodeID})
}

func (c *HTTPClient) SelectEdge(ctx context.Context, id string, key model.EdgeKey) (bool, error) {
	return c.focusAction(ctx, viewPath(id, "select"), map[string]model.EdgeKey{"edge": key})
}

func (c *HTTPClient) Hover(ctx context.Context, id, nodeID string) (bool, error) {
	return c.focusAction(ctx, viewPath(id, "hover"), map[string]string{"node_id": nodeID})
}

func (c *HTTPClient) ResetView(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, viewPath(id, "reset"), nil, nil)
}

// focusAction posts a focus change and reports whether the view changed.
func (c *HTTPClient) focusAction(ctx context.Context, path string, body any) (bool, error) {
	resp, err := call[struct {
		Changed bool `json:"changed"`
	}](ctx, c, http.MethodPost, path, body)
	if err != nil {
		return false, err
	}
	return resp.Changed, nil
}

func (c *HTTPClient) Explain(ctx context.Context, relType string) (string, error) {
	resp, err := call[struct {
		Explanation string `json:"explanation"`
	}](ctx, c, http.MethodGet, "/v1/explain/"+url.PathEscape(relType), nil)
	if err != nil {
		return "", err
	}
	return resp.Explanation, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	resp, err := call[struct {
		Status string `json:"status"`
	}](ctx, c, http.MethodGet, "/v1/health", nil)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the server did not know the view.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// call performs a request and decodes the response into a new T.
func call[T any](ctx context.Context, c *HTTPClient, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON when non-nil and decodes a JSON response into out
// when non-nil. 204 responses decode nothing.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// apiError prefers the server's {"error": ...} message over the raw body.
func apiError(status int, data []byte) *APIError {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return &APIError{StatusCode: status, Message: e.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}
}

var _ ViewsClient = (*HTTPClient)(nil)

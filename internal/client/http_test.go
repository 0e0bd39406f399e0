package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string // URL-encoded path (for testing PathEscape)
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, "")
	return c, srv
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("request body is not JSON: %v (%q)", err, body)
	}
	return m
}

// --- CreateView ---

func TestHTTPClient_CreateView(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id": "av-abc", "node_count": 3, "edge_count": 2}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	payload := json.RawMessage(`{"nodes":[{"id":"a"}],"edges":[]}`)
	resp, err := c.CreateView(context.Background(), payload)
	if err != nil {
		t.Fatalf("CreateView() error = %v", err)
	}

	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.path != "/v1/views" {
		t.Errorf("path = %q, want /v1/views", h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", h.contentType)
	}
	body := decodeBody(t, h.body)
	if _, ok := body["nodes"]; !ok {
		t.Errorf("body = %s, want payload passed through", h.body)
	}

	if resp.ID != "av-abc" || resp.NodeCount != 3 || resp.EdgeCount != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPClient_CreateView_Empty(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id": "av-abc", "node_count": 0, "edge_count": 0}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.CreateView(context.Background(), nil); err != nil {
		t.Fatalf("CreateView() error = %v", err)
	}
	if h.body != "" {
		t.Errorf("body = %q, want empty", h.body)
	}
	if h.contentType != "" {
		t.Errorf("content-type = %q, want none", h.contentType)
	}
}

// --- ListViews ---

func TestHTTPClient_ListViews(t *testing.T) {
	h := &testHandler{
		responseBody: `{"views": [
			{"id": "av-1", "loaded": true, "node_count": 4, "edge_count": 1, "revision": 2},
			{"id": "av-2", "loaded": false}
		], "total": 2}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	views, err := c.ListViews(context.Background())
	if err != nil {
		t.Fatalf("ListViews() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/views" {
		t.Errorf("request = %s %s, want GET /v1/views", h.method, h.path)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if views[0].ID != "av-1" || !views[0].Loaded || views[0].NodeCount != 4 || views[0].Revision != 2 {
		t.Errorf("views[0] = %+v", views[0])
	}
	if views[1].Loaded {
		t.Errorf("views[1].Loaded = true, want false")
	}
}

func TestHTTPClient_ListViews_Empty(t *testing.T) {
	h := &testHandler{responseBody: `{"views": [], "total": 0}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	views, err := c.ListViews(context.Background())
	if err != nil {
		t.Fatalf("ListViews() error = %v", err)
	}
	if len(views) != 0 {
		t.Errorf("len(views) = %d, want 0", len(views))
	}
}

// --- GetView ---

func TestHTTPClient_GetView(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"cause": "select",
			"revision": 3,
			"loaded": true,
			"summary": "Two services",
			"shape": "wrapped",
			"graph": {"nodes": [{"id": "a", "type": "Service", "label": "A"}], "edges": []},
			"state": {
				"selected_node": {"id": "a", "type": "Service", "label": "A"},
				"focus": {"type": "node", "node": {"id": "a", "type": "Service", "label": "A"}}
			},
			"connected_ids": ["a"],
			"detail": {"picker": {}}
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	snap, err := c.GetView(context.Background(), "av-1")
	if err != nil {
		t.Fatalf("GetView() error = %v", err)
	}
	if h.path != "/v1/views/av-1" {
		t.Errorf("path = %q, want /v1/views/av-1", h.path)
	}
	if !snap.Loaded || snap.Revision != 3 {
		t.Errorf("snap = loaded %v revision %d", snap.Loaded, snap.Revision)
	}
	if snap.Summary == nil || *snap.Summary != "Two services" {
		t.Errorf("Summary = %v, want Two services", snap.Summary)
	}
	if snap.State.Focus.Kind != model.FocusNode || snap.State.Focus.Node.ID != "a" {
		t.Errorf("Focus = %+v, want node a", snap.State.Focus)
	}
	if len(snap.Graph.Nodes) != 1 {
		t.Errorf("len(Graph.Nodes) = %d, want 1", len(snap.Graph.Nodes))
	}
}

func TestHTTPClient_GetView_URLEscaping(t *testing.T) {
	h := &testHandler{responseBody: `{"loaded": false}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetView(context.Background(), "av/with space")
	if err != nil {
		t.Fatalf("GetView() error = %v", err)
	}
	if h.rawPath != "/v1/views/av%2Fwith%20space" {
		t.Errorf("rawPath = %q, want escaped id", h.rawPath)
	}
}

// --- DeleteView ---

func TestHTTPClient_DeleteView(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.DeleteView(context.Background(), "av-1"); err != nil {
		t.Fatalf("DeleteView() error = %v", err)
	}
	if h.method != http.MethodDelete || h.path != "/v1/views/av-1" {
		t.Errorf("request = %s %s, want DELETE /v1/views/av-1", h.method, h.path)
	}
}

// --- LoadPayload ---

func TestHTTPClient_LoadPayload(t *testing.T) {
	h := &testHandler{
		responseBody: `{"summary": null, "shape": "flat", "node_count": 2, "edge_count": 1}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	payload := json.RawMessage(`{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"}]}`)
	res, err := c.LoadPayload(context.Background(), "av-1", payload)
	if err != nil {
		t.Fatalf("LoadPayload() error = %v", err)
	}
	if h.method != http.MethodPut || h.path != "/v1/views/av-1/payload" {
		t.Errorf("request = %s %s, want PUT /v1/views/av-1/payload", h.method, h.path)
	}
	body := decodeBody(t, h.body)
	if edges, _ := body["edges"].([]any); len(edges) != 1 {
		t.Errorf("body = %s, want payload passed through", h.body)
	}
	if res.Summary != nil {
		t.Errorf("Summary = %q, want nil", *res.Summary)
	}
	if res.Shape != "flat" || res.NodeCount != 2 || res.EdgeCount != 1 {
		t.Errorf("res = %+v", res)
	}
}

// --- Focus ---

func TestHTTPClient_SelectNode(t *testing.T) {
	h := &testHandler{responseBody: `{"changed": true}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	changed, err := c.SelectNode(context.Background(), "av-1", "svc-a")
	if err != nil {
		t.Fatalf("SelectNode() error = %v", err)
	}
	if !changed {
		t.Error("changed = false, want true")
	}
	if h.method != http.MethodPost || h.path != "/v1/views/av-1/select" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	body := decodeBody(t, h.body)
	if body["node_id"] != "svc-a" {
		t.Errorf("node_id = %v, want svc-a", body["node_id"])
	}
}

func TestHTTPClient_SelectEdge(t *testing.T) {
	h := &testHandler{responseBody: `{"changed": false}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	key := model.EdgeKey{Source: "a", Target: "b", Type: "CALLS"}
	changed, err := c.SelectEdge(context.Background(), "av-1", key)
	if err != nil {
		t.Fatalf("SelectEdge() error = %v", err)
	}
	if changed {
		t.Error("changed = true, want false")
	}
	var got struct {
		Edge model.EdgeKey `json:"edge"`
	}
	if err := json.Unmarshal([]byte(h.body), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Edge != key {
		t.Errorf("edge = %+v, want %+v", got.Edge, key)
	}
}

func TestHTTPClient_Hover(t *testing.T) {
	h := &testHandler{responseBody: `{"changed": true}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.Hover(context.Background(), "av-1", "b"); err != nil {
		t.Fatalf("Hover() error = %v", err)
	}
	if h.path != "/v1/views/av-1/hover" {
		t.Errorf("path = %q, want hover route", h.path)
	}
	body := decodeBody(t, h.body)
	if body["node_id"] != "b" {
		t.Errorf("node_id = %v, want b", body["node_id"])
	}
}

func TestHTTPClient_ResetView(t *testing.T) {
	h := &testHandler{responseBody: `{"changed": true}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.ResetView(context.Background(), "av-1"); err != nil {
		t.Fatalf("ResetView() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/views/av-1/reset" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.body != "" {
		t.Errorf("body = %q, want empty", h.body)
	}
}

// --- Explain ---

func TestHTTPClient_Explain(t *testing.T) {
	h := &testHandler{responseBody: `{"type": "DEPENDS_ON", "explanation": "Source requires target."}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	got, err := c.Explain(context.Background(), "DEPENDS_ON")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if h.path != "/v1/explain/DEPENDS_ON" {
		t.Errorf("path = %q", h.path)
	}
	if got != "Source requires target." {
		t.Errorf("Explain() = %q", got)
	}
}

// --- Health ---

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status": "ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.path != "/v1/health" {
		t.Errorf("path = %q, want /v1/health", h.path)
	}
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
}

// --- Auth ---

func TestHTTPClient_BearerToken(t *testing.T) {
	h := &testHandler{responseBody: `{"status": "ok"}`}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "s3cret")
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q, want Bearer s3cret", h.auth)
	}
}

func TestHTTPClient_NoToken(t *testing.T) {
	h := &testHandler{responseBody: `{"status": "ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.auth != "" {
		t.Errorf("Authorization = %q, want none", h.auth)
	}
}

// --- Errors ---

func TestHTTPClient_Errors(t *testing.T) {
	for _, tc := range []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"JSONBody", http.StatusBadRequest, `{"error": "invalid JSON payload"}`, 400, "invalid JSON payload"},
		{"NotFound", http.StatusNotFound, `{"error": "view not found"}`, 404, "view not found"},
		{"EmptyJSONError", http.StatusUnprocessableEntity, `{"error": ""}`, 422, `{"error": ""}`},
		{"NonJSON", http.StatusInternalServerError, "internal server error", 500, "internal server error"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{statusCode: tc.status, responseBody: tc.body}
			c, srv := newTestClient(h)
			defer srv.Close()

			_, err := c.GetView(context.Background(), "av-1")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tc.wantStatus)
			}
			if apiErr.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tc.wantMsg)
			}
			if apiErr.NotFound() != (tc.wantStatus == http.StatusNotFound) {
				t.Errorf("NotFound() = %v for status %d", apiErr.NotFound(), tc.wantStatus)
			}
		})
	}
}

func TestHTTPClient_Error_FormatString(t *testing.T) {
	apiErr := &APIError{StatusCode: 403, Message: "forbidden"}
	want := "HTTP 403: forbidden"
	if apiErr.Error() != want {
		t.Errorf("Error() = %q, want %q", apiErr.Error(), want)
	}
}

func TestHTTPClient_Error_CanceledContext(t *testing.T) {
	h := &testHandler{responseBody: `{"status": "ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Health(ctx)
	if err == nil {
		t.Fatal("expected error for canceled context, got nil")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("error = %q, want to contain 'context canceled'", err.Error())
	}
}

func TestHTTPClient_Error_BadResponse(t *testing.T) {
	h := &testHandler{responseBody: `not json`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.Health(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Errorf("error = %v, want decoding failure", err)
	}
}

// --- Close ---

func TestHTTPClient_Close(t *testing.T) {
	c := NewHTTPClient("http://localhost:9999", "")
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewHTTPClient_TrimsTrailingSlash(t *testing.T) {
	for _, in := range []string{"http://localhost:8080/", "http://localhost:8080"} {
		c := NewHTTPClient(in, "")
		if c.baseURL != "http://localhost:8080" {
			t.Errorf("NewHTTPClient(%q).baseURL = %q", in, c.baseURL)
		}
	}
}

func TestNewHTTPClient_Options(t *testing.T) {
	hc := &http.Client{}
	c := NewHTTPClient("http://localhost:8080", "", WithHTTPClient(hc), WithTimeout(3*time.Second))
	if c.http != hc {
		t.Fatal("WithHTTPClient did not replace the client")
	}
	if hc.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", hc.Timeout)
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(srv.URL, "", WithTimeout(50*time.Millisecond))
	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected a timeout error")
	}
}

// --- Concurrent requests ---

func TestHTTPClient_ConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")

	errs := make(chan error, 10)
	for range 10 {
		go func() {
			_, err := c.Health(context.Background())
			errs <- err
		}()
	}
	for range 10 {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Health() error = %v", err)
		}
	}
	if got := calls.Load(); got != 10 {
		t.Errorf("calls = %d, want 10", got)
	}
}

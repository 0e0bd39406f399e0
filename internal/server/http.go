package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header. Metrics are served from
// gatherer, or the default registry when nil.
func (s *ViewServer) NewHTTPHandler(authToken string, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/views", s.handleCreateView)
	mux.HandleFunc("GET /v1/views", s.handleListViews)
	mux.HandleFunc("GET /v1/views/{id}", s.handleGetView)
	mux.HandleFunc("DELETE /v1/views/{id}", s.handleDeleteView)
	mux.HandleFunc("PUT /v1/views/{id}/payload", s.handleLoadPayload)
	mux.HandleFunc("POST /v1/views/{id}/select", s.handleSelect)
	mux.HandleFunc("POST /v1/views/{id}/hover", s.handleHover)
	mux.HandleFunc("POST /v1/views/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /v1/views/{id}/pointer", s.handlePointer)
	mux.HandleFunc("POST /v1/views/{id}/resize", s.handleResize)
	mux.HandleFunc("POST /v1/views/{id}/capability", s.handleCapability)
	mux.HandleFunc("GET /v1/views/{id}/stream", s.handleViewStream)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/views/roster", s.handleRoster)
	mux.HandleFunc("GET /v1/explain/{type}", s.handleExplain)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return chain(mux,
		RecoveryMiddleware,
		LoggingMiddleware,
		func(h http.Handler) http.Handler { return AuthMiddleware(authToken, h) },
	)
}

// handleHealth handles GET /v1/health.
func (s *ViewServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeViewError maps registry errors to HTTP statuses.
func writeViewError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.Is(err, errViewNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

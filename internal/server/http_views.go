package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/panel"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
)

// maxPayloadBytes bounds a single graph payload.
const maxPayloadBytes = 32 << 20

type selectInput struct {
	NodeID string         `json:"node_id"`
	Edge   *model.EdgeKey `json:"edge"`
}

type hoverInput struct {
	NodeID string `json:"node_id"`
}

type capabilityInput struct {
	Error string `json:"error"`
}

// changeResponse reports whether a transition changed the view.
type changeResponse struct {
	Changed bool `json:"changed"`
}

// handleCreateView handles POST /v1/views. A non-empty body is loaded as the
// initial payload.
func (s *ViewServer) handleCreateView(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	id, err := s.Mount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(body) > 0 {
		if _, err := s.LoadPayload(id, body); err != nil {
			_ = s.CloseView(r.Context(), id, ReasonDeleted)
			writeViewError(w, err)
			return
		}
	}

	snap, err := s.Snapshot(id)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         id,
		"node_count": len(snap.Graph.Nodes),
		"edge_count": len(snap.Graph.Edges),
	})
}

// handleListViews handles GET /v1/views.
func (s *ViewServer) handleListViews(w http.ResponseWriter, _ *http.Request) {
	views := s.Views()
	writeJSON(w, http.StatusOK, map[string]any{
		"views": views,
		"total": len(views),
	})
}

// handleGetView handles GET /v1/views/{id}.
func (s *ViewServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot(r.PathValue("id"))
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleDeleteView handles DELETE /v1/views/{id}.
func (s *ViewServer) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.CloseView(r.Context(), r.PathValue("id"), ReasonDeleted); err != nil {
		writeViewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadPayload handles PUT /v1/views/{id}/payload.
func (s *ViewServer) handleLoadPayload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	res, err := s.LoadPayload(r.PathValue("id"), body)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    res.Summary,
		"shape":      res.Shape,
		"node_count": len(res.Graph.Nodes),
		"edge_count": len(res.Graph.Edges),
	})
}

// handleSelect handles POST /v1/views/{id}/select.
func (s *ViewServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	var in selectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	changed, err := s.Select(r.PathValue("id"), in)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse{Changed: changed})
}

// handleHover handles POST /v1/views/{id}/hover. An empty node_id clears the
// hover.
func (s *ViewServer) handleHover(w http.ResponseWriter, r *http.Request) {
	var in hoverInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	changed, err := s.Hover(r.PathValue("id"), in.NodeID)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse{Changed: changed})
}

// handleReset handles POST /v1/views/{id}/reset.
func (s *ViewServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ResetView(r.PathValue("id")); err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse{Changed: true})
}

// handlePointer handles POST /v1/views/{id}/pointer.
func (s *ViewServer) handlePointer(w http.ResponseWriter, r *http.Request) {
	var evt render.PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	n, err := s.Pointer(r.PathValue("id"), evt)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"handled": n})
}

// handleResize handles POST /v1/views/{id}/resize.
func (s *ViewServer) handleResize(w http.ResponseWriter, r *http.Request) {
	var sz render.Size
	if err := json.NewDecoder(r.Body).Decode(&sz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.Resize(r.PathValue("id"), sz); err != nil {
		writeViewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCapability handles POST /v1/views/{id}/capability. The client
// reports why it cannot create an accelerated drawing context, or an empty
// error once it can.
func (s *ViewServer) handleCapability(w http.ResponseWriter, r *http.Request) {
	var in capabilityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.ReportCapability(r.PathValue("id"), in.Error); err != nil {
		writeViewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRoster handles GET /v1/views/roster.
func (s *ViewServer) handleRoster(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"views": s.Presence.Roster(0)})
}

// handleExplain handles GET /v1/explain/{type}.
func (s *ViewServer) handleExplain(w http.ResponseWriter, r *http.Request) {
	t := r.PathValue("type")
	writeJSON(w, http.StatusOK, map[string]string{
		"type":        t,
		"explanation": panel.Explain(t),
	})
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"topomap/internal/domain"
	"topomap/internal/service"
)

// GetEditorState returns placement, viewport, pointer and selection
func (h *TopologyHandler) GetEditorState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.editor.State(), http.StatusOK)
}

// StartPlacement arms a device type from the palette
func (h *TopologyHandler) StartPlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.editor.StartPlacement(domain.DeviceType(req.Type))
	h.svc.Events().Publish(service.Event{Type: service.EventPlacementChanged, Payload: req})
	h.writeJSON(w, h.editor.State(), http.StatusOK)
}

// CancelPlacement disarms the palette
func (h *TopologyHandler) CancelPlacement(w http.ResponseWriter, r *http.Request) {
	h.editor.CancelPlacement()
	h.svc.Events().Publish(service.Event{Type: service.EventPlacementChanged})
	h.writeJSON(w, h.editor.State(), http.StatusOK)
}

// CommitPlacement drops the armed device at a screen position
func (h *TopologyHandler) CommitPlacement(w http.ResponseWriter, r *http.Request) {
	var req screenPointRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.editor.CommitPlacement(req.ScreenX, req.ScreenY)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, node, http.StatusCreated)
}

// ClickPort starts or completes a link. Rejections are reported in the
// feedback body, not as an HTTP error.
func (h *TopologyHandler) ClickPort(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !h.decode(w, r, &req) {
		return
	}
	fb := h.editor.ClickPort(req.NodeID, req.Port)
	status := http.StatusOK
	if fb.Link != nil {
		status = http.StatusCreated
	}
	h.writeJSON(w, fb, status)
}

// PointerMove reports the pointer and returns the link preview while drawing.
// It replies 204 when no link is in progress.
func (h *TopologyHandler) PointerMove(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !h.decode(w, r, &req) {
		return
	}
	preview, ok := h.editor.PointerMove(req.ScreenX, req.ScreenY, req.HoverNodeID, req.HoverPort)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, preview, http.StatusOK)
}

// Escape abandons placement and any link being drawn
func (h *TopologyHandler) Escape(w http.ResponseWriter, r *http.Request) {
	h.editor.Escape()
	h.writeJSON(w, h.editor.State(), http.StatusOK)
}

// Pan shifts the viewport by a screen delta
func (h *TopologyHandler) Pan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.saveViewport(w, r, h.editor.Pan(req.DX, req.DY))
}

// Zoom scales the viewport around a screen point
func (h *TopologyHandler) Zoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	vp := h.editor.ZoomAt(req.Factor, req.ScreenX, req.ScreenY)
	h.logger.Debug("zoom", zap.Float64("factor", req.Factor), zap.Float64("zoom", vp.Zoom))
	h.saveViewport(w, r, vp)
}

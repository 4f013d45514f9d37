package handler

import (
	"bytes"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"topomap/internal/domain"
	"topomap/internal/service"
)

// maxImportSize bounds an uploaded topology document
const maxImportSize = 10 << 20

// formatFromRequest reads ?format=, falling back to the Content-Type
func formatFromRequest(r *http.Request, fallback string) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "yaml"):
		return "yaml"
	case strings.Contains(ct, "json"):
		return "json"
	}
	return fallback
}

// Import loads a JSON or YAML topology document.
// ?strategy=merge (default) keeps existing entries; replace discards them.
func (h *TopologyHandler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	format := formatFromRequest(r, "yaml")
	strategy := service.ImportStrategy(r.URL.Query().Get("strategy"))

	result, err := h.svc.Import(r.Context(), body, format, strategy)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// Export writes the topology as JSON or YAML (?format=, default yaml)
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "yaml"
	}

	// Render first so an error can still produce a JSON reply
	var buf bytes.Buffer
	if err := h.svc.Export(&buf, format); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	contentType, ext := "application/x-yaml", "yaml"
	if strings.EqualFold(format, "json") {
		contentType, ext = "application/json", "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=topology."+ext)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write export", zap.Error(err))
	}
}

// GetViewport returns the editor's current pan and zoom
func (h *TopologyHandler) GetViewport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.editor.Viewport(), http.StatusOK)
}

// SetViewport replaces the viewport and stores it
func (h *TopologyHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if !h.decode(w, r, &req) {
		return
	}
	vp := h.editor.SetViewport(domain.Viewport{PanX: req.PanX, PanY: req.PanY, Zoom: req.Zoom})
	h.saveViewport(w, r, vp)
}

// saveViewport persists vp and replies with it
func (h *TopologyHandler) saveViewport(w http.ResponseWriter, r *http.Request, vp domain.Viewport) {
	if err := h.svc.SaveViewport(r.Context(), vp); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, vp, http.StatusOK)
}

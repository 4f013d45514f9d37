package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"topomap/internal/codec"
	"topomap/internal/editor"
	"topomap/internal/service"
	"topomap/internal/topology"
)

// TopologyHandler handles topology and editor API requests
type TopologyHandler struct {
	svc      *service.TopologyService
	editor   *editor.Editor
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.TopologyService, ed *editor.Editor, logger *zap.Logger) *TopologyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopologyHandler{
		svc:      svc,
		editor:   ed,
		validate: newValidator(),
		logger:   logger,
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Helper methods

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

// writeServiceError maps a command error to a status code
func (h *TopologyHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *topology.SelectionError
	switch {
	case errors.As(err, &se):
		h.writeError(w, "Rejected", se.Reason, http.StatusConflict)
	case errors.Is(err, topology.ErrNodeNotFound), errors.Is(err, topology.ErrLinkNotFound):
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, topology.ErrNoSource),
		errors.Is(err, topology.ErrParentCycle),
		errors.Is(err, editor.ErrNoPlacement):
		h.writeError(w, "Conflict", err.Error(), http.StatusConflict)
	case errors.Is(err, topology.ErrInvalidValue),
		errors.Is(err, topology.ErrInvalidTopology),
		errors.Is(err, codec.ErrMalformed),
		errors.Is(err, codec.ErrUnsupportedFormat):
		h.writeError(w, "Invalid request", err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.writeError(w, "Internal error", err.Error(), http.StatusInternalServerError)
	}
}

// decode reads a JSON body into dst and validates it
func (h *TopologyHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, "Validation failed", formatValidationError(err).Error(), http.StatusBadRequest)
		return false
	}
	return true
}

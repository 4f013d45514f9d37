package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"topomap/internal/domain"
)

// deviceTypeInfo describes one palette entry
type deviceTypeInfo struct {
	Type  domain.DeviceType   `json:"type"`
	Name  string              `json:"name"`
	Ports []domain.DevicePort `json:"ports"`
}

// ListDeviceTypes returns the device palette with each type's port layout
func (h *TopologyHandler) ListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]deviceTypeInfo, 0, len(domain.DeviceTypes))
	for _, t := range domain.DeviceTypes {
		out = append(out, deviceTypeInfo{Type: t, Name: t.DisplayName(), Ports: domain.PortTemplate(t)})
	}
	h.writeJSON(w, out, http.StatusOK)
}

// GetTopology returns every node, link and the drawing selection
func (h *TopologyHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Snapshot(), http.StatusOK)
}

// CreateNode places a new device
func (h *TopologyHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.svc.CreateNode(domain.DeviceType(req.Type), req.X, req.Y)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, node, http.StatusCreated)
}

// GetNode returns a single node
func (h *TopologyHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	node, ok := h.svc.Node(id)
	if !ok {
		h.writeError(w, "Not found", "node "+id+" not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// UpdateNode edits descriptive node fields
func (h *TopologyHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req updateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.svc.UpdateNode(chi.URLParam(r, "nodeID"), req.toUpdate())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// DeleteNode removes a node and every link attached to it
func (h *TopologyHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	removed, err := h.svc.RemoveNode(id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if removed == nil {
		removed = []domain.Link{}
	}
	h.writeJSON(w, map[string]interface{}{
		"node_id":       id,
		"removed_links": removed,
	}, http.StatusOK)
}

// MoveNode sets a node's canvas position
func (h *TopologyHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "nodeID")
	if err := h.svc.MoveNode(id, req.X, req.Y); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, domain.NewNodePosition(id, req.X, req.Y), http.StatusOK)
}

// SavePositions moves several nodes at once; nothing moves if any id is unknown
func (h *TopologyHandler) SavePositions(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	positions := make([]domain.NodePosition, 0, len(req.Positions))
	for _, p := range req.Positions {
		positions = append(positions, *domain.NewNodePosition(p.NodeID, p.X, p.Y))
	}
	if err := h.svc.MoveNodes(positions); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, map[string]int{"updated": len(positions)}, http.StatusOK)
}

// SetParent changes a node's parent; an empty parent_id makes it a root
func (h *TopologyHandler) SetParent(w http.ResponseWriter, r *http.Request) {
	var req parentRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.svc.SetParent(chi.URLParam(r, "nodeID"), req.ParentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// ListChildren returns the direct children of a node
func (h *TopologyHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	if _, ok := h.svc.Node(id); !ok {
		h.writeError(w, "Not found", "node "+id+" not found", http.StatusNotFound)
		return
	}
	children := h.svc.Children(id)
	if children == nil {
		children = []domain.Node{}
	}
	h.writeJSON(w, children, http.StatusOK)
}

// ListPorts returns a node's ports with connection and admin state
func (h *TopologyHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.svc.Ports(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, ports, http.StatusOK)
}

// SetPortStatus changes the administrative state of one port
func (h *TopologyHandler) SetPortStatus(w http.ResponseWriter, r *http.Request) {
	var req portStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	port, err := h.svc.SetPortStatus(chi.URLParam(r, "nodeID"), chi.URLParam(r, "port"), domain.PortStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, port, http.StatusOK)
}

// UpdateNodeMetrics records measurements reported for a node
func (h *TopologyHandler) UpdateNodeMetrics(w http.ResponseWriter, r *http.Request) {
	var req nodeMetricsRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "nodeID")
	if err := h.svc.UpdateNodeMetrics(id, req.Metrics, domain.NodeStatus(req.Status)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	node, _ := h.svc.Node(id)
	h.writeJSON(w, node, http.StatusOK)
}

// GetLink returns a single link
func (h *TopologyHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "linkID")
	link, ok := h.svc.Link(id)
	if !ok {
		h.writeError(w, "Not found", "link "+id+" not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, link, http.StatusOK)
}

// UpdateLink edits a link's type, status, metrics or style
func (h *TopologyHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if !h.decode(w, r, &req) {
		return
	}
	link, err := h.svc.UpdateLink(chi.URLParam(r, "linkID"), req.toUpdate())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, link, http.StatusOK)
}

// DeleteLink removes a link and frees its ports
func (h *TopologyHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.RemoveLink(chi.URLParam(r, "linkID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, link, http.StatusOK)
}

// GetSelection returns the link-drawing state
func (h *TopologyHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Selection(), http.StatusOK)
}

// SelectSource starts drawing a link from a port
func (h *TopologyHandler) SelectSource(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.BeginLink(req.NodeID, req.Port); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, h.svc.Selection(), http.StatusOK)
}

// HoverTarget marks the node under the pointer while drawing
func (h *TopologyHandler) HoverTarget(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.HoverTarget(req.NodeID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, h.svc.Selection(), http.StatusOK)
}

// ClearHover drops the hovered node
func (h *TopologyHandler) ClearHover(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearHover()
	h.writeJSON(w, h.svc.Selection(), http.StatusOK)
}

// SelectTarget completes the link being drawn
func (h *TopologyHandler) SelectTarget(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !h.decode(w, r, &req) {
		return
	}
	link, err := h.svc.SelectTargetPort(req.NodeID, req.Port)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, link, http.StatusCreated)
}

// CancelSelection abandons the link being drawn
func (h *TopologyHandler) CancelSelection(w http.ResponseWriter, r *http.Request) {
	h.svc.CancelLink()
	h.writeJSON(w, h.svc.Selection(), http.StatusOK)
}

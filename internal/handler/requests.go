package handler

import (
	"topomap/internal/domain"
	"topomap/internal/topology"
)

type createNodeRequest struct {
	Type string  `json:"type" validate:"required,devicetype"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type geoRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type updateNodeRequest struct {
	Name     *string              `json:"name" validate:"omitempty,max=128"`
	Status   *string              `json:"status" validate:"omitempty,nodestatus"`
	Metadata *domain.NodeMetadata `json:"metadata"`
	Geo      *geoRequest          `json:"geo"`
	ClearGeo bool                 `json:"clear_geo"`
}

func (req updateNodeRequest) toUpdate() topology.NodeUpdate {
	u := topology.NodeUpdate{
		Name:     req.Name,
		Metadata: req.Metadata,
		ClearGeo: req.ClearGeo,
	}
	if req.Status != nil {
		st := domain.NodeStatus(*req.Status)
		u.Status = &st
	}
	if req.Geo != nil {
		u.Geo = &domain.GeoPosition{Lat: req.Geo.Lat, Lng: req.Geo.Lng}
	}
	return u
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type positionItem struct {
	NodeID string  `json:"node_id" validate:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type positionsRequest struct {
	Positions []positionItem `json:"positions" validate:"required,min=1,dive"`
}

type parentRequest struct {
	ParentID string `json:"parent_id"`
}

type portStatusRequest struct {
	Status string `json:"status" validate:"required,portstatus"`
}

type nodeMetricsRequest struct {
	Metrics domain.NodeMetrics `json:"metrics"`
	Status  string             `json:"status" validate:"omitempty,nodestatus"`
}

type linkStyleRequest struct {
	Color  string  `json:"color" validate:"required,hexcolor"`
	Width  float64 `json:"width" validate:"gt=0,lte=20"`
	Dashed bool    `json:"dashed"`
}

type updateLinkRequest struct {
	Type    *string             `json:"type" validate:"omitempty,linktype"`
	Status  *string             `json:"status" validate:"omitempty,linkstatus"`
	Metrics *domain.LinkMetrics `json:"metrics"`
	Style   *linkStyleRequest   `json:"style"`
}

func (req updateLinkRequest) toUpdate() topology.LinkUpdate {
	u := topology.LinkUpdate{Metrics: req.Metrics}
	if req.Type != nil {
		t := domain.LinkType(*req.Type)
		u.Type = &t
	}
	if req.Status != nil {
		st := domain.LinkStatus(*req.Status)
		u.Status = &st
	}
	if req.Style != nil {
		u.Style = &domain.LinkStyle{Color: req.Style.Color, Width: req.Style.Width, Dashed: req.Style.Dashed}
	}
	return u
}

type endpointRequest struct {
	NodeID string `json:"node_id" validate:"required"`
	Port   string `json:"port" validate:"required"`
}

type hoverRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

type placementRequest struct {
	Type string `json:"type" validate:"required,devicetype"`
}

type screenPointRequest struct {
	ScreenX float64 `json:"screen_x"`
	ScreenY float64 `json:"screen_y"`
}

type pointerRequest struct {
	ScreenX     float64 `json:"screen_x"`
	ScreenY     float64 `json:"screen_y"`
	HoverNodeID string  `json:"hover_node_id"`
	HoverPort   string  `json:"hover_port"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type zoomRequest struct {
	Factor  float64 `json:"factor" validate:"gt=0"`
	ScreenX float64 `json:"screen_x"`
	ScreenY float64 `json:"screen_y"`
}

type viewportRequest struct {
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
	Zoom float64 `json:"zoom" validate:"gt=0"`
}

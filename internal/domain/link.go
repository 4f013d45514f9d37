package domain

import "time"

// LinkType represents the cable medium of a link
type LinkType string

const (
	LinkFiber    LinkType = "fiber"
	LinkUTP      LinkType = "utp"
	LinkWireless LinkType = "wireless"
	LinkVirtual  LinkType = "virtual"
)

// LinkTypes lists every link type
var LinkTypes = []LinkType{LinkFiber, LinkUTP, LinkWireless, LinkVirtual}

// Valid reports whether t is a known link type
func (t LinkType) Valid() bool {
	switch t {
	case LinkFiber, LinkUTP, LinkWireless, LinkVirtual:
		return true
	}
	return false
}

// LinkStatus represents the operational state of a link
type LinkStatus string

const (
	LinkConnected LinkStatus = "connected"
	LinkWarning   LinkStatus = "warning"
	LinkDown      LinkStatus = "down"
	LinkUnknown   LinkStatus = "unknown"
)

// Valid reports whether s is a known link status
func (s LinkStatus) Valid() bool {
	switch s {
	case LinkConnected, LinkWarning, LinkDown, LinkUnknown:
		return true
	}
	return false
}

// LinkMetrics are optional performance figures for a link
type LinkMetrics struct {
	LatencyMs     float64 `json:"latency_ms"`
	PacketLoss    float64 `json:"packet_loss"`
	BandwidthMbps float64 `json:"bandwidth_mbps"`
}

// LinkStyle describes how a link is drawn
type LinkStyle struct {
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Dashed bool    `json:"dashed"`
}

// Endpoint identifies one port on one node
type Endpoint struct {
	NodeID string `json:"node_id"`
	Port   string `json:"port"`
}

// Link represents a cable between two ports
type Link struct {
	ID           string       `json:"id"`
	SourceNodeID string       `json:"source_node_id"`
	TargetNodeID string       `json:"target_node_id"`
	SourcePort   string       `json:"source_port"`
	TargetPort   string       `json:"target_port"`
	LinkType     LinkType     `json:"link_type"`
	Status       LinkStatus   `json:"status"`
	Metrics      *LinkMetrics `json:"metrics,omitempty"`
	Style        LinkStyle    `json:"style"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewLink creates a connected link between two endpoints drawn in the
// default style of its type
func NewLink(id string, source, target Endpoint, linkType LinkType) *Link {
	return &Link{
		ID:           id,
		SourceNodeID: source.NodeID,
		SourcePort:   source.Port,
		TargetNodeID: target.NodeID,
		TargetPort:   target.Port,
		LinkType:     linkType,
		Status:       LinkConnected,
		Style:        DefaultLinkStyle(linkType),
		CreatedAt:    time.Now(),
	}
}

// Source returns the source endpoint
func (l *Link) Source() Endpoint {
	return Endpoint{NodeID: l.SourceNodeID, Port: l.SourcePort}
}

// Target returns the target endpoint
func (l *Link) Target() Endpoint {
	return Endpoint{NodeID: l.TargetNodeID, Port: l.TargetPort}
}

// Touches reports whether the link occupies the given port
func (l *Link) Touches(nodeID, port string) bool {
	return (l.SourceNodeID == nodeID && l.SourcePort == port) ||
		(l.TargetNodeID == nodeID && l.TargetPort == port)
}

// Involves reports whether either end of the link is on the given node
func (l *Link) Involves(nodeID string) bool {
	return l.SourceNodeID == nodeID || l.TargetNodeID == nodeID
}

// Clone returns a deep copy of the link
func (l Link) Clone() Link {
	c := l
	if l.Metrics != nil {
		m := *l.Metrics
		c.Metrics = &m
	}
	return c
}

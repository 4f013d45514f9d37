package domain

import (
	"strings"
	"time"
)

// DeviceType represents the kind of device a node models
type DeviceType string

const (
	DeviceRouter   DeviceType = "router"
	DeviceSwitch   DeviceType = "switch"
	DeviceOLT      DeviceType = "olt"
	DeviceONT      DeviceType = "ont"
	DeviceAP       DeviceType = "ap"
	DeviceRepeater DeviceType = "repeater"
	DeviceClient   DeviceType = "client"
)

// DeviceTypes lists every known device type in palette order
var DeviceTypes = []DeviceType{
	DeviceRouter,
	DeviceSwitch,
	DeviceOLT,
	DeviceONT,
	DeviceAP,
	DeviceRepeater,
	DeviceClient,
}

// Valid reports whether t is one of the known device types
func (t DeviceType) Valid() bool {
	for _, known := range DeviceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName returns the palette label for the device type
func (t DeviceType) DisplayName() string {
	switch t {
	case DeviceRouter:
		return "Router"
	case DeviceSwitch:
		return "Switch"
	case DeviceOLT:
		return "OLT"
	case DeviceONT:
		return "ONT"
	case DeviceAP:
		return "Access Point"
	case DeviceRepeater:
		return "Repeater"
	case DeviceClient:
		return "Client"
	default:
		if t == "" {
			return "Device"
		}
		return strings.ToUpper(string(t[:1])) + string(t[1:])
	}
}

// NodeStatus represents the operational status of a node
type NodeStatus string

const (
	NodeOnline  NodeStatus = "online"
	NodeOffline NodeStatus = "offline"
	NodeWarning NodeStatus = "warning"
	NodeUnknown NodeStatus = "unknown"
)

// Valid reports whether s is a known node status
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeOnline, NodeOffline, NodeWarning, NodeUnknown:
		return true
	}
	return false
}

// GeoPosition is an optional map coordinate for a node
type GeoPosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NodeMetadata is free-form informational data about a device
type NodeMetadata struct {
	IP       string `json:"ip,omitempty"`
	MAC      string `json:"mac,omitempty"`
	Model    string `json:"model,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	// SampleIP marks IP as a generated placeholder that must not be probed.
	// It stays set until the IP is changed.
	SampleIP bool `json:"sample_ip,omitempty"`
}

// NodeMetrics are runtime measurements shown on the map.
// The topology store carries them but never derives anything from them.
type NodeMetrics struct {
	LatencyMs   float64    `json:"latency_ms"`
	PacketLoss  float64    `json:"packet_loss"`
	RxBytes     uint64     `json:"rx_bytes"`
	TxBytes     uint64     `json:"tx_bytes"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// Node represents a device placed on the topology canvas
type Node struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     DeviceType   `json:"type"`
	Status   NodeStatus   `json:"status"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Geo      *GeoPosition `json:"geo,omitempty"`
	ParentID string       `json:"parent_id,omitempty"`
	Level    int          `json:"level"`
	Metadata NodeMetadata `json:"metadata"`
	Metrics  NodeMetrics  `json:"metrics"`

	// PortStatus holds administrative overrides keyed by port name.
	// Ports without an entry are up.
	PortStatus map[string]PortStatus `json:"port_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNode creates a node at the canvas origin with default status
func NewNode(id string, deviceType DeviceType, name string) *Node {
	now := time.Now()
	return &Node{
		ID:        id,
		Name:      name,
		Type:      deviceType,
		Status:    NodeOnline,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Position returns the node's canvas position
func (n *Node) Position() Point {
	return Point{X: n.X, Y: n.Y}
}

// Ports returns the node's ports with connection state derived from links
func (n *Node) Ports(links []Link) []DevicePort {
	return ApplyPortStatus(PortsForDevice(n.ID, n.Type, links), n.PortStatus)
}

// PortStatusOf returns the administrative status of the named port
func (n *Node) PortStatusOf(name string) PortStatus {
	if st, ok := n.PortStatus[name]; ok {
		return st
	}
	return PortUp
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	c := n
	if n.Geo != nil {
		geo := *n.Geo
		c.Geo = &geo
	}
	if n.Metrics.LastChecked != nil {
		t := *n.Metrics.LastChecked
		c.Metrics.LastChecked = &t
	}
	if n.PortStatus != nil {
		c.PortStatus = make(map[string]PortStatus, len(n.PortStatus))
		for k, v := range n.PortStatus {
			c.PortStatus[k] = v
		}
	}
	return c
}

package domain

import "fmt"

// PortType represents the physical medium of a port
type PortType string

const (
	PortEthernet PortType = "ethernet"
	PortSFP      PortType = "sfp"
	PortSFPPlus  PortType = "sfp+"
	PortWireless PortType = "wireless"
)

// PortStatus represents the administrative/operational state of a port
type PortStatus string

const (
	PortUp       PortStatus = "up"
	PortDown     PortStatus = "down"
	PortDisabled PortStatus = "disabled"
)

// Valid reports whether s is a known port status
func (s PortStatus) Valid() bool {
	switch s {
	case PortUp, PortDown, PortDisabled:
		return true
	}
	return false
}

// DevicePort is a named attachment point on a node
type DevicePort struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        PortType   `json:"type"`
	Status      PortStatus `json:"status"`
	Speed       string     `json:"speed,omitempty"`
	IsConnected bool       `json:"is_connected"`
	LinkID      string     `json:"link_id,omitempty"`
}

// portGroup describes a run of identically typed ports, e.g. ether1..ether5
type portGroup struct {
	prefix string
	start  int
	count  int
	typ    PortType
	speed  string
}

// portGroups is the device type to port layout table.
// Unknown types fall back to a single ethernet port so every node is linkable.
func portGroups(t DeviceType) []portGroup {
	switch t {
	case DeviceRouter:
		return []portGroup{
			{prefix: "ether", start: 1, count: 5, typ: PortEthernet, speed: "1Gbps"},
			{prefix: "sfp", start: 1, count: 2, typ: PortSFPPlus, speed: "10Gbps"},
		}
	case DeviceSwitch:
		return []portGroup{
			{prefix: "port", start: 1, count: 24, typ: PortEthernet, speed: "1Gbps"},
			{prefix: "sfp", start: 1, count: 2, typ: PortSFP, speed: "10Gbps"},
		}
	case DeviceOLT:
		return []portGroup{
			{prefix: "uplink", start: 1, count: 4, typ: PortSFPPlus, speed: "10Gbps"},
			{prefix: "pon", start: 1, count: 16, typ: PortSFP, speed: "2.5Gbps"},
		}
	case DeviceONT:
		return []portGroup{
			{prefix: "pon", start: 1, count: 1, typ: PortSFP, speed: "2.5Gbps"},
			{prefix: "lan", start: 1, count: 4, typ: PortEthernet, speed: "1Gbps"},
		}
	case DeviceAP:
		return []portGroup{
			{prefix: "ether", start: 1, count: 1, typ: PortEthernet, speed: "1Gbps"},
			{prefix: "wlan", start: 1, count: 1, typ: PortWireless, speed: "867Mbps"},
		}
	case DeviceRepeater:
		return []portGroup{
			{prefix: "wlan", start: 1, count: 2, typ: PortWireless, speed: "300Mbps"},
		}
	case DeviceClient:
		return []portGroup{
			{prefix: "eth", start: 0, count: 1, typ: PortEthernet, speed: "1Gbps"},
		}
	default:
		return []portGroup{
			{prefix: "port", start: 1, count: 1, typ: PortEthernet, speed: "1Gbps"},
		}
	}
}

// PortTemplate returns the canonical ordered ports for a device type.
// The result is deterministic and never empty.
func PortTemplate(t DeviceType) []DevicePort {
	var ports []DevicePort
	for _, g := range portGroups(t) {
		for i := 0; i < g.count; i++ {
			name := fmt.Sprintf("%s%d", g.prefix, g.start+i)
			ports = append(ports, DevicePort{
				ID:     name,
				Name:   name,
				Type:   g.typ,
				Status: PortUp,
				Speed:  g.speed,
			})
		}
	}
	return ports
}

// FindPort looks up a port of the device type by name
func FindPort(t DeviceType, name string) (DevicePort, bool) {
	for _, p := range PortTemplate(t) {
		if p.Name == name {
			return p, true
		}
	}
	return DevicePort{}, false
}

// PortsForDevice returns the ports of a device with IsConnected and LinkID set
// from links that reference (nodeID, port name) at either end.
func PortsForDevice(nodeID string, t DeviceType, links []Link) []DevicePort {
	ports := PortTemplate(t)
	for i := range ports {
		for _, l := range links {
			if l.Touches(nodeID, ports[i].Name) {
				ports[i].IsConnected = true
				ports[i].LinkID = l.ID
				break
			}
		}
	}
	return ports
}

// ApplyPortStatus overlays administrative port status overrides
func ApplyPortStatus(ports []DevicePort, overrides map[string]PortStatus) []DevicePort {
	if len(overrides) == 0 {
		return ports
	}
	for i := range ports {
		if st, ok := overrides[ports[i].Name]; ok {
			ports[i].Status = st
		}
	}
	return ports
}

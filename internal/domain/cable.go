package domain

import "strings"

// Classify infers the cable type of a link from the port types at its ends.
// Wireless wins over fiber, fiber wins over copper. Virtual is never inferred.
func Classify(source, target PortType) LinkType {
	if source == PortWireless || target == PortWireless {
		return LinkWireless
	}
	if strings.Contains(string(source), "sfp") || strings.Contains(string(target), "sfp") {
		return LinkFiber
	}
	return LinkUTP
}

// MediumOf returns the link type a single port would produce on its own,
// used to label a link preview before a target port is known
func MediumOf(p PortType) LinkType {
	return Classify(p, p)
}

// DefaultLinkStyle returns the drawing style for a link type
func DefaultLinkStyle(t LinkType) LinkStyle {
	switch t {
	case LinkFiber:
		return LinkStyle{Color: "#f59e0b", Width: 3}
	case LinkUTP:
		return LinkStyle{Color: "#3b82f6", Width: 2}
	case LinkWireless:
		return LinkStyle{Color: "#10b981", Width: 2, Dashed: true}
	case LinkVirtual:
		return LinkStyle{Color: "#9ca3af", Width: 1, Dashed: true}
	default:
		return LinkStyle{Color: "#6b7280", Width: 2}
	}
}

// Label returns a short human-readable name for the link type
func (t LinkType) Label() string {
	switch t {
	case LinkFiber:
		return "Fiber"
	case LinkUTP:
		return "UTP"
	case LinkWireless:
		return "Wireless"
	case LinkVirtual:
		return "Virtual"
	default:
		return string(t)
	}
}

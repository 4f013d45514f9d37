package topology

import (
	"fmt"

	"topomap/internal/domain"
)

// deviceProfile is the placeholder data a freshly placed device starts with.
// It is informational only; nothing is provisioned from it.
type deviceProfile struct {
	model  string
	subnet int
	notes  string
}

func profileFor(t domain.DeviceType) deviceProfile {
	switch t {
	case domain.DeviceRouter:
		return deviceProfile{model: "MikroTik RB4011", subnet: 1, notes: "Core router"}
	case domain.DeviceSwitch:
		return deviceProfile{model: "MikroTik CRS326-24G-2S+", subnet: 2, notes: "Distribution switch"}
	case domain.DeviceOLT:
		return deviceProfile{model: "HSGQ GPON OLT 16P", subnet: 3, notes: "Fiber head end"}
	case domain.DeviceONT:
		return deviceProfile{model: "ZTE F660", subnet: 4, notes: "Customer premises terminal"}
	case domain.DeviceAP:
		return deviceProfile{model: "Ubiquiti UniFi AC Lite", subnet: 5, notes: "Wireless access point"}
	case domain.DeviceRepeater:
		return deviceProfile{model: "TP-Link RE305", subnet: 6, notes: "Wireless repeater"}
	case domain.DeviceClient:
		return deviceProfile{model: "Generic CPE", subnet: 7, notes: "Subscriber device"}
	default:
		return deviceProfile{model: "Unknown device", subnet: 99, notes: "Unrecognised device type"}
	}
}

// applyDeviceDefaults fills name and sample metadata for the n-th device of a type
func applyDeviceDefaults(node *domain.Node, n int) {
	p := profileFor(node.Type)
	node.Name = fmt.Sprintf("%s %d", node.Type.DisplayName(), n)
	node.Metadata = domain.NodeMetadata{
		IP:       fmt.Sprintf("10.%d.%d.%d", p.subnet, n/250, n%250+1),
		MAC:      fmt.Sprintf("02:00:%02x:%02x:%02x:%02x", p.subnet, (n>>16)&0xff, (n>>8)&0xff, n&0xff),
		Model:    p.model,
		Location: "Unassigned",
		Notes:    p.notes,
		SampleIP: true,
	}
}

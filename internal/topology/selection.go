package topology

import "topomap/internal/domain"

// LinkState is the state of the link-drawing state machine
type LinkState string

const (
	LinkIdle           LinkState = "idle"
	LinkSourceSelected LinkState = "source-selected"
	LinkTargetHover    LinkState = "target-hover"
)

// Selection is the in-progress link drawing
type Selection struct {
	State       LinkState        `json:"state"`
	Source      *domain.Endpoint `json:"source,omitempty"`
	SourceType  domain.PortType  `json:"source_port_type,omitempty"`
	HoverNodeID string           `json:"hover_node_id,omitempty"`
}

// Active reports whether a link is being drawn
func (s Selection) Active() bool {
	return s.State != LinkIdle && s.State != ""
}

func idleSelection() Selection {
	return Selection{State: LinkIdle}
}

func (s Selection) clone() Selection {
	c := s
	if s.Source != nil {
		src := *s.Source
		c.Source = &src
	}
	return c
}

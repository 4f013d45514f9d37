package codec

import (
	"fmt"
	"io"
	"strings"

	"topomap/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles the hand-editable YAML topology format.
// Links name their endpoints as "node/port".
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFragment represents the YAML structure for topology data
type yamlFragment struct {
	Nodes []yamlNode `yaml:"nodes"`
	Links []yamlLink `yaml:"links"`
}

type yamlNode struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name,omitempty"`
	Type     string            `yaml:"type"`
	Status   string            `yaml:"status,omitempty"`
	X        float64           `yaml:"x"`
	Y        float64           `yaml:"y"`
	Lat      *float64          `yaml:"lat,omitempty"`
	Lng      *float64          `yaml:"lng,omitempty"`
	Parent   string            `yaml:"parent,omitempty"`
	IP       string            `yaml:"ip,omitempty"`
	MAC      string            `yaml:"mac,omitempty"`
	Model    string            `yaml:"model,omitempty"`
	Location string            `yaml:"location,omitempty"`
	Notes    string            `yaml:"notes,omitempty"`
	SampleIP bool              `yaml:"sample_ip,omitempty"`
	Ports    map[string]string `yaml:"ports,omitempty"`
}

type yamlLink struct {
	ID     string `yaml:"id,omitempty"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Type   string `yaml:"type,omitempty"`
	Status string `yaml:"status,omitempty"`
}

func parseEndpoint(s string) (domain.Endpoint, error) {
	node, port, ok := strings.Cut(s, "/")
	if !ok || node == "" || port == "" {
		return domain.Endpoint{}, fmt.Errorf("endpoint %q must be node/port", s)
	}
	return domain.Endpoint{NodeID: node, Port: port}, nil
}

func formatEndpoint(ep domain.Endpoint) string {
	return ep.NodeID + "/" + ep.Port
}

// Parse imports topology data from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Fragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	fragment := domain.NewFragment()

	// Convert nodes
	for _, yn := range yf.Nodes {
		node := domain.Node{
			ID:       yn.ID,
			Name:     yn.Name,
			Type:     domain.DeviceType(yn.Type),
			Status:   domain.NodeStatus(yn.Status),
			X:        yn.X,
			Y:        yn.Y,
			ParentID: yn.Parent,
			Metadata: domain.NodeMetadata{
				IP:       yn.IP,
				MAC:      yn.MAC,
				Model:    yn.Model,
				Location: yn.Location,
				Notes:    yn.Notes,
				SampleIP: yn.SampleIP,
			},
		}
		if yn.Lat != nil && yn.Lng != nil {
			node.Geo = &domain.GeoPosition{Lat: *yn.Lat, Lng: *yn.Lng}
		}
		if len(yn.Ports) > 0 {
			node.PortStatus = make(map[string]domain.PortStatus, len(yn.Ports))
			for port, status := range yn.Ports {
				st := domain.PortStatus(status)
				if !st.Valid() {
					return nil, fmt.Errorf("%w: node %s port %s: invalid status %q", ErrMalformed, yn.ID, port, status)
				}
				node.PortStatus[port] = st
			}
		}
		fragment.AddNode(node)
	}

	// Convert links
	for i, yl := range yf.Links {
		src, err := parseEndpoint(yl.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: link %d source: %v", ErrMalformed, i, err)
		}
		dst, err := parseEndpoint(yl.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: link %d target: %v", ErrMalformed, i, err)
		}
		fragment.AddLink(domain.Link{
			ID:           yl.ID,
			SourceNodeID: src.NodeID,
			SourcePort:   src.Port,
			TargetNodeID: dst.NodeID,
			TargetPort:   dst.Port,
			LinkType:     domain.LinkType(yl.Type),
			Status:       domain.LinkStatus(yl.Status),
		})
	}

	return fragment, nil
}

// Export exports topology data to YAML
func (c *YAMLCodec) Export(fragment *domain.Fragment, w io.Writer) error {
	yf := yamlFragment{
		Nodes: make([]yamlNode, 0, len(fragment.Nodes)),
		Links: make([]yamlLink, 0, len(fragment.Links)),
	}

	// Convert nodes
	for _, node := range fragment.Nodes {
		yn := yamlNode{
			ID:       node.ID,
			Name:     node.Name,
			Type:     string(node.Type),
			Status:   string(node.Status),
			X:        node.X,
			Y:        node.Y,
			Parent:   node.ParentID,
			IP:       node.Metadata.IP,
			MAC:      node.Metadata.MAC,
			Model:    node.Metadata.Model,
			Location: node.Metadata.Location,
			Notes:    node.Metadata.Notes,
			SampleIP: node.Metadata.SampleIP,
		}
		if node.Geo != nil {
			lat, lng := node.Geo.Lat, node.Geo.Lng
			yn.Lat, yn.Lng = &lat, &lng
		}
		if len(node.PortStatus) > 0 {
			yn.Ports = make(map[string]string, len(node.PortStatus))
			for port, st := range node.PortStatus {
				yn.Ports[port] = string(st)
			}
		}
		yf.Nodes = append(yf.Nodes, yn)
	}

	// Convert links
	for _, link := range fragment.Links {
		yf.Links = append(yf.Links, yamlLink{
			ID:     link.ID,
			Source: formatEndpoint(link.Source()),
			Target: formatEndpoint(link.Target()),
			Type:   string(link.LinkType),
			Status: string(link.Status),
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"topomap/internal/domain"
)

const seedYAML = `
nodes:
  - id: core
    name: Core Router
    type: router
    x: 100
    y: 50
    ip: 10.0.0.1
    lat: -6.2
    lng: 106.8
  - id: olt1
    type: olt
    parent: core
    ports:
      pon16: disabled
  - id: ap1
    type: ap
    parent: olt1
links:
  - source: core/sfp1
    target: olt1/uplink1
  - id: air
    source: olt1/uplink2
    target: ap1/wlan1
    status: warning
`

func TestYAMLParse(t *testing.T) {
	f, err := NewYAMLCodec().Parse(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(f.Nodes) != 3 || len(f.Links) != 2 {
		t.Fatalf("expected 3 nodes and 2 links, got %d/%d", len(f.Nodes), len(f.Links))
	}

	core := f.Nodes[0]
	if core.Type != domain.DeviceRouter || core.Name != "Core Router" || core.Metadata.IP != "10.0.0.1" {
		t.Errorf("unexpected core node %+v", core)
	}
	if core.Geo == nil || core.Geo.Lat != -6.2 {
		t.Errorf("expected geo position, got %+v", core.Geo)
	}
	if f.Nodes[1].ParentID != "core" {
		t.Errorf("expected olt1 parent core, got %q", f.Nodes[1].ParentID)
	}
	if f.Nodes[1].PortStatus["pon16"] != domain.PortDisabled {
		t.Errorf("expected pon16 disabled, got %v", f.Nodes[1].PortStatus)
	}

	l := f.Links[0]
	if l.SourceNodeID != "core" || l.SourcePort != "sfp1" || l.TargetNodeID != "olt1" || l.TargetPort != "uplink1" {
		t.Errorf("unexpected endpoints %+v", l)
	}
	if l.LinkType != "" {
		t.Errorf("expected link type left for inference, got %s", l.LinkType)
	}
	if f.Links[1].Status != domain.LinkWarning {
		t.Errorf("expected warning status, got %s", f.Links[1].Status)
	}
}

func TestYAMLParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad endpoint", "links:\n  - source: core\n    target: s1/port1\n"},
		{"empty port", "links:\n  - source: core/\n    target: s1/port1\n"},
		{"bad port status", "nodes:\n  - id: s1\n    type: switch\n    ports:\n      port1: broken\n"},
		{"malformed", "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewYAMLCodec().Parse(strings.NewReader(tt.input)); !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestYAMLEmpty(t *testing.T) {
	f, err := NewYAMLCodec().Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("expected empty document to parse, got %v", err)
	}
	if len(f.Nodes) != 0 || len(f.Links) != 0 {
		t.Error("expected empty fragment")
	}
}

func TestYAMLExportReadable(t *testing.T) {
	f := domain.NewFragment()
	f.AddNode(domain.Node{ID: "r1", Name: "Edge", Type: domain.DeviceRouter, Status: domain.NodeOnline, X: 1, Y: 2})
	f.AddNode(domain.Node{ID: "s1", Type: domain.DeviceSwitch, ParentID: "r1"})
	f.AddLink(domain.Link{ID: "l1", SourceNodeID: "r1", SourcePort: "ether1", TargetNodeID: "s1", TargetPort: "port1", LinkType: domain.LinkUTP})

	var buf bytes.Buffer
	if err := NewYAMLCodec().Export(f, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"source: r1/ether1", "target: s1/port1", "parent: r1", "type: utp"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	back, err := NewYAMLCodec().Parse(&buf)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if back.Links[0].Source() != f.Links[0].Source() || back.Nodes[1].ParentID != "r1" {
		t.Error("expected export to parse back to the same topology")
	}
}

func TestJSONCodec(t *testing.T) {
	f := domain.NewFragment()
	f.AddNode(domain.Node{ID: "o1", Type: domain.DeviceOLT, PortStatus: map[string]domain.PortStatus{"pon1": domain.PortDown}})
	f.AddLink(domain.Link{ID: "l1", SourceNodeID: "o1", SourcePort: "pon2", TargetNodeID: "x", TargetPort: "pon1", LinkType: domain.LinkFiber})

	c := NewJSONCodec()
	var buf bytes.Buffer
	if err := c.Export(f, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), `"source_node_id": "o1"`) {
		t.Errorf("expected snake_case keys, got %s", buf.String())
	}

	back, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if back.Nodes[0].PortStatus["pon1"] != domain.PortDown || back.Links[0].LinkType != domain.LinkFiber {
		t.Errorf("unexpected parse result %+v", back)
	}

	if _, err := c.Parse(strings.NewReader("{")); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for truncated JSON, got %v", err)
	}

	empty, err := c.Parse(strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Nodes == nil || empty.Links == nil {
		t.Error("expected non-nil slices")
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"json", "json", false},
		{"YAML", "yaml", false},
		{"yml", "yaml", false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		c, err := ForFormat(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil || c.Format() != tt.want {
			t.Errorf("%s: expected %s, got %v/%v", tt.in, tt.want, c, err)
		}
	}

	if c, err := ForPath("/tmp/seed.yml"); err != nil || c.Format() != "yaml" {
		t.Errorf("expected yaml codec for .yml, got %v/%v", c, err)
	}
	if _, err := ForPath("/tmp/seed"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Error("expected error without extension")
	}
}

package editor

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"topomap/internal/domain"
	"topomap/internal/topology"
)

func newTestEditor(opts ...Option) (*Editor, *topology.Store) {
	n := 0
	store := topology.NewStore(topology.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	return New(store, opts...), store
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPlacement(t *testing.T) {
	ed, store := newTestEditor(WithViewport(domain.Viewport{PanX: 100, PanY: 50, Zoom: 2}))

	t.Run("commit without arming", func(t *testing.T) {
		if _, err := ed.CommitPlacement(0, 0); !errors.Is(err, ErrNoPlacement) {
			t.Fatalf("expected ErrNoPlacement, got %v", err)
		}
	})

	t.Run("drop converts screen to canvas", func(t *testing.T) {
		ed.StartPlacement(domain.DeviceRouter)
		node, err := ed.CommitPlacement(300, 250)
		if err != nil {
			t.Fatal(err)
		}
		if node.X != 100 || node.Y != 100 {
			t.Errorf("expected canvas (100, 100), got (%f, %f)", node.X, node.Y)
		}
		if node.Type != domain.DeviceRouter {
			t.Errorf("expected router, got %s", node.Type)
		}
		if ed.State().Placing != "" {
			t.Error("expected placement disarmed after drop")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		ed.StartPlacement(domain.DeviceSwitch)
		ed.CancelPlacement()
		if _, err := ed.CommitPlacement(0, 0); !errors.Is(err, ErrNoPlacement) {
			t.Fatalf("expected ErrNoPlacement, got %v", err)
		}
		if nodes, _ := store.Counts(); nodes != 1 {
			t.Errorf("expected 1 node, got %d", nodes)
		}
	})
}

func TestClickPortDrawsLink(t *testing.T) {
	ed, store := newTestEditor()
	r := store.AddNode(domain.DeviceRouter, 0, 0)
	sw := store.AddNode(domain.DeviceSwitch, 100, 0)

	fb := ed.ClickPort(r.ID, "ether1")
	if !fb.Accepted || fb.State != topology.LinkSourceSelected {
		t.Fatalf("expected source selected, got %+v", fb)
	}

	fb = ed.ClickPort(sw.ID, "port1")
	if !fb.Accepted || fb.Link == nil {
		t.Fatalf("expected link created, got %+v", fb)
	}
	if fb.Link.LinkType != domain.LinkUTP {
		t.Errorf("expected utp, got %s", fb.Link.LinkType)
	}
	if fb.State != topology.LinkIdle {
		t.Errorf("expected idle, got %s", fb.State)
	}

	fb = ed.ClickPort(r.ID, "ether1")
	if fb.Accepted {
		t.Fatal("expected occupied port to be rejected")
	}
	if fb.Reason != topology.ReasonPortConnected {
		t.Errorf("expected %q, got %q", topology.ReasonPortConnected, fb.Reason)
	}
	if fb.State != topology.LinkIdle {
		t.Errorf("expected state to stay idle, got %s", fb.State)
	}
}

func TestClickPortRejectedTargetKeepsSource(t *testing.T) {
	ed, store := newTestEditor()
	r := store.AddNode(domain.DeviceRouter, 0, 0)

	ed.ClickPort(r.ID, "ether1")
	fb := ed.ClickPort(r.ID, "ether1")
	if fb.Accepted {
		t.Fatal("expected same-port target to be rejected")
	}
	if fb.Reason != topology.ReasonSamePort {
		t.Errorf("expected %q, got %q", topology.ReasonSamePort, fb.Reason)
	}
	if fb.State != topology.LinkSourceSelected {
		t.Errorf("expected source-selected, got %s", fb.State)
	}
}

func TestPointerMove(t *testing.T) {
	ed, store := newTestEditor(WithViewport(domain.Viewport{Zoom: 1}))
	olt := store.AddNode(domain.DeviceOLT, 0, 0)
	ap := store.AddNode(domain.DeviceAP, 200, 100)

	if _, ok := ed.PointerMove(10, 10, "", ""); ok {
		t.Fatal("expected no preview while idle")
	}

	ed.ClickPort(olt.ID, "uplink1")

	t.Run("free pointer", func(t *testing.T) {
		preview, ok := ed.PointerMove(50, 60, "", "")
		if !ok {
			t.Fatal("expected preview while drawing")
		}
		if preview.To != (domain.Point{X: 50, Y: 60}) || preview.Snapped {
			t.Errorf("expected unsnapped line to pointer, got %+v", preview)
		}
		if preview.LinkType != domain.LinkFiber {
			t.Errorf("expected source medium fiber, got %s", preview.LinkType)
		}
	})

	t.Run("hover node and port", func(t *testing.T) {
		preview, ok := ed.PointerMove(205, 98, ap.ID, "wlan1")
		if !ok {
			t.Fatal("expected preview")
		}
		if !preview.Snapped || preview.To != (domain.Point{X: 200, Y: 100}) {
			t.Errorf("expected snap to AP, got %+v", preview)
		}
		if preview.LinkType != domain.LinkWireless {
			t.Errorf("expected wireless, got %s", preview.LinkType)
		}
		if store.Selection().State != topology.LinkTargetHover {
			t.Errorf("expected target-hover, got %s", store.Selection().State)
		}
	})

	t.Run("leave node", func(t *testing.T) {
		ed.PointerMove(0, 0, "", "")
		if store.Selection().State != topology.LinkSourceSelected {
			t.Errorf("expected source-selected, got %s", store.Selection().State)
		}
	})

	fb := ed.ClickPort(ap.ID, "wlan1")
	if fb.Link == nil || fb.Link.LinkType != domain.LinkWireless {
		t.Errorf("expected wireless link, got %+v", fb)
	}
}

func TestEscape(t *testing.T) {
	ed, store := newTestEditor()
	r := store.AddNode(domain.DeviceRouter, 0, 0)

	ed.StartPlacement(domain.DeviceClient)
	ed.ClickPort(r.ID, "ether1")
	ed.Escape()

	st := ed.State()
	if st.Placing != "" {
		t.Error("expected placement cleared")
	}
	if st.Selection.State != topology.LinkIdle {
		t.Errorf("expected idle, got %s", st.Selection.State)
	}
	if _, links := store.Counts(); links != 0 {
		t.Errorf("expected no links, got %d", links)
	}
}

func TestPanZoom(t *testing.T) {
	ed, _ := newTestEditor()

	vp := ed.Pan(10, -20)
	if vp.PanX != 10 || vp.PanY != -20 || vp.Zoom != 1 {
		t.Fatalf("unexpected viewport %+v", vp)
	}

	t.Run("zoom keeps anchor fixed", func(t *testing.T) {
		before := ed.Viewport().ToCanvas(domain.Point{X: 400, Y: 300})
		vp := ed.ZoomAt(2, 400, 300)
		after := vp.ToCanvas(domain.Point{X: 400, Y: 300})
		if !near(before.X, after.X) || !near(before.Y, after.Y) {
			t.Errorf("anchor moved from %+v to %+v", before, after)
		}
		if vp.Zoom != 2 {
			t.Errorf("expected zoom 2, got %f", vp.Zoom)
		}
	})

	t.Run("clamped", func(t *testing.T) {
		if vp := ed.ZoomAt(100, 0, 0); vp.Zoom != MaxZoom {
			t.Errorf("expected zoom %f, got %f", MaxZoom, vp.Zoom)
		}
		if vp := ed.ZoomAt(0.0001, 0, 0); vp.Zoom != MinZoom {
			t.Errorf("expected zoom %f, got %f", MinZoom, vp.Zoom)
		}
	})

	t.Run("invalid factor ignored", func(t *testing.T) {
		before := ed.Viewport()
		if vp := ed.ZoomAt(-1, 0, 0); vp != before {
			t.Errorf("expected unchanged viewport, got %+v", vp)
		}
	})

	t.Run("set viewport clamps", func(t *testing.T) {
		vp := ed.SetViewport(domain.Viewport{PanX: 1, PanY: 2, Zoom: 9})
		if vp.Zoom != MaxZoom || vp.PanX != 1 {
			t.Errorf("unexpected viewport %+v", vp)
		}
	})
}

// recordingGraph logs the commands issued against it
type recordingGraph struct {
	calls []string
	sel   topology.Selection
}

func (g *recordingGraph) AddNode(t domain.DeviceType, x, y float64) domain.Node {
	g.calls = append(g.calls, fmt.Sprintf("AddNode %s %.0f %.0f", t, x, y))
	return domain.Node{ID: "n", Type: t, X: x, Y: y}
}

func (g *recordingGraph) BeginLink(nodeID, port string) error {
	g.calls = append(g.calls, "BeginLink "+nodeID+" "+port)
	g.sel = topology.Selection{State: topology.LinkSourceSelected, Source: &domain.Endpoint{NodeID: nodeID, Port: port}}
	return nil
}

func (g *recordingGraph) HoverTarget(nodeID string) error {
	g.calls = append(g.calls, "HoverTarget "+nodeID)
	return nil
}

func (g *recordingGraph) ClearHover() {
	g.calls = append(g.calls, "ClearHover")
}

func (g *recordingGraph) SelectTargetPort(nodeID, port string) (domain.Link, error) {
	g.calls = append(g.calls, "SelectTargetPort "+nodeID+" "+port)
	g.sel = topology.Selection{State: topology.LinkIdle}
	return domain.Link{ID: "l"}, nil
}

func (g *recordingGraph) CancelLink() {
	g.calls = append(g.calls, "CancelLink")
	g.sel = topology.Selection{State: topology.LinkIdle}
}

func (g *recordingGraph) Node(id string) (domain.Node, bool) {
	return domain.Node{ID: id}, true
}

func (g *recordingGraph) Selection() topology.Selection {
	return g.sel
}

func TestCallSequence(t *testing.T) {
	g := &recordingGraph{sel: topology.Selection{State: topology.LinkIdle}}
	ed := New(g)

	ed.StartPlacement(domain.DeviceSwitch)
	ed.CommitPlacement(10, 20)
	ed.ClickPort("a", "ether1")
	ed.PointerMove(1, 1, "b", "")
	ed.PointerMove(2, 2, "", "")
	ed.ClickPort("b", "port1")
	ed.Escape()

	want := []string{
		"AddNode switch 10 20",
		"BeginLink a ether1",
		"HoverTarget b",
		"ClearHover",
		"SelectTargetPort b port1",
		"CancelLink",
	}
	if fmt.Sprint(g.calls) != fmt.Sprint(want) {
		t.Errorf("expected calls\n%v\ngot\n%v", want, g.calls)
	}
}

package domain

import "testing"

func TestNewLink(t *testing.T) {
	src := Endpoint{NodeID: "r1", Port: "ether1"}
	dst := Endpoint{NodeID: "s1", Port: "port1"}
	link := NewLink("l1", src, dst, LinkUTP)

	if link.Source() != src {
		t.Errorf("expected source %+v, got %+v", src, link.Source())
	}
	if link.Target() != dst {
		t.Errorf("expected target %+v, got %+v", dst, link.Target())
	}
	if link.Status != LinkConnected {
		t.Errorf("expected status connected, got %s", link.Status)
	}
	if link.Style != DefaultLinkStyle(LinkUTP) {
		t.Errorf("expected default utp style, got %+v", link.Style)
	}
	if link.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestLinkEndpoints(t *testing.T) {
	link := NewLink("l1", Endpoint{"r1", "ether1"}, Endpoint{"s1", "port1"}, LinkUTP)

	t.Run("touches", func(t *testing.T) {
		if !link.Touches("r1", "ether1") || !link.Touches("s1", "port1") {
			t.Error("expected link to touch both endpoints")
		}
		if link.Touches("r1", "port1") {
			t.Error("expected port names to be matched per node")
		}
	})

	t.Run("involves", func(t *testing.T) {
		if !link.Involves("r1") || !link.Involves("s1") {
			t.Error("expected link to involve both nodes")
		}
		if link.Involves("x") {
			t.Error("expected link not to involve x")
		}
	})
}

func TestLinkValidity(t *testing.T) {
	for _, lt := range LinkTypes {
		if !lt.Valid() {
			t.Errorf("expected %s to be valid", lt)
		}
	}
	if LinkType("coax").Valid() {
		t.Error("expected coax to be invalid")
	}
	if !LinkWarning.Valid() || LinkStatus("flapping").Valid() {
		t.Error("unexpected link status validity")
	}
}

func TestLinkClone(t *testing.T) {
	link := Link{ID: "l1", Metrics: &LinkMetrics{LatencyMs: 3}}
	clone := link.Clone()
	clone.Metrics.LatencyMs = 9
	if link.Metrics.LatencyMs != 3 {
		t.Error("expected metrics to be copied")
	}
}

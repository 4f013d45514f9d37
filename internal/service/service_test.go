package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"topomap/internal/domain"
	"topomap/internal/metrics"
	"topomap/internal/repository"
	"topomap/internal/repository/sqlite"
	"topomap/internal/topology"
)

func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestService(t *testing.T, repo repository.Repository) (*TopologyService, *metrics.Registry) {
	t.Helper()
	n := 0
	store := topology.NewStore(topology.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	m := metrics.NewRegistry()
	return NewTopologyService(store, repo, NewEventBus(), WithMetrics(m)), m
}

// drawLink runs the two-click gesture between two ports
func drawLink(t *testing.T, svc *TopologyService, src, srcPort, dst, dstPort string) domain.Link {
	t.Helper()
	if err := svc.BeginLink(src, srcPort); err != nil {
		t.Fatalf("BeginLink(%s/%s): %v", src, srcPort, err)
	}
	l, err := svc.SelectTargetPort(dst, dstPort)
	if err != nil {
		t.Fatalf("SelectTargetPort(%s/%s): %v", dst, dstPort, err)
	}
	return l
}

func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc, m := newTestService(t, repo)

	router := svc.AddNode(domain.DeviceRouter, 100, 100)
	sw := svc.AddNode(domain.DeviceSwitch, 300, 100)
	link := drawLink(t, svc, router.ID, "ether1", sw.ID, "port1")

	t.Run("nodes and links are stored", func(t *testing.T) {
		stored, err := repo.GetNode(ctx, router.ID)
		if err != nil {
			t.Fatalf("GetNode: %v", err)
		}
		if stored.Name != router.Name || stored.Type != domain.DeviceRouter {
			t.Errorf("unexpected stored node %+v", stored)
		}
		storedLink, err := repo.GetLink(ctx, link.ID)
		if err != nil {
			t.Fatalf("GetLink: %v", err)
		}
		if storedLink.LinkType != domain.LinkUTP {
			t.Errorf("expected utp link, got %s", storedLink.LinkType)
		}
	})

	t.Run("moves are stored", func(t *testing.T) {
		if err := svc.MoveNode(sw.ID, 42, 24); err != nil {
			t.Fatal(err)
		}
		stored, err := repo.GetNode(ctx, sw.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.X != 42 || stored.Y != 24 {
			t.Errorf("expected position (42,24), got (%v,%v)", stored.X, stored.Y)
		}
	})

	t.Run("removal cascades in storage", func(t *testing.T) {
		if _, err := svc.RemoveNode(sw.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.GetNode(ctx, sw.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected node gone, got %v", err)
		}
		if _, err := repo.GetLink(ctx, link.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected link gone, got %v", err)
		}
	})

	if got := testutil.ToFloat64(m.NodesTotal); got != 1 {
		t.Errorf("expected nodes gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.LinksTotal); got != 0 {
		t.Errorf("expected links gauge 0, got %v", got)
	}
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	first, _ := newTestService(t, repo)

	olt := first.AddNode(domain.DeviceOLT, 0, 0)
	ont := first.AddNode(domain.DeviceONT, 0, 200)
	drawLink(t, first, olt.ID, "pon1", ont.ID, "pon1")
	if _, err := first.SetParent(ont.ID, olt.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := first.SetPortStatus(olt.ID, "pon8", domain.PortDisabled); err != nil {
		t.Fatal(err)
	}

	second, _ := newTestService(t, repo)
	if err := second.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	nodes, links := second.Counts()
	if nodes != 2 || links != 1 {
		t.Fatalf("expected 2 nodes and 1 link, got %d/%d", nodes, links)
	}
	child, ok := second.Node(ont.ID)
	if !ok || child.ParentID != olt.ID || child.Level != 1 {
		t.Errorf("expected hierarchy restored, got %+v", child)
	}

	ports, err := second.Ports(olt.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range ports {
		switch p.Name {
		case "pon1":
			if !p.IsConnected {
				t.Error("expected pon1 connected after hydrate")
			}
		case "pon8":
			if p.Status != domain.PortDisabled {
				t.Errorf("expected pon8 disabled, got %s", p.Status)
			}
		}
	}

	// Hydrated state still enforces port exclusivity
	if err := second.BeginLink(ont.ID, "pon1"); !errors.Is(err, topology.ErrRejectedSelection) {
		t.Errorf("expected occupied port rejection, got %v", err)
	}
}

func TestRejectionMetrics(t *testing.T) {
	svc, m := newTestService(t, nil)
	sw := svc.AddNode(domain.DeviceSwitch, 0, 0)
	other := svc.AddNode(domain.DeviceSwitch, 100, 0)
	drawLink(t, svc, sw.ID, "port1", other.ID, "port1")

	if err := svc.BeginLink(sw.ID, "port1"); err == nil {
		t.Fatal("expected rejection")
	}
	if err := svc.BeginLink(sw.ID, "port99"); err == nil {
		t.Fatal("expected rejection")
	}

	if got := testutil.ToFloat64(m.LinkRejections.WithLabelValues(topology.ReasonPortConnected)); got != 1 {
		t.Errorf("expected 1 connected rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.LinkRejections.WithLabelValues(topology.ReasonUnknownPort)); got != 1 {
		t.Errorf("expected 1 unknown-port rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("begin_link", "error")); got != 2 {
		t.Errorf("expected 2 failed begin_link, got %v", got)
	}
}

func TestEventsPublished(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ch := make(chan Event, 16)
	svc.Events().Subscribe(ch)

	a := svc.AddNode(domain.DeviceRouter, 0, 0)
	b := svc.AddNode(domain.DeviceRouter, 10, 0)
	drawLink(t, svc, a.ID, "ether1", b.ID, "ether1")

	want := []EventType{
		EventNodeCreated,
		EventNodeCreated,
		EventSelectionChanged,
		EventLinkCreated,
		EventSelectionChanged,
	}
	for i, w := range want {
		select {
		case ev := <-ch:
			if ev.Type != w {
				t.Errorf("event %d: expected %s, got %s", i, w, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d: timed out waiting for %s", i, w)
		}
	}

	svc.Events().Unsubscribe(ch)
	svc.AddNode(domain.DeviceAP, 0, 0)
	select {
	case ev := <-ch:
		t.Errorf("expected no event after unsubscribe, got %s", ev.Type)
	default:
	}
}

// failingRepo fails every write
type failingRepo struct {
	repository.Repository
}

var errDiskFull = errors.New("disk full")

func (failingRepo) UpsertNode(context.Context, *domain.Node) error { return errDiskFull }
func (failingRepo) UpsertLink(context.Context, *domain.Link) error { return errDiskFull }
func (failingRepo) ReplaceTopology(context.Context, *domain.Fragment) error {
	return errDiskFull
}

// gatedRepo holds ReplaceTopology until release is closed
type gatedRepo struct {
	repository.Repository
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) ReplaceTopology(ctx context.Context, f *domain.Fragment) error {
	close(g.entered)
	<-g.release
	return g.Repository.ReplaceTopology(ctx, f)
}

func TestImportHoldsTopologyUntilSwapped(t *testing.T) {
	ctx := context.Background()
	base := newTestRepo(t)
	repo := &gatedRepo{Repository: base, entered: make(chan struct{}), release: make(chan struct{})}
	svc, _ := newTestService(t, repo)
	existing := svc.AddNode(domain.DeviceRouter, 0, 0)

	imported := make(chan error, 1)
	go func() {
		_, err := svc.Import(ctx, strings.NewReader("nodes:\n  - id: s9\n    type: switch\n"), "yaml", ImportMerge)
		imported <- err
	}()
	<-repo.entered

	added := make(chan domain.Node, 1)
	go func() { added <- svc.AddNode(domain.DeviceAP, 0, 0) }()

	select {
	case <-added:
		t.Fatal("expected the command to wait for the import")
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.release)
	if err := <-imported; err != nil {
		t.Fatalf("Import: %v", err)
	}
	ap := <-added

	for _, id := range []string{existing.ID, "s9", ap.ID} {
		if _, ok := svc.Node(id); !ok {
			t.Errorf("expected node %s in memory", id)
		}
		if _, err := base.GetNode(ctx, id); err != nil {
			t.Errorf("expected node %s stored, got %v", id, err)
		}
	}
}

func TestPersistFailure(t *testing.T) {
	svc, m := newTestService(t, failingRepo{})

	n, err := svc.CreateNode(domain.DeviceRouter, 0, 0)
	if err != nil {
		t.Fatalf("expected command to succeed despite storage failure, got %v", err)
	}
	if _, ok := svc.Node(n.ID); !ok {
		t.Error("expected node in memory")
	}
	if got := testutil.ToFloat64(m.PersistFailures.WithLabelValues(string(topology.ChangeNodeAdded))); got != 1 {
		t.Errorf("expected 1 persist failure, got %v", got)
	}

	// Reload is all-or-nothing: the store keeps its contents when storage fails
	f := domain.NewFragment()
	f.AddNode(domain.Node{ID: "x", Type: domain.DeviceSwitch})
	if err := svc.Reload(context.Background(), f); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if _, ok := svc.Node(n.ID); !ok {
		t.Error("expected previous topology kept")
	}
	if _, ok := svc.Node("x"); ok {
		t.Error("expected fragment not applied")
	}
}

func TestCreateNodeValidatesType(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.CreateNode("toaster", 0, 0); !errors.Is(err, topology.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if nodes, _ := svc.Counts(); nodes != 0 {
		t.Errorf("expected no node created, got %d", nodes)
	}
}

const importYAML = `
nodes:
  - id: core
    type: router
  - id: dist
    type: switch
    parent: core
links:
  - id: uplink
    source: core/sfp1
    target: dist/sfp1
`

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc, _ := newTestService(t, repo)

	existing := svc.AddNode(domain.DeviceAP, 0, 0)

	t.Run("merge keeps existing nodes", func(t *testing.T) {
		res, err := svc.Import(ctx, strings.NewReader(importYAML), "yaml", ImportMerge)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.NodesImported != 2 || res.LinksImported != 1 || res.NodesTotal != 3 || res.LinksTotal != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		if _, ok := svc.Node(existing.ID); !ok {
			t.Error("expected existing node kept")
		}
		l, ok := svc.Link("uplink")
		if !ok || l.LinkType != domain.LinkFiber {
			t.Errorf("expected inferred fiber link, got %+v", l)
		}
		stored, err := repo.LoadTopology(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(stored.Nodes) != 3 || len(stored.Links) != 1 {
			t.Errorf("expected storage to match, got %d/%d", len(stored.Nodes), len(stored.Links))
		}
	})

	t.Run("replace discards existing nodes", func(t *testing.T) {
		res, err := svc.Import(ctx, strings.NewReader(importYAML), "yaml", ImportReplace)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.NodesTotal != 2 {
			t.Errorf("expected 2 nodes, got %d", res.NodesTotal)
		}
		if _, ok := svc.Node(existing.ID); ok {
			t.Error("expected existing node dropped")
		}
	})

	t.Run("invalid import leaves topology alone", func(t *testing.T) {
		bad := "links:\n  - source: core/sfp1\n    target: ghost/port1\n"
		if _, err := svc.Import(ctx, strings.NewReader(bad), "yaml", ImportMerge); !errors.Is(err, topology.ErrInvalidTopology) {
			t.Errorf("expected ErrInvalidTopology, got %v", err)
		}
		if nodes, links := svc.Counts(); nodes != 2 || links != 1 {
			t.Errorf("expected topology unchanged, got %d/%d", nodes, links)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		if _, err := svc.Import(ctx, strings.NewReader(importYAML), "yaml", "append"); !errors.Is(err, topology.ErrInvalidValue) {
			t.Errorf("expected ErrInvalidValue, got %v", err)
		}
	})

	t.Run("export round trips", func(t *testing.T) {
		var buf bytes.Buffer
		if err := svc.Export(&buf, "json"); err != nil {
			t.Fatalf("Export: %v", err)
		}
		other, _ := newTestService(t, nil)
		if _, err := other.Import(ctx, &buf, "json", ImportReplace); err != nil {
			t.Fatalf("re-import: %v", err)
		}
		if nodes, links := other.Counts(); nodes != 2 || links != 1 {
			t.Errorf("expected 2 nodes and 1 link, got %d/%d", nodes, links)
		}
	})
}

func TestViewport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newTestRepo(t))

	vp, err := svc.LoadViewport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if vp != domain.DefaultViewport() {
		t.Errorf("expected default viewport, got %+v", vp)
	}

	want := domain.Viewport{PanX: -40, PanY: 12.5, Zoom: 2}
	if err := svc.SaveViewport(ctx, want); err != nil {
		t.Fatalf("SaveViewport: %v", err)
	}
	if got, _ := svc.LoadViewport(ctx); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if err := svc.SaveViewport(ctx, domain.Viewport{Zoom: 0}); !errors.Is(err, topology.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for zero zoom, got %v", err)
	}
}

func TestMergeFragments(t *testing.T) {
	base := domain.NewFragment()
	base.AddNode(domain.Node{ID: "a", Name: "old"})
	base.AddNode(domain.Node{ID: "b"})
	base.AddLink(domain.Link{ID: "l1"})

	in := domain.NewFragment()
	in.AddNode(domain.Node{ID: "a", Name: "new"})
	in.AddNode(domain.Node{Name: "anonymous"})
	in.AddLink(domain.Link{ID: "l2"})

	out := mergeFragments(base, in)
	if len(out.Nodes) != 3 || len(out.Links) != 2 {
		t.Fatalf("expected 3 nodes and 2 links, got %d/%d", len(out.Nodes), len(out.Links))
	}
	if out.Nodes[0].Name != "new" {
		t.Errorf("expected incoming node to replace in place, got %q", out.Nodes[0].Name)
	}
}

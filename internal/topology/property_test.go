package topology

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"topomap/internal/domain"
)

// op is one randomly generated editor action
type op struct {
	Kind  int
	Node  int
	Port  int
	Other int
}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 6),
		gen.IntRange(0, 7),
		gen.IntRange(0, 25),
		gen.IntRange(0, 7),
	).Map(func(v []interface{}) op {
		return op{Kind: v[0].(int), Node: v[1].(int), Port: v[2].(int), Other: v[3].(int)}
	})
}

// run applies a sequence of ops to a fresh store
func run(ops []op) *Store {
	s := newTestStore()
	pick := func(i int) (domain.Node, bool) {
		snap := s.Snapshot()
		if len(snap.Nodes) == 0 {
			return domain.Node{}, false
		}
		return snap.Nodes[i%len(snap.Nodes)], true
	}
	portOf := func(n domain.Node, i int) string {
		ports := domain.PortTemplate(n.Type)
		return ports[i%len(ports)].Name
	}

	for _, o := range ops {
		switch o.Kind {
		case 0:
			s.AddNode(domain.DeviceTypes[o.Node%len(domain.DeviceTypes)], float64(o.Port), float64(o.Other))
		case 1:
			if n, ok := pick(o.Node); ok {
				_ = s.BeginLink(n.ID, portOf(n, o.Port))
			}
		case 2:
			if n, ok := pick(o.Other); ok {
				_, _ = s.SelectTargetPort(n.ID, portOf(n, o.Port))
			}
		case 3:
			if n, ok := pick(o.Node); ok {
				_, _ = s.RemoveNode(n.ID)
			}
		case 4:
			s.CancelLink()
		case 5:
			if n, ok := pick(o.Node); ok {
				if p, ok := pick(o.Other); ok {
					_, _ = s.SetParent(n.ID, p.ID)
				}
			}
		case 6:
			snap := s.Snapshot()
			if len(snap.Links) > 0 {
				_, _ = s.RemoveLink(snap.Links[o.Port%len(snap.Links)].ID)
			}
		}
	}
	return s
}

func TestStoreInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("a port carries at most one link", prop.ForAll(
		func(ops []op) bool {
			snap := run(ops).Snapshot()
			used := make(map[domain.Endpoint]bool)
			for _, l := range snap.Links {
				for _, ep := range []domain.Endpoint{l.Source(), l.Target()} {
					if used[ep] {
						return false
					}
					used[ep] = true
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.Property("links only reference existing nodes and ports", prop.ForAll(
		func(ops []op) bool {
			snap := run(ops).Snapshot()
			types := make(map[string]domain.DeviceType)
			for _, n := range snap.Nodes {
				types[n.ID] = n.Type
			}
			for _, l := range snap.Links {
				for _, ep := range []domain.Endpoint{l.Source(), l.Target()} {
					dt, ok := types[ep.NodeID]
					if !ok {
						return false
					}
					if _, ok := domain.FindPort(dt, ep.Port); !ok {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.Property("drawn links carry the classified type", prop.ForAll(
		func(ops []op) bool {
			snap := run(ops).Snapshot()
			types := make(map[string]domain.DeviceType)
			for _, n := range snap.Nodes {
				types[n.ID] = n.Type
			}
			for _, l := range snap.Links {
				sp, _ := domain.FindPort(types[l.SourceNodeID], l.SourcePort)
				tp, _ := domain.FindPort(types[l.TargetNodeID], l.TargetPort)
				if l.LinkType != domain.Classify(sp.Type, tp.Type) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.Property("port view agrees with links", prop.ForAll(
		func(ops []op) bool {
			s := run(ops)
			snap := s.Snapshot()
			connected := 0
			for _, n := range snap.Nodes {
				ports, err := s.Ports(n.ID)
				if err != nil {
					return false
				}
				for _, p := range ports {
					if p.IsConnected {
						connected++
					}
				}
			}
			return connected == 2*len(snap.Links)
		},
		gen.SliceOf(genOp()),
	))

	properties.Property("levels match parent depth", prop.ForAll(
		func(ops []op) bool {
			snap := run(ops).Snapshot()
			byID := make(map[string]domain.Node)
			for _, n := range snap.Nodes {
				byID[n.ID] = n
			}
			for _, n := range snap.Nodes {
				if n.ParentID == "" {
					if n.Level != 0 {
						return false
					}
					continue
				}
				p, ok := byID[n.ParentID]
				if !ok || n.Level != p.Level+1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.Property("idle after a completed or cancelled drawing", prop.ForAll(
		func(ops []op) bool {
			s := run(ops)
			s.CancelLink()
			return s.Selection().State == LinkIdle
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}

package topology

import (
	"fmt"
	"time"

	"topomap/internal/domain"
)

// Load replaces the whole store with the given nodes and links. The data is
// validated first and nothing changes on error. Missing link types are
// inferred from the port types and missing ids are generated.
func (s *Store) Load(f *domain.Fragment) error {
	return s.apply(func() ([]Change, error) {
		return s.load(f)
	})
}

// Transform replaces the store with the fragment fn builds from the current
// contents. fn runs with the store locked, so no other mutation lands between
// the read and the swap; it must not call back into the store. Nothing
// changes when fn or validation fails.
func (s *Store) Transform(fn func(current *domain.Fragment) (*domain.Fragment, error)) error {
	return s.apply(func() ([]Change, error) {
		next, err := fn(s.snapshotLocked().Fragment())
		if err != nil {
			return nil, err
		}
		return s.load(next)
	})
}

func (s *Store) load(f *domain.Fragment) ([]Change, error) {
	next := &Store{
		nodes:    make(map[string]*nodeEntry),
		links:    make(map[string]*linkEntry),
		occupied: make(map[domain.Endpoint]string),
		placed:   make(map[domain.DeviceType]int),
	}
	now := s.now()

	for i := range f.Nodes {
		n := f.Nodes[i].Clone()
		if n.ID == "" {
			n.ID = s.newID()
		}
		if _, dup := next.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %s", ErrInvalidTopology, n.ID)
		}
		if n.Status == "" {
			n.Status = domain.NodeUnknown
		} else if !n.Status.Valid() {
			return nil, fmt.Errorf("%w: node %s has status %q", ErrInvalidTopology, n.ID, n.Status)
		}
		if n.Name == "" {
			n.Name = n.Type.DisplayName()
		}
		for port, st := range n.PortStatus {
			if _, ok := domain.FindPort(n.Type, port); !ok {
				return nil, fmt.Errorf("%w: node %s has status for unknown port %s", ErrInvalidTopology, n.ID, port)
			}
			if !st.Valid() {
				return nil, fmt.Errorf("%w: node %s port %s has status %q", ErrInvalidTopology, n.ID, port, st)
			}
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		next.placed[n.Type]++
		next.insertNode(&n)
	}

	for _, n := range next.sortedNodes() {
		if n.ParentID == "" {
			continue
		}
		if _, ok := next.nodes[n.ParentID]; !ok {
			return nil, fmt.Errorf("%w: node %s has unknown parent %s", ErrInvalidTopology, n.ID, n.ParentID)
		}
		if createsCycle(next.nodes, n.ID, n.ParentID) {
			return nil, fmt.Errorf("%w: node %s: %v", ErrInvalidTopology, n.ID, ErrParentCycle)
		}
	}
	discard := newTouchSet()
	for _, n := range next.sortedNodes() {
		if n.ParentID == "" {
			next.relevel(n, 0, discard)
		}
	}

	for i := range f.Links {
		l := f.Links[i].Clone()
		if err := next.admitLink(&l, s.newID, now); err != nil {
			return nil, err
		}
	}

	s.nodes = next.nodes
	s.links = next.links
	s.occupied = next.occupied
	s.placed = next.placed
	s.seq = next.seq
	s.sel = idleSelection()
	return []Change{{Kind: ChangeReloaded}}, nil
}

func (s *Store) admitLink(l *domain.Link, newID func() string, now time.Time) error {
	if l.ID == "" {
		l.ID = newID()
	}
	if _, dup := s.links[l.ID]; dup {
		return fmt.Errorf("%w: duplicate link id %s", ErrInvalidTopology, l.ID)
	}
	if l.Source() == l.Target() {
		return fmt.Errorf("%w: link %s joins a port to itself", ErrInvalidTopology, l.ID)
	}

	var types [2]domain.PortType
	for i, ep := range []domain.Endpoint{l.Source(), l.Target()} {
		e, ok := s.nodes[ep.NodeID]
		if !ok {
			return fmt.Errorf("%w: link %s references unknown node %s", ErrInvalidTopology, l.ID, ep.NodeID)
		}
		p, ok := domain.FindPort(e.node.Type, ep.Port)
		if !ok {
			return fmt.Errorf("%w: link %s references unknown port %s/%s", ErrInvalidTopology, l.ID, ep.NodeID, ep.Port)
		}
		if e.node.PortStatusOf(ep.Port) == domain.PortDisabled {
			return fmt.Errorf("%w: link %s uses disabled port %s/%s", ErrInvalidTopology, l.ID, ep.NodeID, ep.Port)
		}
		if other, taken := s.occupied[ep]; taken {
			return fmt.Errorf("%w: port %s/%s used by links %s and %s", ErrInvalidTopology, ep.NodeID, ep.Port, other, l.ID)
		}
		types[i] = p.Type
	}

	if l.LinkType == "" {
		l.LinkType = domain.Classify(types[0], types[1])
	} else if !l.LinkType.Valid() {
		return fmt.Errorf("%w: link %s has type %q", ErrInvalidTopology, l.ID, l.LinkType)
	}
	if l.Status == "" {
		l.Status = domain.LinkConnected
	} else if !l.Status.Valid() {
		return fmt.Errorf("%w: link %s has status %q", ErrInvalidTopology, l.ID, l.Status)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.Style == (domain.LinkStyle{}) {
		l.Style = domain.DefaultLinkStyle(l.LinkType)
	}
	s.insertLink(l)
	return nil
}

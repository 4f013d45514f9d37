package topology

import (
	"fmt"

	"topomap/internal/domain"
)

// Selection returns the current link-drawing state
func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.clone()
}

// BeginLink selects the source port of a new link. A port that is connected,
// disabled or unknown is rejected and the state is left untouched.
// Beginning while a link is already being drawn replaces its source.
func (s *Store) BeginLink(nodeID, port string) error {
	return s.apply(func() ([]Change, error) {
		e, ok := s.nodes[nodeID]
		if !ok {
			return nil, &SelectionError{NodeID: nodeID, Port: port, Reason: "device does not exist", Err: ErrNodeNotFound}
		}
		p, serr := s.checkPortFree(e.node, port)
		if serr != nil {
			return nil, serr
		}

		s.sel = Selection{
			State:      LinkSourceSelected,
			Source:     &domain.Endpoint{NodeID: nodeID, Port: port},
			SourceType: p.Type,
		}
		return []Change{selectionChange(s.sel)}, nil
	})
}

// HoverTarget records the node the pointer is over while drawing
func (s *Store) HoverTarget(nodeID string) error {
	return s.apply(func() ([]Change, error) {
		if !s.sel.Active() {
			return nil, ErrNoSource
		}
		if _, ok := s.nodes[nodeID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		if s.sel.State == LinkTargetHover && s.sel.HoverNodeID == nodeID {
			return nil, nil
		}
		s.sel.State = LinkTargetHover
		s.sel.HoverNodeID = nodeID
		return []Change{selectionChange(s.sel)}, nil
	})
}

// ClearHover returns from target-hover to source-selected
func (s *Store) ClearHover() {
	s.apply(func() ([]Change, error) {
		if s.sel.State != LinkTargetHover {
			return nil, nil
		}
		s.sel.State = LinkSourceSelected
		s.sel.HoverNodeID = ""
		return []Change{selectionChange(s.sel)}, nil
	})
}

// SelectTargetPort completes the link being drawn. The link type is inferred
// from the two port types. On success the state returns to idle. A rejected
// target leaves the state as it was.
func (s *Store) SelectTargetPort(nodeID, port string) (domain.Link, error) {
	var out domain.Link
	err := s.apply(func() ([]Change, error) {
		if !s.sel.Active() {
			return nil, ErrNoSource
		}
		src := *s.sel.Source
		dst := domain.Endpoint{NodeID: nodeID, Port: port}
		if dst == src {
			return nil, &SelectionError{NodeID: nodeID, Port: port, Reason: ReasonSamePort, Err: ErrInvalidTarget}
		}

		te, ok := s.nodes[nodeID]
		if !ok {
			return nil, &SelectionError{NodeID: nodeID, Port: port, Reason: "device does not exist", Err: ErrNodeNotFound}
		}
		tp, serr := s.checkPortFree(te.node, port)
		if serr != nil {
			return nil, serr
		}

		// the source may have been disabled since it was chosen
		se, ok := s.nodes[src.NodeID]
		var sp domain.DevicePort
		if ok {
			sp, serr = s.checkPortFree(se.node, src.Port)
		}
		if !ok || serr != nil {
			s.sel = idleSelection()
			return []Change{selectionChange(s.sel)}, rejected(src.NodeID, src.Port, ReasonSourceLost)
		}

		link := domain.NewLink(
			s.allocateID(func(id string) bool { _, ok := s.links[id]; return ok }),
			src, dst, domain.Classify(sp.Type, tp.Type),
		)
		link.CreatedAt = s.now()
		s.insertLink(link)
		out = link.Clone()

		s.sel = idleSelection()
		return []Change{linkChange(ChangeLinkAdded, link), selectionChange(s.sel)}, nil
	})
	return out, err
}

// CancelLink abandons the link being drawn. It is a no-op when idle.
func (s *Store) CancelLink() {
	s.apply(func() ([]Change, error) {
		if !s.sel.Active() {
			return nil, nil
		}
		s.sel = idleSelection()
		return []Change{selectionChange(s.sel)}, nil
	})
}

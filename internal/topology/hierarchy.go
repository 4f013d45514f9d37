package topology

import (
	"fmt"
	"time"

	"topomap/internal/domain"
)

// touchSet collects nodes modified by a hierarchy change, in first-touch order
type touchSet struct {
	order []*domain.Node
	seen  map[string]bool
}

func newTouchSet() *touchSet {
	return &touchSet{seen: make(map[string]bool)}
}

func (t *touchSet) add(n *domain.Node) {
	if t.seen[n.ID] {
		return
	}
	t.seen[n.ID] = true
	t.order = append(t.order, n)
}

func (t *touchSet) changes(now time.Time) []Change {
	out := make([]Change, 0, len(t.order))
	for _, n := range t.order {
		n.UpdatedAt = now
		out = append(out, nodeChange(ChangeNodeUpdated, n))
	}
	return out
}

func (s *Store) childrenOf(id string) []*domain.Node {
	var children []*domain.Node
	for _, n := range s.sortedNodes() {
		if n.ParentID == id {
			children = append(children, n)
		}
	}
	return children
}

// relevel sets n to level and its descendants to their depth below it
func (s *Store) relevel(n *domain.Node, level int, touched *touchSet) {
	if n.Level != level {
		n.Level = level
		touched.add(n)
	}
	for _, c := range s.childrenOf(n.ID) {
		s.relevel(c, level+1, touched)
	}
}

// createsCycle reports whether making parentID the parent of id would loop
func createsCycle(nodes map[string]*nodeEntry, id, parentID string) bool {
	cur := parentID
	for steps := 0; cur != "" && steps <= len(nodes); steps++ {
		if cur == id {
			return true
		}
		e, ok := nodes[cur]
		if !ok {
			return false
		}
		cur = e.node.ParentID
	}
	return cur != ""
}

// SetParent attaches a node under parentID, or makes it a root when parentID
// is empty. Levels of the node and its subtree are recomputed.
func (s *Store) SetParent(id, parentID string) (domain.Node, error) {
	var out domain.Node
	err := s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}

		level := 0
		if parentID != "" {
			pe, ok := s.nodes[parentID]
			if !ok {
				return nil, fmt.Errorf("%w: parent %s", ErrNodeNotFound, parentID)
			}
			if createsCycle(s.nodes, id, parentID) {
				return nil, fmt.Errorf("%w: %s under %s", ErrParentCycle, id, parentID)
			}
			level = pe.node.Level + 1
		}

		n := e.node
		if n.ParentID == parentID {
			out = n.Clone()
			return nil, nil
		}
		n.ParentID = parentID
		touched := newTouchSet()
		touched.add(n)
		s.relevel(n, level, touched)
		changes := touched.changes(s.now())
		out = n.Clone()
		return changes, nil
	})
	return out, err
}

// Children returns copies of the direct children of a node
func (s *Store) Children(id string) []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Node
	for _, c := range s.childrenOf(id) {
		out = append(out, c.Clone())
	}
	return out
}

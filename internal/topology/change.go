package topology

import "topomap/internal/domain"

// ChangeKind identifies what a mutation did
type ChangeKind string

const (
	ChangeNodeAdded   ChangeKind = "node_added"
	ChangeNodeUpdated ChangeKind = "node_updated"
	ChangeNodeMoved   ChangeKind = "node_moved"
	ChangeNodeRemoved ChangeKind = "node_removed"
	ChangeLinkAdded   ChangeKind = "link_added"
	ChangeLinkUpdated ChangeKind = "link_updated"
	ChangeLinkRemoved ChangeKind = "link_removed"
	ChangeSelection   ChangeKind = "selection"
	ChangeReloaded    ChangeKind = "reloaded"
)

// Change describes one applied mutation. Node and Link are copies.
type Change struct {
	Kind      ChangeKind   `json:"kind"`
	Node      *domain.Node `json:"node,omitempty"`
	Link      *domain.Link `json:"link,omitempty"`
	Selection *Selection   `json:"selection,omitempty"`
}

func nodeChange(kind ChangeKind, n *domain.Node) Change {
	c := n.Clone()
	return Change{Kind: kind, Node: &c}
}

func linkChange(kind ChangeKind, l *domain.Link) Change {
	c := l.Clone()
	return Change{Kind: kind, Link: &c}
}

func selectionChange(s Selection) Change {
	c := s.clone()
	return Change{Kind: ChangeSelection, Selection: &c}
}

package topology

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"topomap/internal/domain"
)

// ErrInvalidValue is returned for enum values outside their domain
var ErrInvalidValue = errors.New("invalid value")

type nodeEntry struct {
	node *domain.Node
	seq  uint64
}

type linkEntry struct {
	link *domain.Link
	seq  uint64
}

// Store is the single-writer owner of one topology view
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	nodes    map[string]*nodeEntry
	links    map[string]*linkEntry
	occupied map[domain.Endpoint]string
	sel      Selection
	placed   map[domain.DeviceType]int
	seq      uint64
	subs     []func(Change)

	newID func() string
	now   func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithIDGenerator overrides the node/link id generator
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		s.now = fn
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:    make(map[string]*nodeEntry),
		links:    make(map[string]*linkEntry),
		occupied: make(map[domain.Endpoint]string),
		placed:   make(map[domain.DeviceType]int),
		sel:      idleSelection(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive every subsequent change
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// apply runs fn under the state lock and then delivers its changes.
// notifyMu is taken before the state lock is dropped so deliveries keep
// mutation order even when callers race.
func (s *Store) apply(fn func() ([]Change, error)) error {
	s.mu.Lock()
	changes, err := fn()
	if len(changes) == 0 {
		s.mu.Unlock()
		return err
	}
	subs := s.subs
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
	return err
}

func (s *Store) allocateID(taken func(string) bool) string {
	id := s.newID()
	if taken(id) {
		id = fmt.Sprintf("%s-%d", id, s.seq+1)
	}
	return id
}

func (s *Store) insertNode(n *domain.Node) {
	s.seq++
	s.nodes[n.ID] = &nodeEntry{node: n, seq: s.seq}
}

func (s *Store) insertLink(l *domain.Link) {
	s.seq++
	s.links[l.ID] = &linkEntry{link: l, seq: s.seq}
	s.occupied[l.Source()] = l.ID
	s.occupied[l.Target()] = l.ID
}

func (s *Store) deleteLink(id string) *domain.Link {
	e, ok := s.links[id]
	if !ok {
		return nil
	}
	delete(s.links, id)
	if s.occupied[e.link.Source()] == id {
		delete(s.occupied, e.link.Source())
	}
	if s.occupied[e.link.Target()] == id {
		delete(s.occupied, e.link.Target())
	}
	return e.link
}

func (s *Store) sortedNodes() []*domain.Node {
	entries := make([]*nodeEntry, 0, len(s.nodes))
	for _, e := range s.nodes {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	nodes := make([]*domain.Node, len(entries))
	for i, e := range entries {
		nodes[i] = e.node
	}
	return nodes
}

func (s *Store) sortedLinks() []*domain.Link {
	entries := make([]*linkEntry, 0, len(s.links))
	for _, e := range s.links {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	links := make([]*domain.Link, len(entries))
	for i, e := range entries {
		links[i] = e.link
	}
	return links
}

// checkPortFree validates that a port exists, is not disabled and is not occupied
func (s *Store) checkPortFree(node *domain.Node, port string) (domain.DevicePort, *SelectionError) {
	p, ok := domain.FindPort(node.Type, port)
	if !ok {
		return p, rejected(node.ID, port, ReasonUnknownPort)
	}
	p.Status = node.PortStatusOf(port)
	if p.Status == domain.PortDisabled {
		return p, rejected(node.ID, port, ReasonPortDisabled)
	}
	if _, taken := s.occupied[domain.Endpoint{NodeID: node.ID, Port: port}]; taken {
		return p, rejected(node.ID, port, ReasonPortConnected)
	}
	return p, nil
}

// AddNode places a new device of the given type at canvas position (x, y).
// It always succeeds.
func (s *Store) AddNode(t domain.DeviceType, x, y float64) domain.Node {
	var out domain.Node
	s.apply(func() ([]Change, error) {
		s.placed[t]++
		now := s.now()
		node := domain.NewNode(s.allocateID(func(id string) bool { _, ok := s.nodes[id]; return ok }), t, "")
		node.X, node.Y = x, y
		node.CreatedAt, node.UpdatedAt = now, now
		applyDeviceDefaults(node, s.placed[t])
		s.insertNode(node)
		out = node.Clone()
		return []Change{nodeChange(ChangeNodeAdded, node)}, nil
	})
	return out
}

// MoveNode updates a node's canvas position. Links are unaffected.
func (s *Store) MoveNode(id string, x, y float64) error {
	return s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		e.node.X, e.node.Y = x, y
		e.node.UpdatedAt = s.now()
		return []Change{nodeChange(ChangeNodeMoved, e.node)}, nil
	})
}

// MoveNodes applies several positions at once. Nothing moves if any id is unknown.
func (s *Store) MoveNodes(positions []domain.NodePosition) error {
	return s.apply(func() ([]Change, error) {
		for _, p := range positions {
			if _, ok := s.nodes[p.NodeID]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, p.NodeID)
			}
		}
		now := s.now()
		changes := make([]Change, 0, len(positions))
		for _, p := range positions {
			n := s.nodes[p.NodeID].node
			n.X, n.Y = p.X, p.Y
			n.UpdatedAt = now
			changes = append(changes, nodeChange(ChangeNodeMoved, n))
		}
		return changes, nil
	})
}

// NodeUpdate carries optional node field edits; nil fields are left alone
type NodeUpdate struct {
	Name     *string
	Status   *domain.NodeStatus
	Metadata *domain.NodeMetadata
	Geo      *domain.GeoPosition
	ClearGeo bool
}

// UpdateNode edits descriptive fields of a node
func (s *Store) UpdateNode(id string, u NodeUpdate) (domain.Node, error) {
	var out domain.Node
	err := s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if u.Status != nil && !u.Status.Valid() {
			return nil, fmt.Errorf("%w: node status %q", ErrInvalidValue, *u.Status)
		}

		n := e.node
		if u.Name != nil {
			n.Name = *u.Name
		}
		if u.Status != nil {
			n.Status = *u.Status
		}
		if u.Metadata != nil {
			md := *u.Metadata
			md.SampleIP = n.Metadata.SampleIP && md.IP == n.Metadata.IP
			n.Metadata = md
		}
		if u.ClearGeo {
			n.Geo = nil
		} else if u.Geo != nil {
			geo := *u.Geo
			n.Geo = &geo
		}
		n.UpdatedAt = s.now()
		out = n.Clone()
		return []Change{nodeChange(ChangeNodeUpdated, n)}, nil
	})
	return out, err
}

// UpdateNodeMetrics records runtime measurements and, if status is non-empty,
// the observed status
func (s *Store) UpdateNodeMetrics(id string, metrics domain.NodeMetrics, status domain.NodeStatus) error {
	return s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if status != "" && !status.Valid() {
			return nil, fmt.Errorf("%w: node status %q", ErrInvalidValue, status)
		}
		e.node.Metrics = metrics
		if status != "" {
			e.node.Status = status
		}
		e.node.UpdatedAt = s.now()
		return []Change{nodeChange(ChangeNodeUpdated, e.node)}, nil
	})
}

// SetPortStatus sets the administrative status of a port.
// Disabling a port that carries a link is rejected.
func (s *Store) SetPortStatus(id, port string, status domain.PortStatus) (domain.DevicePort, error) {
	var out domain.DevicePort
	err := s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if !status.Valid() {
			return nil, fmt.Errorf("%w: port status %q", ErrInvalidValue, status)
		}
		p, ok := domain.FindPort(e.node.Type, port)
		if !ok {
			return nil, rejected(id, port, ReasonUnknownPort)
		}
		linkID, occupied := s.occupied[domain.Endpoint{NodeID: id, Port: port}]
		if status == domain.PortDisabled && occupied {
			return nil, rejected(id, port, ReasonPortConnected)
		}

		n := e.node
		if status == domain.PortUp {
			delete(n.PortStatus, port)
		} else {
			if n.PortStatus == nil {
				n.PortStatus = make(map[string]domain.PortStatus)
			}
			n.PortStatus[port] = status
		}
		n.UpdatedAt = s.now()

		p.Status = status
		p.IsConnected = occupied
		p.LinkID = linkID
		out = p
		return []Change{nodeChange(ChangeNodeUpdated, n)}, nil
	})
	return out, err
}

// RemoveNode deletes a node together with every link attached to it, freeing
// the ports at the far ends. Children of the node become roots.
func (s *Store) RemoveNode(id string) ([]domain.Link, error) {
	var removed []domain.Link
	err := s.apply(func() ([]Change, error) {
		e, ok := s.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}

		var changes []Change
		for _, l := range s.sortedLinks() {
			if l.Involves(id) {
				s.deleteLink(l.ID)
				removed = append(removed, l.Clone())
				changes = append(changes, linkChange(ChangeLinkRemoved, l))
			}
		}

		delete(s.nodes, id)
		changes = append(changes, nodeChange(ChangeNodeRemoved, e.node))

		touched := newTouchSet()
		for _, child := range s.childrenOf(id) {
			child.ParentID = ""
			touched.add(child)
			s.relevel(child, 0, touched)
		}
		changes = append(changes, touched.changes(s.now())...)

		if s.sel.Active() {
			if s.sel.Source.NodeID == id {
				s.sel = idleSelection()
				changes = append(changes, selectionChange(s.sel))
			} else if s.sel.HoverNodeID == id {
				s.sel.State = LinkSourceSelected
				s.sel.HoverNodeID = ""
				changes = append(changes, selectionChange(s.sel))
			}
		}
		return changes, nil
	})
	return removed, err
}

// RemoveLink deletes a link and frees both of its ports
func (s *Store) RemoveLink(id string) (domain.Link, error) {
	var out domain.Link
	err := s.apply(func() ([]Change, error) {
		l := s.deleteLink(id)
		if l == nil {
			return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
		}
		out = l.Clone()
		return []Change{linkChange(ChangeLinkRemoved, l)}, nil
	})
	return out, err
}

// LinkUpdate carries optional link field edits; nil fields are left alone.
// Setting Type without Style resets the style to the type's default.
type LinkUpdate struct {
	Type    *domain.LinkType
	Status  *domain.LinkStatus
	Metrics *domain.LinkMetrics
	Style   *domain.LinkStyle
}

// UpdateLink edits a link. An explicit Type is the only way to mark a link virtual.
func (s *Store) UpdateLink(id string, u LinkUpdate) (domain.Link, error) {
	var out domain.Link
	err := s.apply(func() ([]Change, error) {
		e, ok := s.links[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
		}
		if u.Type != nil && !u.Type.Valid() {
			return nil, fmt.Errorf("%w: link type %q", ErrInvalidValue, *u.Type)
		}
		if u.Status != nil && !u.Status.Valid() {
			return nil, fmt.Errorf("%w: link status %q", ErrInvalidValue, *u.Status)
		}

		l := e.link
		if u.Type != nil {
			l.LinkType = *u.Type
			l.Style = domain.DefaultLinkStyle(l.LinkType)
		}
		if u.Style != nil {
			l.Style = *u.Style
		}
		if u.Status != nil {
			l.Status = *u.Status
		}
		if u.Metrics != nil {
			m := *u.Metrics
			l.Metrics = &m
		}
		out = l.Clone()
		return []Change{linkChange(ChangeLinkUpdated, l)}, nil
	})
	return out, err
}

// Node returns a copy of the node with the given id
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return e.node.Clone(), true
}

// Link returns a copy of the link with the given id
func (s *Store) Link(id string) (domain.Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.links[id]
	if !ok {
		return domain.Link{}, false
	}
	return e.link.Clone(), true
}

// Ports returns the derived port list of a node
func (s *Store) Ports(id string) ([]domain.DevicePort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	var touching []domain.Link
	for _, l := range s.sortedLinks() {
		if l.Involves(id) {
			touching = append(touching, *l)
		}
	}
	return e.node.Ports(touching), nil
}

// Counts returns the number of nodes and links
func (s *Store) Counts() (nodes, links int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes), len(s.links)
}

// Snapshot is a consistent copy of the whole store
type Snapshot struct {
	Nodes     []domain.Node `json:"nodes"`
	Links     []domain.Link `json:"links"`
	Selection Selection     `json:"selection"`
}

// Snapshot returns deep copies of all nodes and links in insertion order
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes:     make([]domain.Node, 0, len(s.nodes)),
		Links:     make([]domain.Link, 0, len(s.links)),
		Selection: s.sel.clone(),
	}
	for _, n := range s.sortedNodes() {
		snap.Nodes = append(snap.Nodes, n.Clone())
	}
	for _, l := range s.sortedLinks() {
		snap.Links = append(snap.Links, l.Clone())
	}
	return snap
}

// Fragment returns the snapshot as an import/export fragment
func (snap Snapshot) Fragment() *domain.Fragment {
	return &domain.Fragment{Nodes: snap.Nodes, Links: snap.Links}
}

// Ports derives the ports of a node in the snapshot
func (snap Snapshot) Ports(nodeID string) []domain.DevicePort {
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == nodeID {
			return snap.Nodes[i].Ports(snap.Links)
		}
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"topomap/internal/codec"
	"topomap/internal/domain"
	"topomap/internal/metrics"
	"topomap/internal/repository"
	"topomap/internal/topology"
)

// DefaultPersistTimeout bounds each write-through to the repository
const DefaultPersistTimeout = 5 * time.Second

// ImportStrategy controls how imported data combines with the current topology
type ImportStrategy string

const (
	// ImportReplace discards the current topology
	ImportReplace ImportStrategy = "replace"
	// ImportMerge keeps the current topology; imported ids win on conflict
	ImportMerge ImportStrategy = "merge"
)

// ImportResult summarizes an import
type ImportResult struct {
	Strategy      ImportStrategy `json:"strategy"`
	NodesImported int            `json:"nodes_imported"`
	LinksImported int            `json:"links_imported"`
	NodesTotal    int            `json:"nodes_total"`
	LinksTotal    int            `json:"links_total"`
}

// TopologyService coordinates the in-memory topology with storage, metrics
// and the event bus. Commands run against the store first; every resulting
// change is then written through to the repository and published.
type TopologyService struct {
	store          *topology.Store
	repo           repository.Repository
	bus            *EventBus
	logger         *zap.Logger
	metrics        *metrics.Registry
	persistTimeout time.Duration
}

// Option configures a TopologyService
type Option func(*TopologyService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *TopologyService) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(s *TopologyService) {
		s.metrics = m
	}
}

// WithPersistTimeout sets the per-change repository timeout
func WithPersistTimeout(d time.Duration) Option {
	return func(s *TopologyService) {
		s.persistTimeout = d
	}
}

// NewTopologyService wires a service around store. repo may be nil, in which
// case changes are only published.
func NewTopologyService(store *topology.Store, repo repository.Repository, bus *EventBus, opts ...Option) *TopologyService {
	s := &TopologyService{
		store:          store,
		repo:           repo,
		bus:            bus,
		logger:         zap.NewNop(),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.bus == nil {
		s.bus = NewEventBus()
	}
	store.Subscribe(s.onChange)
	return s
}

// Events returns the bus the service publishes to
func (s *TopologyService) Events() *EventBus {
	return s.bus
}

// onChange runs for every store change, in mutation order
func (s *TopologyService) onChange(c topology.Change) {
	switch c.Kind {
	case topology.ChangeNodeAdded:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.UpsertNode(ctx, c.Node) })
		s.bus.Publish(Event{Type: EventNodeCreated, Payload: c.Node})
	case topology.ChangeNodeUpdated:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.UpsertNode(ctx, c.Node) })
		s.bus.Publish(Event{Type: EventNodeUpdated, Payload: c.Node})
	case topology.ChangeNodeMoved:
		pos := *domain.NewNodePosition(c.Node.ID, c.Node.X, c.Node.Y)
		s.persist(string(c.Kind), func(ctx context.Context) error {
			return s.repo.SavePositions(ctx, []domain.NodePosition{pos})
		})
		s.bus.Publish(Event{Type: EventNodeMoved, Payload: pos})
	case topology.ChangeNodeRemoved:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.DeleteNode(ctx, c.Node.ID) })
		s.bus.Publish(Event{Type: EventNodeDeleted, Payload: map[string]string{"node_id": c.Node.ID}})
	case topology.ChangeLinkAdded:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.UpsertLink(ctx, c.Link) })
		s.bus.Publish(Event{Type: EventLinkCreated, Payload: c.Link})
	case topology.ChangeLinkUpdated:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.UpsertLink(ctx, c.Link) })
		s.bus.Publish(Event{Type: EventLinkUpdated, Payload: c.Link})
	case topology.ChangeLinkRemoved:
		s.persist(string(c.Kind), func(ctx context.Context) error { return s.repo.DeleteLink(ctx, c.Link.ID) })
		s.bus.Publish(Event{Type: EventLinkDeleted, Payload: map[string]string{"link_id": c.Link.ID}})
	case topology.ChangeSelection:
		s.bus.Publish(Event{Type: EventSelectionChanged, Payload: c.Selection})
		return
	case topology.ChangeReloaded:
		s.bus.Publish(Event{Type: EventTopologyReloaded})
	}
	s.metrics.SetCounts(s.store.Counts())
}

// persist writes one change through to the repository. A failure is logged
// and counted; the in-memory command has already succeeded.
func (s *TopologyService) persist(kind string, write func(ctx context.Context) error) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		s.metrics.RecordPersistFailure(kind)
		s.logger.Error("failed to persist change", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *TopologyService) record(op string, err error) {
	s.metrics.RecordOperation(op, err)
	var se *topology.SelectionError
	if errors.As(err, &se) {
		s.metrics.RecordRejection(se.Reason)
	}
}

// ============================================================================
// Loading and exchange
// ============================================================================

// Hydrate replaces the in-memory topology with the stored one
func (s *TopologyService) Hydrate(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	fragment, err := s.repo.LoadTopology(ctx)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}
	if err := s.store.Load(fragment); err != nil {
		return fmt.Errorf("stored topology is invalid: %w", err)
	}
	nodes, links := s.store.Counts()
	s.logger.Info("topology hydrated", zap.Int("nodes", nodes), zap.Int("links", links))
	return nil
}

// Reload validates fragment, stores it and swaps it in. On any error both
// the store and the repository keep their previous contents.
func (s *TopologyService) Reload(ctx context.Context, fragment *domain.Fragment) error {
	err := s.replace(ctx, func(*domain.Fragment) *domain.Fragment { return fragment })
	s.record("reload", err)
	return err
}

// replace swaps in the fragment build derives from the current topology.
// The store stays locked from the read through the repository write, so
// concurrent commands wait and are applied on top of the new contents.
func (s *TopologyService) replace(ctx context.Context, build func(current *domain.Fragment) *domain.Fragment) error {
	return s.store.Transform(func(current *domain.Fragment) (*domain.Fragment, error) {
		staged := topology.NewStore()
		if err := staged.Load(build(current)); err != nil {
			return nil, err
		}
		normalized := staged.Snapshot().Fragment()

		if s.repo != nil {
			if err := s.repo.ReplaceTopology(ctx, normalized); err != nil {
				return nil, fmt.Errorf("replace stored topology: %w", err)
			}
		}
		return normalized, nil
	})
}

// Import reads a topology document in the given format and applies it
func (s *TopologyService) Import(ctx context.Context, r io.Reader, format string, strategy ImportStrategy) (ImportResult, error) {
	if strategy == "" {
		strategy = ImportMerge
	}
	if strategy != ImportMerge && strategy != ImportReplace {
		return ImportResult{}, fmt.Errorf("%w: import strategy %q", topology.ErrInvalidValue, strategy)
	}

	c, err := codec.ForFormat(format)
	if err != nil {
		return ImportResult{}, err
	}
	incoming, err := c.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{
		Strategy:      strategy,
		NodesImported: len(incoming.Nodes),
		LinksImported: len(incoming.Links),
	}

	err = s.replace(ctx, func(current *domain.Fragment) *domain.Fragment {
		if strategy == ImportMerge {
			return mergeFragments(current, incoming)
		}
		return incoming
	})
	s.record("import", err)
	if err != nil {
		return result, err
	}

	result.NodesTotal, result.LinksTotal = s.store.Counts()
	s.logger.Info("topology imported",
		zap.String("format", c.Format()),
		zap.String("strategy", string(strategy)),
		zap.Int("nodes", result.NodesImported),
		zap.Int("links", result.LinksImported),
	)
	return result, nil
}

// mergeFragments overlays incoming on base. Entries with a matching id are
// replaced in place; the rest are appended.
func mergeFragments(base, incoming *domain.Fragment) *domain.Fragment {
	out := domain.NewFragment()

	nodeAt := make(map[string]int, len(base.Nodes))
	for _, n := range base.Nodes {
		nodeAt[n.ID] = len(out.Nodes)
		out.AddNode(n)
	}
	for _, n := range incoming.Nodes {
		if i, ok := nodeAt[n.ID]; ok && n.ID != "" {
			out.Nodes[i] = n
			continue
		}
		out.AddNode(n)
	}

	linkAt := make(map[string]int, len(base.Links))
	for _, l := range base.Links {
		linkAt[l.ID] = len(out.Links)
		out.AddLink(l)
	}
	for _, l := range incoming.Links {
		if i, ok := linkAt[l.ID]; ok && l.ID != "" {
			out.Links[i] = l
			continue
		}
		out.AddLink(l)
	}
	return out
}

// Export writes the current topology in the given format
func (s *TopologyService) Export(w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(s.store.Snapshot().Fragment(), w)
}

// SaveViewport stores the editor's pan and zoom
func (s *TopologyService) SaveViewport(ctx context.Context, vp domain.Viewport) error {
	if vp.Zoom <= 0 || math.IsNaN(vp.Zoom) || math.IsInf(vp.Zoom, 0) {
		return fmt.Errorf("%w: zoom %v", topology.ErrInvalidValue, vp.Zoom)
	}
	if s.repo != nil {
		if err := s.repo.SaveViewport(ctx, vp); err != nil {
			return fmt.Errorf("save viewport: %w", err)
		}
	}
	s.bus.Publish(Event{Type: EventViewportChanged, Payload: vp})
	return nil
}

// LoadViewport returns the stored viewport, or the identity viewport
func (s *TopologyService) LoadViewport(ctx context.Context) (domain.Viewport, error) {
	if s.repo == nil {
		return domain.DefaultViewport(), nil
	}
	vp, ok, err := s.repo.LoadViewport(ctx)
	if err != nil {
		return domain.Viewport{}, fmt.Errorf("load viewport: %w", err)
	}
	if !ok {
		return domain.DefaultViewport(), nil
	}
	return vp, nil
}

// ============================================================================
// Reads
// ============================================================================

// Snapshot returns a consistent copy of the whole topology
func (s *TopologyService) Snapshot() topology.Snapshot {
	return s.store.Snapshot()
}

// Node returns a node by id
func (s *TopologyService) Node(id string) (domain.Node, bool) {
	return s.store.Node(id)
}

// Link returns a link by id
func (s *TopologyService) Link(id string) (domain.Link, bool) {
	return s.store.Link(id)
}

// Ports returns the port view of a node
func (s *TopologyService) Ports(id string) ([]domain.DevicePort, error) {
	return s.store.Ports(id)
}

// Children returns the direct children of a node
func (s *TopologyService) Children(id string) []domain.Node {
	return s.store.Children(id)
}

// Selection returns the link-drawing state
func (s *TopologyService) Selection() topology.Selection {
	return s.store.Selection()
}

// Counts returns the number of nodes and links
func (s *TopologyService) Counts() (nodes, links int) {
	return s.store.Counts()
}

// ============================================================================
// Node commands
// ============================================================================

// AddNode places a device without validating its type
func (s *TopologyService) AddNode(t domain.DeviceType, x, y float64) domain.Node {
	n := s.store.AddNode(t, x, y)
	s.record("add_node", nil)
	return n
}

// CreateNode places a device of a known type
func (s *TopologyService) CreateNode(t domain.DeviceType, x, y float64) (domain.Node, error) {
	if !t.Valid() {
		err := fmt.Errorf("%w: device type %q", topology.ErrInvalidValue, t)
		s.record("add_node", err)
		return domain.Node{}, err
	}
	return s.AddNode(t, x, y), nil
}

// MoveNode moves a node on the canvas
func (s *TopologyService) MoveNode(id string, x, y float64) error {
	err := s.store.MoveNode(id, x, y)
	s.record("move_node", err)
	return err
}

// MoveNodes moves several nodes at once
func (s *TopologyService) MoveNodes(positions []domain.NodePosition) error {
	err := s.store.MoveNodes(positions)
	s.record("move_nodes", err)
	return err
}

// UpdateNode edits descriptive node fields
func (s *TopologyService) UpdateNode(id string, u topology.NodeUpdate) (domain.Node, error) {
	n, err := s.store.UpdateNode(id, u)
	s.record("update_node", err)
	return n, err
}

// UpdateNodeMetrics records runtime measurements for a node
func (s *TopologyService) UpdateNodeMetrics(id string, m domain.NodeMetrics, status domain.NodeStatus) error {
	err := s.store.UpdateNodeMetrics(id, m, status)
	s.record("update_node_metrics", err)
	return err
}

// SetPortStatus sets the administrative state of a port
func (s *TopologyService) SetPortStatus(id, port string, status domain.PortStatus) (domain.DevicePort, error) {
	p, err := s.store.SetPortStatus(id, port, status)
	s.record("set_port_status", err)
	return p, err
}

// SetParent changes a node's parent; "" makes it a root
func (s *TopologyService) SetParent(id, parentID string) (domain.Node, error) {
	n, err := s.store.SetParent(id, parentID)
	s.record("set_parent", err)
	return n, err
}

// RemoveNode deletes a node and its links
func (s *TopologyService) RemoveNode(id string) ([]domain.Link, error) {
	removed, err := s.store.RemoveNode(id)
	s.record("remove_node", err)
	return removed, err
}

// ============================================================================
// Link commands
// ============================================================================

// BeginLink selects the source port of a new link
func (s *TopologyService) BeginLink(nodeID, port string) error {
	err := s.store.BeginLink(nodeID, port)
	s.record("begin_link", err)
	return err
}

// HoverTarget marks the node under the pointer while drawing
func (s *TopologyService) HoverTarget(nodeID string) error {
	return s.store.HoverTarget(nodeID)
}

// ClearHover drops the hovered node while drawing
func (s *TopologyService) ClearHover() {
	s.store.ClearHover()
}

// SelectTargetPort completes the link being drawn
func (s *TopologyService) SelectTargetPort(nodeID, port string) (domain.Link, error) {
	l, err := s.store.SelectTargetPort(nodeID, port)
	s.record("create_link", err)
	return l, err
}

// CancelLink abandons the link being drawn
func (s *TopologyService) CancelLink() {
	s.store.CancelLink()
}

// UpdateLink edits a link
func (s *TopologyService) UpdateLink(id string, u topology.LinkUpdate) (domain.Link, error) {
	l, err := s.store.UpdateLink(id, u)
	s.record("update_link", err)
	return l, err
}

// RemoveLink deletes a link
func (s *TopologyService) RemoveLink(id string) (domain.Link, error) {
	l, err := s.store.RemoveLink(id)
	s.record("remove_link", err)
	return l, err
}

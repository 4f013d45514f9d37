// Package editor translates canvas interactions into topology commands.
//
// An Editor holds only presentation state: the device type armed for
// placement, the viewport and the last pointer position. Everything
// authoritative lives in the Graph it drives.
package editor

import (
	"errors"
	"math"
	"sync"

	"go.uber.org/zap"

	"topomap/internal/domain"
	"topomap/internal/topology"
)

const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// ErrNoPlacement is returned when a placement is committed without one being armed
var ErrNoPlacement = errors.New("no device type armed for placement")

// Graph is the set of store commands the editor issues
type Graph interface {
	AddNode(t domain.DeviceType, x, y float64) domain.Node
	BeginLink(nodeID, port string) error
	HoverTarget(nodeID string) error
	ClearHover()
	SelectTargetPort(nodeID, port string) (domain.Link, error)
	CancelLink()
	Node(id string) (domain.Node, bool)
	Selection() topology.Selection
}

// Feedback reports the outcome of a port click
type Feedback struct {
	Accepted bool               `json:"accepted"`
	Reason   string             `json:"reason,omitempty"`
	State    topology.LinkState `json:"state"`
	Link     *domain.Link       `json:"link,omitempty"`
}

// State is a copy of the editor's presentation state
type State struct {
	Placing   domain.DeviceType  `json:"placing,omitempty"`
	Viewport  domain.Viewport    `json:"viewport"`
	Pointer   domain.Point       `json:"pointer"`
	Selection topology.Selection `json:"selection"`
}

// Editor drives a Graph from discrete interaction commands
type Editor struct {
	mu      sync.Mutex
	graph   Graph
	logger  *zap.Logger
	placing domain.DeviceType
	vp      domain.Viewport
	pointer domain.Point
}

// Option configures an Editor
type Option func(*Editor)

// WithLogger sets the logger used for rejected interactions
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithViewport sets the initial viewport
func WithViewport(vp domain.Viewport) Option {
	return func(e *Editor) {
		e.vp = vp
	}
}

// New creates an editor over g
func New(g Graph, opts ...Option) *Editor {
	e := &Editor{
		graph:  g,
		logger: zap.NewNop(),
		vp:     domain.DefaultViewport(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartPlacement arms a device type for the next CommitPlacement
func (e *Editor) StartPlacement(t domain.DeviceType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placing = t
}

// CancelPlacement disarms a pending placement
func (e *Editor) CancelPlacement() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placing = ""
}

// CommitPlacement drops the armed device at a screen position
func (e *Editor) CommitPlacement(screenX, screenY float64) (domain.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.placing == "" {
		return domain.Node{}, ErrNoPlacement
	}
	at := e.vp.ToCanvas(domain.Point{X: screenX, Y: screenY})
	node := e.graph.AddNode(e.placing, at.X, at.Y)
	e.placing = ""
	return node, nil
}

// ClickPort starts a link when idle and completes it when one is in progress.
// Rejections come back as Feedback with a reason; the graph is unchanged.
func (e *Editor) ClickPort(nodeID, port string) Feedback {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.Selection().Active() {
		if err := e.graph.BeginLink(nodeID, port); err != nil {
			return e.reject("begin", nodeID, port, err)
		}
		return Feedback{Accepted: true, State: topology.LinkSourceSelected}
	}

	link, err := e.graph.SelectTargetPort(nodeID, port)
	if err != nil {
		return e.reject("target", nodeID, port, err)
	}
	return Feedback{Accepted: true, State: topology.LinkIdle, Link: &link}
}

func (e *Editor) reject(step, nodeID, port string, err error) Feedback {
	reason := topology.RejectionReason(err)
	e.logger.Debug("port selection rejected",
		zap.String("step", step),
		zap.String("node_id", nodeID),
		zap.String("port", port),
		zap.String("reason", reason),
	)
	return Feedback{Reason: reason, State: e.graph.Selection().State}
}

// PointerMove records the pointer position and the node under it, if any.
// While a link is being drawn it returns the preview; otherwise ok is false.
// hoverPort may name the port under the pointer to refine the type label.
func (e *Editor) PointerMove(screenX, screenY float64, hoverNodeID, hoverPort string) (preview domain.LinkPreview, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pointer = domain.Point{X: screenX, Y: screenY}
	sel := e.graph.Selection()
	if !sel.Active() {
		return domain.LinkPreview{}, false
	}
	source, found := e.graph.Node(sel.Source.NodeID)
	if !found {
		return domain.LinkPreview{}, false
	}

	var target *domain.Node
	var targetType domain.PortType
	if hoverNodeID != "" {
		if err := e.graph.HoverTarget(hoverNodeID); err == nil {
			if n, found := e.graph.Node(hoverNodeID); found {
				target = &n
				if p, found := domain.FindPort(n.Type, hoverPort); found && hoverPort != "" {
					targetType = p.Type
				}
			}
		}
	} else {
		e.graph.ClearHover()
	}

	return domain.PreviewGeometry(&source, target, e.pointer, e.vp, sel.SourceType, targetType), true
}

// Escape abandons both a pending placement and any link being drawn
func (e *Editor) Escape() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placing = ""
	e.graph.CancelLink()
}

// Pan shifts the viewport by a screen-space delta
func (e *Editor) Pan(dx, dy float64) domain.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vp.PanX += dx
	e.vp.PanY += dy
	return e.vp
}

// ZoomAt scales the viewport by factor, keeping the canvas point under the
// given screen position fixed. Zoom is clamped to [MinZoom, MaxZoom].
func (e *Editor) ZoomAt(factor, screenX, screenY float64) domain.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()

	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return e.vp
	}
	screen := domain.Point{X: screenX, Y: screenY}
	anchor := e.vp.ToCanvas(screen)

	current := e.vp.Zoom
	if current <= 0 {
		current = 1
	}
	zoom := math.Max(MinZoom, math.Min(MaxZoom, current*factor))
	e.vp = domain.Viewport{
		PanX: screen.X - anchor.X*zoom,
		PanY: screen.Y - anchor.Y*zoom,
		Zoom: zoom,
	}
	return e.vp
}

// SetViewport replaces the viewport, clamping its zoom
func (e *Editor) SetViewport(vp domain.Viewport) domain.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if vp.Zoom <= 0 {
		vp.Zoom = 1
	}
	vp.Zoom = math.Max(MinZoom, math.Min(MaxZoom, vp.Zoom))
	e.vp = vp
	return e.vp
}

// Viewport returns the current viewport
func (e *Editor) Viewport() domain.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vp
}

// State returns a copy of the editor's presentation state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Placing:   e.placing,
		Viewport:  e.vp,
		Pointer:   e.pointer,
		Selection: e.graph.Selection(),
	}
}

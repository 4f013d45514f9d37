package domain

// Point is a 2D coordinate, in canvas or screen space depending on context
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the pan/zoom transform between canvas and screen space
type Viewport struct {
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToScreen maps a canvas point to screen space: screen = canvas*zoom + pan
func (v Viewport) ToScreen(p Point) Point {
	z := v.zoom()
	return Point{X: p.X*z + v.PanX, Y: p.Y*z + v.PanY}
}

// ToCanvas maps a screen point back to canvas space
func (v Viewport) ToCanvas(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.PanX) / z, Y: (p.Y - v.PanY) / z}
}

// Marker is an endpoint dot drawn at one end of a link preview
type Marker struct {
	At    Point  `json:"at"`
	Label string `json:"label,omitempty"`
}

// LinkPreview is the rubber-band line shown while a link is being drawn.
// All coordinates are in screen space.
type LinkPreview struct {
	From       Point    `json:"from"`
	To         Point    `json:"to"`
	SourceMark Marker   `json:"source_marker"`
	TargetMark Marker   `json:"target_marker"`
	LinkType   LinkType `json:"link_type"`
	TypeLabel  string   `json:"type_label"`
	Snapped    bool     `json:"snapped"`
	TargetNode string   `json:"target_node_id,omitempty"`
}

// PreviewGeometry derives the in-progress link drawing.
// With a target node the line ends on that node; otherwise it follows the raw
// pointer, which is already in screen space. targetPort may be empty while the
// pointer is over a node but no port is chosen; the label then shows the medium
// of the source port alone.
func PreviewGeometry(source *Node, target *Node, pointer Point, vp Viewport, sourcePort, targetPort PortType) LinkPreview {
	from := vp.ToScreen(source.Position())

	preview := LinkPreview{
		From:       from,
		SourceMark: Marker{At: from, Label: source.Name},
	}

	if target != nil {
		preview.To = vp.ToScreen(target.Position())
		preview.TargetMark = Marker{At: preview.To, Label: target.Name}
		preview.Snapped = true
		preview.TargetNode = target.ID
	} else {
		preview.To = pointer
		preview.TargetMark = Marker{At: pointer}
	}

	if targetPort != "" {
		preview.LinkType = Classify(sourcePort, targetPort)
	} else {
		preview.LinkType = MediumOf(sourcePort)
	}
	preview.TypeLabel = preview.LinkType.Label()

	return preview
}

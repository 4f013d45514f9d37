package domain

// NodePosition is a canvas placement for one node, used for bulk layout saves
type NodePosition struct {
	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NewNodePosition creates a new node position
func NewNodePosition(nodeID string, x, y float64) *NodePosition {
	return &NodePosition{
		NodeID: nodeID,
		X:      x,
		Y:      y,
	}
}

// Point returns the position as a canvas point
func (p NodePosition) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

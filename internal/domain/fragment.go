package domain

// Fragment is a set of nodes and links used for hydration, import and export
type Fragment struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NewFragment creates an empty fragment
func NewFragment() *Fragment {
	return &Fragment{
		Nodes: make([]Node, 0),
		Links: make([]Link, 0),
	}
}

// AddNode adds a node to the fragment
func (f *Fragment) AddNode(node Node) {
	f.Nodes = append(f.Nodes, node)
}

// AddLink adds a link to the fragment
func (f *Fragment) AddLink(link Link) {
	f.Links = append(f.Links, link)
}

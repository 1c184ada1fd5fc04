package ecml

// Node is one plugin instance in a saved document tree: its plugin type, its
// own fragment and the nodes it owns, in order.
type Node struct {
	Type     string   `json:"type" msgpack:"type"`
	Fragment Fragment `json:"fragment" msgpack:"fragment"`
	Children []Node   `json:"children,omitempty" msgpack:"children,omitempty"`
}

// Count returns the number of nodes in the tree rooted at n.
func (n Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

package graph

import "errors"

// MaxNodes bounds the length of a NodeList.
const MaxNodes = 16

var ErrNodeListFull = errors.New("graph: node list full")

// NodeList is a fixed-capacity, ordered list of nodes. Order is evaluation
// order: a node only sees registers written earlier in the same chunk.
type NodeList struct {
	nodes [MaxNodes]Node
	n     int
}

// NewNodeList builds a list from nodes, in order.
func NewNodeList(nodes ...Node) (*NodeList, error) {
	l := &NodeList{}
	for i := range nodes {
		if err := l.Append(&nodes[i]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Append copies *n to the end of the list. It does not allocate.
func (l *NodeList) Append(n *Node) error {
	if l.n == MaxNodes {
		return ErrNodeListFull
	}
	l.nodes[l.n] = *n
	l.n++
	return nil
}

// Push is Append for a node value.
func (l *NodeList) Push(n Node) error {
	return l.Append(&n)
}

// Remove deletes the node at i, shifting the rest down.
func (l *NodeList) Remove(i int) {
	if i < 0 || i >= l.n {
		return
	}
	copy(l.nodes[i:l.n], l.nodes[i+1:l.n])
	l.n--
	l.nodes[l.n] = Node{}
}

// Len is 0 for a nil list.
func (l *NodeList) Len() int {
	if l == nil {
		return 0
	}
	return l.n
}

// At returns the node at i for in-place editing.
func (l *NodeList) At(i int) *Node { return &l.nodes[i] }

// Nodes returns the live nodes as a slice into the list, or nil for a nil
// list.
func (l *NodeList) Nodes() []Node {
	if l == nil {
		return nil
	}
	return l.nodes[:l.n]
}

// Clone returns an independent copy of the list, node state included.
func (l *NodeList) Clone() *NodeList {
	c := *l
	return &c
}

// Stack runs a node list over one register file. Audio register 0 is the
// master bus copied to the caller's buffer.
type Stack struct {
	Nodes *NodeList
	Data  StackData
}

// NewStack returns a stack with zeroed registers. A nil list means no nodes.
func NewStack(nodes *NodeList) *Stack {
	if nodes == nil {
		nodes = &NodeList{}
	}
	return &Stack{Nodes: nodes}
}

// Process fills out in chunks of at most BlockSize samples: every node runs
// once per chunk, in order, then audio register 0 is copied into the chunk.
// The output is not clamped. A nil Nodes runs no nodes.
func (s *Stack) Process(out []float32, sampleRate int) {
	nodes := s.Nodes.Nodes()
	for len(out) > 0 {
		n := min(len(out), BlockSize)
		for i := range nodes {
			nodes[i].Process(n, &s.Data, sampleRate)
		}
		copy(out[:n], s.Data.Audio[0][:n])
		out = out[n:]
	}
}

// ReplaceNodes installs nodes, leaving the register file untouched, and
// returns the list it replaced.
func (s *Stack) ReplaceNodes(nodes *NodeList) *NodeList {
	if nodes == nil {
		nodes = &NodeList{}
	}
	old := s.Nodes
	s.Nodes = nodes
	return old
}

package topology

import (
	"github.com/twmb/murmur3"
	"golang.org/x/exp/slices"
)

// Snapshot is an immutable set of nodes. A new snapshot is built on every
// successful topology refresh and replaces the previous one as a whole.
type Snapshot struct {
	nodes map[NodeID]Node
	ids   []NodeID
	hash  uint64
}

var emptySnapshot = NewSnapshot(nil)

// NewSnapshot builds a snapshot from the given nodes. Nodes are deduplicated
// by ID, the first occurrence wins.
func NewSnapshot(nodes []Node) *Snapshot {
	s := &Snapshot{
		nodes: make(map[NodeID]Node, len(nodes)),
		ids:   make([]NodeID, 0, len(nodes)),
	}

	for _, node := range nodes {
		if _, ok := s.nodes[node.ID]; ok {
			continue
		}

		s.nodes[node.ID] = node
		s.ids = append(s.ids, node.ID)
	}

	slices.SortFunc(s.ids, func(a, b NodeID) bool {
		return a.Less(b)
	})

	h := murmur3.New64()
	for _, id := range s.ids {
		_, _ = h.Write(id[:])
	}

	s.hash = h.Sum64()

	return s
}

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// Nodes returns the nodes of the snapshot ordered by ID.
func (s *Snapshot) Nodes() []Node {
	nodes := make([]Node, len(s.ids))
	for i, id := range s.ids {
		nodes[i] = s.nodes[id]
	}

	return nodes
}

// Node returns the node with the given ID, if it is present.
func (s *Snapshot) Node(id NodeID) (Node, bool) {
	node, ok := s.nodes[id]
	return node, ok
}

// Has returns true if the node with the given ID is present.
func (s *Snapshot) Has(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Hash returns a fingerprint of the node IDs in the snapshot. Snapshots with
// the same set of node IDs have the same hash.
func (s *Snapshot) Hash() uint64 {
	return s.hash
}

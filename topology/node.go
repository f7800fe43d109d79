package topology

import (
	"bytes"

	"github.com/google/uuid"
)

// NodeID uniquely identifies a grid node.
type NodeID uuid.UUID

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// Less orders node ids bytewise.
func (id NodeID) Less(other NodeID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// Node represents a single grid node as seen by the client. Two nodes are the
// same node if their IDs are equal, the rest of the fields are informational.
type Node struct {
	ID    NodeID
	Addrs []string

	// Attributes and Metrics are only populated when they are explicitly
	// requested during the topology discovery.
	Attributes map[string]string
	Metrics    map[string]float64
}

// Addr returns the first address of the node, or an empty string if the node
// has no known addresses.
func (n Node) Addr() string {
	if len(n.Addrs) == 0 {
		return ""
	}

	return n.Addrs[0]
}

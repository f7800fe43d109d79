package topology_test

import (
	"github.com/google/uuid"

	"github.com/maxpoletaev/gridclient/topology"
)

// nodeID returns a deterministic node id, so that tests can refer to nodes by
// a short number.
func nodeID(n byte) topology.NodeID {
	var id uuid.UUID
	id[15] = n

	return topology.NodeID(id)
}

func node(n byte) topology.Node {
	return topology.Node{ID: nodeID(n), Addrs: []string{"10.0.0.1:11211"}}
}

func ids(nodes []topology.Node) []topology.NodeID {
	res := make([]topology.NodeID, len(nodes))
	for i, n := range nodes {
		res[i] = n.ID
	}

	return res
}

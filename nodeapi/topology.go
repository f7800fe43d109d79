package nodeapi

import "github.com/google/uuid"

// TopologyRequest asks an endpoint for the nodes it knows about.
type TopologyRequest struct {
	RequestID         uuid.UUID
	ClientID          uuid.UUID
	IncludeAttributes bool
	IncludeMetrics    bool
}

// NodeInfo is the wire representation of a grid node.
type NodeInfo struct {
	ID         uuid.UUID
	Addrs      []string
	Attributes map[string]string
	Metrics    map[string]float64
}

type TopologyResult struct {
	Nodes []NodeInfo
}

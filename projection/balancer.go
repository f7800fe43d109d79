package projection

import (
	"math/rand"
	"sync/atomic"

	"github.com/maxpoletaev/gridclient/topology"
)

// Balancer picks the node for the next compute task. The nodes passed to Pick
// are never empty.
type Balancer interface {
	Pick(nodes []topology.Node) topology.Node
}

// RoundRobin cycles through the nodes in id order.
type RoundRobin struct {
	next atomic.Uint64
}

func (b *RoundRobin) Pick(nodes []topology.Node) topology.Node {
	n := b.next.Add(1) - 1
	return nodes[n%uint64(len(nodes))]
}

// Random picks a uniformly random node.
type Random struct{}

func (Random) Pick(nodes []topology.Node) topology.Node {
	return nodes[rand.Intn(len(nodes))]
}

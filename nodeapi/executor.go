package nodeapi

import "context"

// Executor performs commands against remote grid endpoints. An endpoint is
// addressed by its network address, which is either a configured server or
// router address, or one of the addresses advertised by a topology node.
type Executor interface {
	// Topology requests the list of nodes known to the endpoint.
	Topology(ctx context.Context, addr string, req *TopologyRequest) (*TopologyResult, error)

	// Cache executes a cache operation on the endpoint.
	Cache(ctx context.Context, addr string, req *CacheRequest) (*CacheResult, error)

	// Task executes a compute task on the endpoint.
	Task(ctx context.Context, addr string, req *TaskRequest) (*TaskResult, error)

	// Stop aborts all in-flight commands and releases the connections. Any
	// command issued after Stop fails with ErrStopped.
	Stop()
}

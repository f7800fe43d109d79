package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/maxpoletaev/gridclient/metrics"
	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/topology"
)

const refreshKey = "topology"

type topologyChange struct {
	added   []topology.Node
	removed []topology.Node
}

// Refresh discovers the current topology and notifies the listeners about the
// nodes that joined or left. Concurrent calls share a single discovery. Errors
// are logged, the previous snapshot stays in place if every address fails.
func (c *Client) Refresh() {
	if c.closed.Load() {
		return
	}

	var leader bool

	v, _, _ := c.refreshes.Do(refreshKey, func() (interface{}, error) {
		leader = true
		return c.refresh(), nil
	})

	// Only the caller that ran the discovery dispatches the events. Doing it
	// outside the group lets the listeners trigger another refresh.
	if change, ok := v.(*topologyChange); ok && change != nil && leader {
		c.listeners.Notify(change.added, change.removed)
	}
}

func (c *Client) refresh() *topologyChange {
	addrs := c.sess.Config().Candidates()

	if len(addrs) == 0 {
		metrics.TopologyRefreshes.WithLabelValues("skipped").Inc()
		level.Debug(c.logger).Log("msg", "no addresses to discover the topology from")

		return nil
	}

	start := time.Now()
	defer func() {
		metrics.TopologyRefreshDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error

	for _, addr := range addrs {
		if c.closed.Load() {
			return nil
		}

		nodes, err := c.fetchTopology(addr)
		if err != nil {
			level.Debug(c.logger).Log("msg", "topology request failed", "addr", addr, "err", err)
			lastErr = err

			continue
		}

		if c.closed.Load() {
			return nil
		}

		prev, next := c.sess.Topology().Update(nodes)
		added, removed := topology.Diff(prev, next)

		metrics.TopologyRefreshes.WithLabelValues("ok").Inc()
		metrics.TopologyNodes.Set(float64(next.Len()))

		level.Debug(c.logger).Log(
			"msg", "topology refreshed",
			"addr", addr,
			"nodes", next.Len(),
			"added", len(added),
			"removed", len(removed),
			"hash", fmt.Sprintf("%016x", next.Hash()),
		)

		return &topologyChange{added: added, removed: removed}
	}

	// A refresh aborted by Stop is not worth an error.
	if c.closed.Load() {
		return nil
	}

	metrics.TopologyRefreshes.WithLabelValues("failed").Inc()
	level.Error(c.logger).Log("msg", "failed to refresh topology", "attempts", len(addrs), "err", lastErr)

	return nil
}

func (c *Client) fetchTopology(addr string) ([]topology.Node, error) {
	ctx := context.Background()

	if timeout := c.sess.Config().RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)

		defer cancel()
	}

	res, err := c.sess.Executor().Topology(ctx, addr, &nodeapi.TopologyRequest{
		RequestID:         uuid.New(),
		ClientID:          c.sess.ClientID(),
		IncludeAttributes: false,
		IncludeMetrics:    false,
	})

	if err != nil {
		return nil, err
	}

	return topology.FromNodeInfoList(res.Nodes), nil
}

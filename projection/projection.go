package projection

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gridclient/internal/generic"
	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/topology"
	"github.com/maxpoletaev/gridclient/workerpool"
)

var (
	ErrInvalidated = errors.New("projection is invalidated")
	ErrNoNodes     = errors.New("no nodes available")
)

// NodeFailureHandler is notified when a node cannot be reached, so that the
// topology can be refreshed.
type NodeFailureHandler interface {
	OnNodeIOFailed(node topology.Node)
}

// Predicate restricts the set of nodes a projection sends requests to.
type Predicate func(topology.Node) bool

type options struct {
	predicate Predicate
	balancer  Balancer
	flags     []string
}

type Option func(*options)

// WithPredicate limits the projection to the nodes matching the predicate.
func WithPredicate(p Predicate) Option {
	return func(o *options) {
		o.predicate = p
	}
}

// WithBalancer sets the balancer of a compute projection.
func WithBalancer(b Balancer) Option {
	return func(o *options) {
		o.balancer = b
	}
}

// WithFlags sets the cache flags of a data projection.
func WithFlags(flags []string) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// base holds what data and compute projections have in common.
type base struct {
	sess      *session.Context
	failures  NodeFailureHandler
	pool      *workerpool.Pool
	predicate Predicate
	invalid   atomic.Bool
}

func (b *base) init(sess *session.Context, failures NodeFailureHandler, pool *workerpool.Pool, opts *options) {
	b.sess = sess
	b.failures = failures
	b.pool = pool
	b.predicate = opts.predicate
}

// Invalidate makes every subsequent request fail with ErrInvalidated.
func (b *base) Invalidate() {
	b.invalid.Store(true)
}

// IsValid returns false once the projection has been invalidated.
func (b *base) IsValid() bool {
	return !b.invalid.Load()
}

// Nodes returns the eligible nodes of the current topology, ordered by id.
func (b *base) Nodes() []topology.Node {
	nodes := b.sess.Topology().Load().Nodes()

	return generic.Filter(nodes, func(n topology.Node) bool {
		if n.Addr() == "" {
			return false
		}

		return b.predicate == nil || b.predicate(n)
	})
}

// call runs fn against the node on the shared worker pool. A connection
// failure is reported to the failure handler before the error is returned.
func call[T any](ctx context.Context, b *base, node topology.Node, fn func(context.Context, nodeapi.Executor, string) (T, error)) (T, error) {
	var zero T

	if !b.IsValid() {
		return zero, ErrInvalidated
	}

	select {
	case <-b.pool.Done():
		return zero, ErrInvalidated
	default:
	}

	exec := b.sess.Executor()
	addr := node.Addr()

	res, err := workerpool.Run(ctx, b.pool, func(ctx context.Context) (T, error) {
		return fn(ctx, exec, addr)
	})

	if err != nil {
		if errors.Is(err, workerpool.ErrStopped) {
			return zero, ErrInvalidated
		}

		if errors.Is(err, nodeapi.ErrConnection) {
			level.Warn(b.sess.Logger()).Log(
				"msg", "node is unreachable",
				"node_id", node.ID,
				"addr", addr,
				"err", err,
			)

			if b.failures != nil {
				b.failures.OnNodeIOFailed(node)
			}
		}

		return zero, err
	}

	return res, nil
}

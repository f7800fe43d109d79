package projection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/murmur3"

	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/topology"
	"github.com/maxpoletaev/gridclient/workerpool"
)

// Data gives access to a named cache of the grid. Each key is owned by the
// node with the highest rendezvous weight among the eligible nodes, so the
// same key is always sent to the same node while the topology stays the same.
type Data struct {
	base
	cacheName string
	flags     []string
}

// NewData creates a data projection for the cache. An empty name refers to
// the default cache.
func NewData(sess *session.Context, failures NodeFailureHandler, pool *workerpool.Pool, cacheName string, opts ...Option) *Data {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	d := &Data{
		cacheName: cacheName,
		flags:     o.flags,
	}

	d.init(sess, failures, pool, o)

	return d
}

func (d *Data) CacheName() string {
	return d.cacheName
}

// Flags returns a copy of the cache flags sent with every request.
func (d *Data) Flags() []string {
	return append([]string(nil), d.flags...)
}

// Get returns the value of the key and whether it was found.
func (d *Data) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := d.do(ctx, nodeapi.CacheGet, key, nil)
	if err != nil {
		return nil, false, err
	}

	return res.Value, res.Found, nil
}

// Put stores the value under the key.
func (d *Data) Put(ctx context.Context, key string, value []byte) error {
	_, err := d.do(ctx, nodeapi.CachePut, key, value)
	return err
}

// Remove deletes the key and reports whether it existed.
func (d *Data) Remove(ctx context.Context, key string) (bool, error) {
	res, err := d.do(ctx, nodeapi.CacheRemove, key, nil)
	if err != nil {
		return false, err
	}

	return res.Found, nil
}

// Owner returns the node responsible for the key.
func (d *Data) Owner(key string) (topology.Node, error) {
	node, ok := rendezvous(d.Nodes(), key)
	if !ok {
		return topology.Node{}, ErrNoNodes
	}

	return node, nil
}

func (d *Data) do(ctx context.Context, op nodeapi.CacheOp, key string, value []byte) (*nodeapi.CacheResult, error) {
	if !d.IsValid() {
		return nil, ErrInvalidated
	}

	node, err := d.Owner(key)
	if err != nil {
		return nil, err
	}

	req := &nodeapi.CacheRequest{
		RequestID: uuid.New(),
		ClientID:  d.sess.ClientID(),
		CacheName: d.cacheName,
		Op:        op,
		Key:       key,
		Value:     value,
		Flags:     d.flags,
	}

	res, err := call(ctx, &d.base, node, func(ctx context.Context, exec nodeapi.Executor, addr string) (*nodeapi.CacheResult, error) {
		return exec.Cache(ctx, addr, req)
	})

	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", op, err)
	}

	return res, nil
}

func rendezvous(nodes []topology.Node, key string) (topology.Node, bool) {
	var (
		best    topology.Node
		bestW   uint64
		found   bool
		keyData = []byte(key)
	)

	for _, node := range nodes {
		h := murmur3.New64()
		_, _ = h.Write(node.ID[:])
		_, _ = h.Write(keyData)

		if w := h.Sum64(); !found || w > bestW {
			best, bestW, found = node, w, true
		}
	}

	return best, found
}

package client

import (
	"sync"
	"sync/atomic"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"

	"github.com/maxpoletaev/gridclient/internal/generic"
	"github.com/maxpoletaev/gridclient/projection"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/topology"
	"github.com/maxpoletaev/gridclient/workerpool"
)

// Client keeps the view of the grid topology up to date and hands out the
// data and compute projections that route requests to the grid nodes.
type Client struct {
	sess      *session.Context
	listeners *topology.Registry
	pool      *workerpool.Pool
	logger    kitlog.Logger

	refreshes singleflight.Group

	data      generic.SyncMap[string, *projection.Data]
	dataGroup singleflight.Group

	computeMut sync.Mutex
	compute    *projection.Compute

	closed   atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a client and performs the initial topology discovery before
// returning. A failed initial discovery is logged and does not fail the
// construction, the refresher keeps trying in the background.
func New(conf session.Config) (*Client, error) {
	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	id := session.NewClientID()
	conf.Logger = kitlog.With(conf.Logger, "client_id", id)

	sess := session.NewContext(id, conf, topology.New())

	c := &Client{
		sess:      sess,
		logger:    conf.Logger,
		pool:      workerpool.New(conf.PoolSize, conf.Logger),
		listeners: topology.NewRegistry(conf.Logger),
		stop:      make(chan struct{}),
	}

	for _, l := range conf.Listeners {
		c.listeners.Add(l)
	}

	c.startRefresher(conf.RefreshInterval)
	c.Refresh()

	level.Debug(c.logger).Log(
		"msg", "client started",
		"nodes", sess.Topology().Load().Len(),
	)

	return c, nil
}

// ID returns the id the client was assigned at creation.
func (c *Client) ID() session.ClientID {
	return c.sess.ClientID()
}

// Session returns the state shared by the client and its projections.
func (c *Client) Session() *session.Context {
	return c.sess
}

// Topology returns the current topology snapshot.
func (c *Client) Topology() *topology.Snapshot {
	return c.sess.Topology().Load()
}

func (c *Client) AddTopologyListener(l topology.Listener) {
	c.listeners.Add(l)
}

// RemoveTopologyListener unregisters the listener. It returns false if the
// listener was not registered.
func (c *Client) RemoveTopologyListener(l topology.Listener) bool {
	return c.listeners.Remove(l)
}

func (c *Client) TopologyListeners() []topology.Listener {
	return c.listeners.Listeners()
}

// OnNodeIOFailed is called by the projections when a node cannot be reached.
// The topology is refreshed on the calling goroutine.
func (c *Client) OnNodeIOFailed(node topology.Node) {
	level.Debug(c.logger).Log("msg", "node io failed, refreshing topology", "node_id", node.ID)

	c.Refresh()
}

package client_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gridclient/client"
	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/projection"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/topology"
)

var errUnreachable = fmt.Errorf("%w: refused", nodeapi.ErrConnection)

// fakeExecutor answers topology requests with the nodes configured per
// address. Addresses without nodes fail with a connection error.
type fakeExecutor struct {
	mut      sync.Mutex
	nodes    map[string][]nodeapi.NodeInfo
	calls    []string
	requests []nodeapi.TopologyRequest
	cacheErr error
	stopped  int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		nodes: make(map[string][]nodeapi.NodeInfo),
	}
}

func (e *fakeExecutor) SetNodes(addr string, ids ...byte) {
	e.mut.Lock()
	defer e.mut.Unlock()

	infos := make([]nodeapi.NodeInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, nodeInfo(id))
	}

	e.nodes[addr] = infos
}

func (e *fakeExecutor) Fail(addr string) {
	e.mut.Lock()
	defer e.mut.Unlock()

	delete(e.nodes, addr)
}

func (e *fakeExecutor) Calls() []string {
	e.mut.Lock()
	defer e.mut.Unlock()

	return append([]string(nil), e.calls...)
}

func (e *fakeExecutor) Requests() []nodeapi.TopologyRequest {
	e.mut.Lock()
	defer e.mut.Unlock()

	return append([]nodeapi.TopologyRequest(nil), e.requests...)
}

func (e *fakeExecutor) Stopped() int {
	e.mut.Lock()
	defer e.mut.Unlock()

	return e.stopped
}

func (e *fakeExecutor) Topology(ctx context.Context, addr string, req *nodeapi.TopologyRequest) (*nodeapi.TopologyResult, error) {
	e.mut.Lock()
	defer e.mut.Unlock()

	e.calls = append(e.calls, addr)
	e.requests = append(e.requests, *req)

	nodes, ok := e.nodes[addr]
	if !ok {
		return nil, errUnreachable
	}

	return &nodeapi.TopologyResult{Nodes: nodes}, nil
}

func (e *fakeExecutor) Cache(ctx context.Context, addr string, req *nodeapi.CacheRequest) (*nodeapi.CacheResult, error) {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.cacheErr != nil {
		return nil, e.cacheErr
	}

	return &nodeapi.CacheResult{}, nil
}

func (e *fakeExecutor) Task(ctx context.Context, addr string, req *nodeapi.TaskRequest) (*nodeapi.TaskResult, error) {
	return &nodeapi.TaskResult{}, nil
}

func (e *fakeExecutor) Stop() {
	e.mut.Lock()
	defer e.mut.Unlock()

	e.stopped++
}

type event struct {
	kind string
	id   topology.NodeID
}

type recordingListener struct {
	mut    sync.Mutex
	events []event
}

func (l *recordingListener) OnNodeAdded(node topology.Node) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.events = append(l.events, event{"added", node.ID})

	return nil
}

func (l *recordingListener) OnNodeRemoved(node topology.Node) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.events = append(l.events, event{"removed", node.ID})

	return nil
}

func (l *recordingListener) Events() []event {
	l.mut.Lock()
	defer l.mut.Unlock()

	return append([]event(nil), l.events...)
}

func (l *recordingListener) Reset() {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.events = nil
}

func nodeID(n byte) topology.NodeID {
	var id uuid.UUID
	id[15] = n

	return topology.NodeID(id)
}

func nodeInfo(n byte) nodeapi.NodeInfo {
	return nodeapi.NodeInfo{
		ID:    uuid.UUID(nodeID(n)),
		Addrs: []string{fmt.Sprintf("10.0.0.%d:11211", n)},
	}
}

func snapshotIDs(s *topology.Snapshot) []topology.NodeID {
	var ids []topology.NodeID
	for _, n := range s.Nodes() {
		ids = append(ids, n.ID)
	}

	return ids
}

func testConfig(exec nodeapi.Executor) session.Config {
	conf := session.DefaultConfig()
	conf.Executor = exec
	conf.RefreshInterval = time.Hour

	return conf
}

func newClient(t *testing.T, conf session.Config) *client.Client {
	c, err := client.New(conf)
	require.NoError(t, err)

	t.Cleanup(func() { c.Stop(false) })

	return c
}

func TestNew_ServersAndRouters(t *testing.T) {
	exec := newFakeExecutor()

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.Routers = []string{"r1:11211"}

	_, err := client.New(conf)
	require.ErrorIs(t, err, session.ErrInvalidConfig)
	require.Empty(t, exec.Calls())
}

func TestNew_InitialRefresh(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1, 2, 3)

	listener := &recordingListener{}

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.Listeners = []topology.Listener{listener}

	c := newClient(t, conf)

	require.Equal(t, []topology.NodeID{nodeID(1), nodeID(2), nodeID(3)}, snapshotIDs(c.Topology()))
	require.Equal(t, []topology.Listener{listener}, c.TopologyListeners())

	// Listeners from the config observe the initial nodes.
	require.Equal(t, []event{
		{"added", nodeID(1)},
		{"added", nodeID(2)},
		{"added", nodeID(3)},
	}, listener.Events())
}

func TestNew_ClientID(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c1 := newClient(t, conf)
	c2 := newClient(t, conf)

	require.NotEqual(t, uuid.Nil, c1.ID())
	require.NotEqual(t, c1.ID(), c2.ID())
	require.Equal(t, c1.ID(), c1.ID())
	require.Equal(t, c1.ID(), c1.Session().ClientID())
}

func TestRefresh_Request(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c := newClient(t, conf)
	c.Refresh()

	reqs := exec.Requests()
	require.Len(t, reqs, 2)

	for _, req := range reqs {
		assert.Equal(t, c.ID(), req.ClientID)
		assert.False(t, req.IncludeAttributes)
		assert.False(t, req.IncludeMetrics)
		assert.NotEqual(t, uuid.Nil, req.RequestID)
	}

	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestRefresh_Failover(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s3:11211", 1, 2)
	exec.SetNodes("s4:11211", 3)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211", "s2:11211", "s3:11211", "s4:11211"}

	c := newClient(t, conf)

	// The first successful address ends the cycle.
	require.Equal(t, []string{"s1:11211", "s2:11211", "s3:11211"}, exec.Calls())
	require.Equal(t, []topology.NodeID{nodeID(1), nodeID(2)}, snapshotIDs(c.Topology()))
}

func TestRefresh_RoutersOnly(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("r1:11211", 1)

	conf := testConfig(exec)
	conf.Routers = []string{"r1:11211"}

	c := newClient(t, conf)

	require.Equal(t, []string{"r1:11211"}, exec.Calls())
	require.Equal(t, 1, c.Topology().Len())
}

func TestRefresh_AllFailed(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1, 2)

	listener := &recordingListener{}

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211", "s2:11211"}
	conf.Listeners = []topology.Listener{listener}

	c := newClient(t, conf)
	before := c.Topology()
	listener.Reset()

	exec.Fail("s1:11211")
	c.Refresh()

	// The previous snapshot is kept and nobody is notified.
	require.Same(t, before, c.Topology())
	require.Empty(t, listener.Events())
	require.Equal(t, []string{"s1:11211", "s1:11211", "s2:11211"}, exec.Calls())
}

func TestRefresh_NoAddresses(t *testing.T) {
	exec := newFakeExecutor()
	c := newClient(t, testConfig(exec))

	before := c.Topology()
	c.Refresh()

	require.Same(t, before, c.Topology())
	require.Equal(t, 0, c.Topology().Len())
	require.Empty(t, exec.Calls())
}

func TestRefresh_Diff(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1, 2, 3)

	listener := &recordingListener{}

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c := newClient(t, conf)
	c.AddTopologyListener(listener)

	exec.SetNodes("s1:11211", 2, 3, 4)
	c.Refresh()

	require.Equal(t, []event{
		{"added", nodeID(4)},
		{"removed", nodeID(1)},
	}, listener.Events())

	// Nothing changed, nothing to notify about.
	listener.Reset()
	c.Refresh()
	require.Empty(t, listener.Events())
}

func TestRefresh_ListenerIsolation(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	failing := &topology.ListenerFuncs{
		Added: func(topology.Node) error {
			return errors.New("failed")
		},
		Removed: func(topology.Node) error {
			panic("failed")
		},
	}

	good := &recordingListener{}

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.Listeners = []topology.Listener{failing, good}

	c := newClient(t, conf)

	exec.SetNodes("s1:11211", 2)
	c.Refresh()

	require.Equal(t, []event{
		{"added", nodeID(1)},
		{"added", nodeID(2)},
		{"removed", nodeID(1)},
	}, good.Events())
}

func TestRefresh_ListenerTriggersRefresh(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c := newClient(t, conf)

	var refreshed int32

	c.AddTopologyListener(&topology.ListenerFuncs{
		Added: func(node topology.Node) error {
			// Must not deadlock.
			if atomic.AddInt32(&refreshed, 1) == 1 {
				c.Refresh()
			}

			return nil
		},
	})

	exec.SetNodes("s1:11211", 1, 2)
	c.Refresh()

	require.Equal(t, int32(1), atomic.LoadInt32(&refreshed))
	require.Equal(t, 2, c.Topology().Len())
}

func TestRefresh_Periodic(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.RefreshInterval = 10 * time.Millisecond

	c, err := client.New(conf)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(exec.Calls()) >= 3
	}, time.Second, 5*time.Millisecond)

	c.Stop(false)

	// A refresh that was already running may still complete.
	time.Sleep(20 * time.Millisecond)
	calls := len(exec.Calls())

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, calls, len(exec.Calls()))
}

func TestRemoveTopologyListener(t *testing.T) {
	c := newClient(t, testConfig(newFakeExecutor()))

	l1 := &recordingListener{}
	l2 := &recordingListener{}

	c.AddTopologyListener(l1)
	c.AddTopologyListener(l2)

	require.True(t, c.RemoveTopologyListener(l1))
	require.False(t, c.RemoveTopologyListener(l1))
	require.Equal(t, []topology.Listener{l2}, c.TopologyListeners())
}

func TestDataNamed(t *testing.T) {
	c := newClient(t, testConfig(newFakeExecutor()))

	orders := c.DataNamed("orders")
	require.Same(t, orders, c.DataNamed("orders"))
	require.NotSame(t, orders, c.Data())
	require.Same(t, c.Data(), c.DataNamed(""))
	require.Equal(t, "orders", orders.CacheName())
}

func TestDataNamed_Concurrent(t *testing.T) {
	c := newClient(t, testConfig(newFakeExecutor()))

	const n = 50

	var (
		wg      sync.WaitGroup
		results = make([]*projection.Data, n)
	)

	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = c.DataNamed("orders")
		}(i)
	}

	wg.Wait()

	for _, d := range results {
		require.Same(t, results[0], d)
	}
}

func TestDataNamed_CacheFlags(t *testing.T) {
	conf := testConfig(newFakeExecutor())
	conf.CacheFlags = []string{"keep_binary"}

	c := newClient(t, conf)
	require.Equal(t, []string{"keep_binary"}, c.Data().Flags())
}

func TestCompute(t *testing.T) {
	c := newClient(t, testConfig(newFakeExecutor()))

	require.Same(t, c.Compute(), c.Compute())
	require.True(t, c.Compute().IsValid())
}

func TestOnNodeIOFailed(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c := newClient(t, conf)
	exec.SetNodes("s1:11211", 2)

	// A connection failure against a node refreshes the topology before the
	// error is returned to the caller.
	exec.mut.Lock()
	exec.cacheErr = errUnreachable
	exec.mut.Unlock()

	err := c.Data().Put(context.Background(), "k", []byte("v"))
	require.ErrorIs(t, err, nodeapi.ErrConnection)

	require.Equal(t, []topology.NodeID{nodeID(2)}, snapshotIDs(c.Topology()))
	require.Len(t, exec.Calls(), 2)
}

func TestStop(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}

	c, err := client.New(conf)
	require.NoError(t, err)

	data := c.DataNamed("orders")
	compute := c.Compute()

	c.Stop(false)

	require.False(t, data.IsValid())
	require.False(t, compute.IsValid())
	require.Equal(t, 1, exec.Stopped())

	err = data.Put(context.Background(), "k", nil)
	require.ErrorIs(t, err, projection.ErrInvalidated)

	// Projections created after stop are already invalid.
	require.False(t, c.DataNamed("other").IsValid())

	// Refresh is a no-op once stopped.
	calls := len(exec.Calls())
	c.Refresh()
	require.Len(t, exec.Calls(), calls)

	// Repeated stop does nothing.
	c.Stop(false)
	require.Equal(t, 1, exec.Stopped())
}

func TestStop_Wait(t *testing.T) {
	exec := newFakeExecutor()

	c, err := client.New(testConfig(exec))
	require.NoError(t, err)

	data := c.Data()
	c.Stop(true)

	require.False(t, data.IsValid())
	require.Equal(t, 0, exec.Stopped())

	// The compute projection was never requested before stop, it is created
	// already invalid.
	require.False(t, c.Compute().IsValid())
}

// blockingExecutor answers the first topology request and blocks every later
// one until the executor is stopped.
type blockingExecutor struct {
	fakeExecutor
	blocked  chan struct{}
	release  chan struct{}
	requests int32
	once     sync.Once
}

func newBlockingExecutor() *blockingExecutor {
	e := &blockingExecutor{
		fakeExecutor: fakeExecutor{nodes: make(map[string][]nodeapi.NodeInfo)},
		blocked:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}

	e.SetNodes("s1:11211", 1)

	return e
}

func (e *blockingExecutor) Topology(ctx context.Context, addr string, req *nodeapi.TopologyRequest) (*nodeapi.TopologyResult, error) {
	if atomic.AddInt32(&e.requests, 1) == 1 {
		return e.fakeExecutor.Topology(ctx, addr, req)
	}

	select {
	case e.blocked <- struct{}{}:
	default:
	}

	<-e.release

	return nil, nodeapi.ErrStopped
}

func (e *blockingExecutor) Stop() {
	e.once.Do(func() { close(e.release) })
}

func TestStop_RefreshInFlight(t *testing.T) {
	exec := newBlockingExecutor()

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.RefreshInterval = 10 * time.Millisecond
	conf.RequestTimeout = 0

	c, err := client.New(conf)
	require.NoError(t, err)

	select {
	case <-exec.blocked:
	case <-time.After(time.Second):
		t.Fatal("periodic refresh did not start")
	}

	done := make(chan struct{})

	go func() {
		c.Stop(false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop is blocked by the running refresh")
	}

	// The aborted refresh keeps the last known topology.
	require.Equal(t, []topology.NodeID{nodeID(1)}, snapshotIDs(c.Topology()))
}

func TestStop_FromListener(t *testing.T) {
	exec := newFakeExecutor()
	exec.SetNodes("s1:11211", 1)

	conf := testConfig(exec)
	conf.Servers = []string{"s1:11211"}
	conf.RefreshInterval = 10 * time.Millisecond

	c, err := client.New(conf)
	require.NoError(t, err)

	var once sync.Once

	stopped := make(chan struct{})

	c.AddTopologyListener(&topology.ListenerFuncs{
		Added: func(topology.Node) error {
			// Runs on the refresher goroutine.
			once.Do(func() {
				c.Stop(false)
				close(stopped)
			})

			return nil
		},
	})

	exec.SetNodes("s1:11211", 1, 2)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop from a listener did not return")
	}

	require.False(t, c.Data().IsValid())
	require.Equal(t, 1, exec.Stopped())
}

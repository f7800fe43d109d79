package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/maxpoletaev/gridclient/internal/grpcutil"
	"github.com/maxpoletaev/gridclient/nodeapi"
)

const (
	topologyMethod = "/gridclient.v1.Grid/Topology"
	cacheMethod    = "/gridclient.v1.Grid/Cache"
	taskMethod     = "/gridclient.v1.Grid/Task"
)

var (
	_ nodeapi.Executor = (*Executor)(nil)
)

// Executor is a nodeapi.Executor that talks to grid endpoints over gRPC.
// Messages are encoded as google.protobuf.Struct, so no generated stubs are
// required on either side.
type Executor struct {
	conns   *connPool
	logger  kitlog.Logger
	stopped uint32
}

type executorConfig struct {
	dialer      Dialer
	logger      kitlog.Logger
	dialTimeout time.Duration
	idleTimeout time.Duration
}

type Option func(*executorConfig)

// WithDialer replaces the function used to establish connections.
func WithDialer(d Dialer) Option {
	return func(c *executorConfig) {
		c.dialer = d
	}
}

func WithLogger(l kitlog.Logger) Option {
	return func(c *executorConfig) {
		c.logger = l
	}
}

func WithDialTimeout(t time.Duration) Option {
	return func(c *executorConfig) {
		c.dialTimeout = t
	}
}

// WithIdleTimeout sets how long an unused connection is kept open.
func WithIdleTimeout(t time.Duration) Option {
	return func(c *executorConfig) {
		c.idleTimeout = t
	}
}

func NewExecutor(opts ...Option) *Executor {
	conf := executorConfig{
		dialer:      Dial,
		logger:      kitlog.NewNopLogger(),
		dialTimeout: 5 * time.Second,
		idleTimeout: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(&conf)
	}

	return &Executor{
		conns:  newConnPool(conf.dialer, conf.dialTimeout, conf.idleTimeout, conf.logger),
		logger: conf.logger,
	}
}

func (e *Executor) isStopped() bool {
	return atomic.LoadUint32(&e.stopped) == 1
}

func (e *Executor) invoke(ctx context.Context, addr, method string, req, resp *structpb.Struct) error {
	if e.isStopped() {
		return nodeapi.ErrStopped
	}

	conn, err := e.conns.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, nodeapi.ErrStopped) {
			return err
		}

		return fmt.Errorf("%w: %s: %w", nodeapi.ErrConnection, addr, err)
	}

	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		switch {
		case e.isStopped():
			return nodeapi.ErrStopped
		case grpcutil.IsCanceled(err) && ctx.Err() != nil:
			return fmt.Errorf("%s %s: %w", addr, method, ctx.Err())
		case grpcutil.IsUnreachable(err):
			return fmt.Errorf("%w: %s: %w", nodeapi.ErrConnection, addr, err)
		default:
			return fmt.Errorf("%s %s: %w", addr, method, err)
		}
	}

	return nil
}

func (e *Executor) Topology(ctx context.Context, addr string, req *nodeapi.TopologyRequest) (*nodeapi.TopologyResult, error) {
	resp := &structpb.Struct{}

	if err := e.invoke(ctx, addr, topologyMethod, ToProtoTopologyRequest(req), resp); err != nil {
		return nil, err
	}

	return FromProtoTopologyResult(resp)
}

func (e *Executor) Cache(ctx context.Context, addr string, req *nodeapi.CacheRequest) (*nodeapi.CacheResult, error) {
	resp := &structpb.Struct{}

	if err := e.invoke(ctx, addr, cacheMethod, ToProtoCacheRequest(req), resp); err != nil {
		return nil, err
	}

	return FromProtoCacheResult(resp)
}

func (e *Executor) Task(ctx context.Context, addr string, req *nodeapi.TaskRequest) (*nodeapi.TaskResult, error) {
	resp := &structpb.Struct{}

	if err := e.invoke(ctx, addr, taskMethod, ToProtoTaskRequest(req), resp); err != nil {
		return nil, err
	}

	return FromProtoTaskResult(resp)
}

// Stop closes all connections, which aborts the calls that are in flight.
func (e *Executor) Stop() {
	if !atomic.CompareAndSwapUint32(&e.stopped, 0, 1) {
		return
	}

	if err := e.conns.Close(); err != nil {
		level.Warn(e.logger).Log("msg", "failed to close connections", "err", err)
	}
}

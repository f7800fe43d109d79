package grpc

import (
	"context"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"

	"github.com/maxpoletaev/gridclient/internal/multierror"
	"github.com/maxpoletaev/gridclient/nodeapi"
)

// connPool keeps one connection per endpoint address. Connections that have
// not been used for the idle timeout are evicted and closed.
type connPool struct {
	cache       *gocache.Cache
	inProgress  singleflight.Group
	dialer      Dialer
	dialTimeout time.Duration
	logger      kitlog.Logger
	closed      uint32
}

func newConnPool(dialer Dialer, dialTimeout, idleTimeout time.Duration, logger kitlog.Logger) *connPool {
	p := &connPool{
		cache:       gocache.New(idleTimeout, idleTimeout/2),
		dialer:      dialer,
		dialTimeout: dialTimeout,
		logger:      logger,
	}

	p.cache.OnEvicted(func(addr string, v interface{}) {
		if err := v.(*grpc.ClientConn).Close(); err != nil {
			level.Warn(p.logger).Log("msg", "failed to close connection", "addr", addr, "err", err)
		}
	})

	return p
}

func (p *connPool) isClosed() bool {
	return atomic.LoadUint32(&p.closed) == 1
}

// Get returns a connection to the given address, dialing it if there is none.
// Concurrent calls for the same address share a single dial.
func (p *connPool) Get(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	if p.isClosed() {
		return nil, nodeapi.ErrStopped
	}

	if v, ok := p.cache.Get(addr); ok {
		conn := v.(*grpc.ClientConn)
		p.cache.SetDefault(addr, conn) // extend the idle deadline

		return conn, nil
	}

	v, err, _ := p.inProgress.Do(addr, func() (interface{}, error) {
		// Another goroutine might have finished dialing right before us.
		if v, ok := p.cache.Get(addr); ok {
			return v, nil
		}

		dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
		defer cancel()

		conn, err := p.dialer(dialCtx, addr)
		if err != nil {
			return nil, err
		}

		if p.isClosed() {
			_ = conn.Close()
			return nil, nodeapi.ErrStopped
		}

		// An expired entry may still be in the cache, evict it so that it is closed.
		p.cache.Delete(addr)
		p.cache.SetDefault(addr, conn)

		level.Debug(p.logger).Log("msg", "connection established", "addr", addr)

		return conn, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*grpc.ClientConn), nil
}

// Close closes all connections. Any later Get fails with nodeapi.ErrStopped.
func (p *connPool) Close() error {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return nil // already closed
	}

	// Expired connections are closed by the eviction callback.
	p.cache.DeleteExpired()

	items := p.cache.Items()
	p.cache.Flush()

	errs := multierror.New[string]()

	for addr, item := range items {
		if err := item.Object.(*grpc.ClientConn).Close(); err != nil {
			errs.Add(addr, err)
		}
	}

	return errs.Combined()
}

// Len returns the number of cached connections.
func (p *connPool) Len() int {
	return p.cache.ItemCount()
}

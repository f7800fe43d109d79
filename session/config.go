package session

import (
	"errors"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"

	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/topology"
)

var ErrInvalidConfig = errors.New("invalid client configuration")

type Config struct {
	// Servers are the addresses of the grid nodes used for topology discovery.
	// Mutually exclusive with Routers.
	Servers []string

	// Routers are the addresses of the grid routers. When set, the topology is
	// always discovered through them instead of the servers.
	Routers []string

	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	PoolSize        int

	// Listeners are registered before the first topology refresh, so they
	// observe the initial set of nodes as added events.
	Listeners []topology.Listener

	// CacheFlags are the default flags of every data projection.
	CacheFlags []string

	Executor nodeapi.Executor
	Logger   kitlog.Logger
}

func DefaultConfig() Config {
	return Config{
		Logger:          kitlog.NewNopLogger(),
		RefreshInterval: 1 * time.Minute,
		RequestTimeout:  10 * time.Second,
		PoolSize:        4,
	}
}

// Candidates returns the addresses used for the topology discovery. Routers
// take precedence over servers.
func (c Config) Candidates() []string {
	if len(c.Routers) > 0 {
		return c.Routers
	}

	return c.Servers
}

// Validate checks the configuration. All returned errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case len(c.Servers) > 0 && len(c.Routers) > 0:
		return fmt.Errorf("%w: servers and routers cannot be used together", ErrInvalidConfig)
	case c.Executor == nil:
		return fmt.Errorf("%w: executor is required", ErrInvalidConfig)
	case c.PoolSize <= 0:
		return fmt.Errorf("%w: pool size must be positive, got %d", ErrInvalidConfig, c.PoolSize)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: refresh interval must be positive, got %s", ErrInvalidConfig, c.RefreshInterval)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request timeout cannot be negative", ErrInvalidConfig)
	}

	return nil
}

package session

import (
	kitlog "github.com/go-kit/log"
	"github.com/google/uuid"

	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/topology"
)

// ClientID identifies the client in every command sent to the grid.
type ClientID = uuid.UUID

// NewClientID generates a random client id.
func NewClientID() ClientID {
	return uuid.New()
}

// Context is the state shared between the client and its projections. It
// carries no logic of its own.
type Context struct {
	clientID ClientID
	config   Config
	topology *topology.Topology
}

func NewContext(id ClientID, conf Config, topo *topology.Topology) *Context {
	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	return &Context{
		clientID: id,
		config:   conf,
		topology: topo,
	}
}

func (c *Context) ClientID() ClientID {
	return c.clientID
}

func (c *Context) Config() Config {
	return c.config
}

func (c *Context) Executor() nodeapi.Executor {
	return c.config.Executor
}

func (c *Context) Topology() *topology.Topology {
	return c.topology
}

func (c *Context) Logger() kitlog.Logger {
	return c.config.Logger
}

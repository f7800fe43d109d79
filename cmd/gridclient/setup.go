package main

import (
	"io"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gridclient/client"
	nodeapigrpc "github.com/maxpoletaev/gridclient/nodeapi/grpc"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/topology"
)

func setupLogger(w io.Writer, verbose bool) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if !verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger
}

func clientConfig(opts *options, exec *nodeapigrpc.Executor, logger kitlog.Logger, listeners ...topology.Listener) session.Config {
	conf := session.DefaultConfig()
	conf.Servers = opts.Servers
	conf.Routers = opts.Routers
	conf.RefreshInterval = opts.RefreshInterval
	conf.RequestTimeout = opts.RequestTimeout
	conf.PoolSize = opts.PoolSize
	conf.CacheFlags = opts.CacheFlags
	conf.Listeners = listeners
	conf.Executor = exec
	conf.Logger = logger

	return conf
}

// setupClient starts a client over a gRPC executor. The returned function
// stops both, waiting for the pending requests to finish.
func setupClient(opts *options, logger kitlog.Logger, listeners ...topology.Listener) (*client.Client, func(), error) {
	execOpts := []nodeapigrpc.Option{
		nodeapigrpc.WithLogger(logger),
	}

	if opts.RequestTimeout > 0 {
		execOpts = append(execOpts, nodeapigrpc.WithDialTimeout(opts.RequestTimeout))
	}

	exec := nodeapigrpc.NewExecutor(execOpts...)

	c, err := client.New(clientConfig(opts, exec, logger, listeners...))
	if err != nil {
		exec.Stop()
		return nil, nil, err
	}

	shutdown := func() {
		c.Stop(true)
		exec.Stop()
	}

	return c, shutdown, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/maxpoletaev/gridclient/metrics"
	"github.com/maxpoletaev/gridclient/topology"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gridclient",
		Short:         "Inspect and watch the topology of a data grid",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		newTopologyCmd(),
		newWatchCmd(),
	)

	return rootCmd
}

func newTopologyCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Discover the grid topology once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			logger := setupLogger(cmd.ErrOrStderr(), opts.Verbose)

			c, shutdown, err := setupClient(opts, logger)
			if err != nil {
				return err
			}

			defer shutdown()

			return writeTopology(cmd.OutOrStdout(), output, c.Topology())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml, toml)")

	return cmd
}

func newWatchCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log the nodes joining and leaving the grid until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := setupLogger(cmd.ErrOrStderr(), opts.Verbose)

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			stopServer := func() {}

			if metricsAddr != "" {
				stopServer = serveMetrics(metricsAddr, logger)
			}

			defer stopServer()

			c, shutdown, err := setupClient(opts, logger, newLoggingListener(logger))
			if err != nil {
				return err
			}

			level.Info(logger).Log("msg", "watching topology", "client_id", c.ID(), "nodes", c.Topology().Len())

			<-ctx.Done()

			level.Info(logger).Log("msg", "shutting down")
			shutdown()

			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve prometheus metrics on")

	return cmd
}

func newLoggingListener(logger kitlog.Logger) topology.Listener {
	return &topology.ListenerFuncs{
		Added: func(node topology.Node) error {
			level.Info(logger).Log("msg", "node added", "node_id", node.ID, "addr", node.Addr())
			return nil
		},
		Removed: func(node topology.Node) error {
			level.Info(logger).Log("msg", "node removed", "node_id", node.ID, "addr", node.Addr())
			return nil
		},
	}
}

func serveMetrics(addr string, logger kitlog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "metrics server failed", "addr", addr, "err", err)
			os.Exit(1)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			level.Warn(logger).Log("msg", "failed to shutdown metrics server", "err", err)
		}
	}
}

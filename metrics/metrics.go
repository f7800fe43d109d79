package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gridclient"

var (
	TopologyRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "topology_refresh_total",
		Help:      "Topology refresh cycles by result (ok, failed, skipped).",
	}, []string{"result"})

	TopologyRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "topology_refresh_duration_seconds",
		Help:      "Duration of topology refresh cycles, including failover attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	TopologyNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "topology_nodes",
		Help:      "Number of nodes in the current topology snapshot.",
	})

	ListenerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "topology_listener_failures_total",
		Help:      "Topology listener callbacks that returned an error or panicked.",
	}, []string{"event"})

	PoolTasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workerpool_tasks_total",
		Help:      "Worker pool tasks by result (accepted, rejected, panicked).",
	}, []string{"result"})
)

// Register registers the client metrics on the given registry (or the default
// one if nil). Metrics that are already registered are skipped.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	collectors := []prometheus.Collector{
		TopologyRefreshes,
		TopologyRefreshDuration,
		TopologyNodes,
		ListenerFailures,
		PoolTasks,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}

// Package metrics exposes Prometheus instruments for the projection engine.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	appLog "calgrid/internal/log"
)

var (
	RenderPasses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calgrid_render_passes_total",
		Help: "Number of full projection passes computed",
	})
	InvalidInstants = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calgrid_invalid_instants_total",
		Help: "Event times that could not be parsed and were replaced by now",
	})
	RenderInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calgrid_render_instances",
		Help: "Render instances emitted by the last pass",
	})
	ZoneChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calgrid_zone_changes_total",
		Help: "Attempts to switch the active zone or locale, by outcome",
	}, []string{"kind", "outcome"})
	FeedFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calgrid_feed_fetches_total",
		Help: "ICS feed fetches, by source and outcome",
	}, []string{"source", "outcome"})
)

// Register adds every instrument to reg. Already-registered collectors are
// not treated as errors so Register can be called more than once.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RenderPasses,
		InvalidInstants,
		RenderInstances,
		ZoneChanges,
		FeedFetches,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			appLog.Error("can't register metric", err)
			return err
		}
	}
	appLog.Debug("metrics registered")
	return nil
}

package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ironsheep/network-image-mcp/internal/locator"
)

var (
	metricLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netimage",
		Name:      "loads_total",
		Help:      "Finished loads by locator kind and outcome.",
	}, []string{"kind", "outcome"})
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netimage",
		Name:      "events_total",
		Help:      "Emitted load events by image source and finality.",
	}, []string{"source", "final"})
	metricStaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netimage",
		Name:      "stale_events_discarded_total",
		Help:      "Events dropped because a newer load superseded theirs.",
	})
)

func recordLoad(kind locator.Kind, outcome Outcome) {
	metricLoads.WithLabelValues(kind.String(), outcome.String()).Inc()
}

func recordEvent(source Source, final bool) {
	f := "false"
	if final {
		f = "true"
	}
	metricEvents.WithLabelValues(source.String(), f).Inc()
}

func recordStaleDiscard() {
	metricStaleDiscards.Inc()
}

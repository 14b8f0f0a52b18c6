package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netimage",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by tier and result.",
	}, []string{"tier", "result"})
	metricWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netimage",
		Subsystem: "cache",
		Name:      "writes_total",
		Help:      "Cache writes by tier and result (stored, exists, error).",
	}, []string{"tier", "result"})
	metricEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netimage",
		Subsystem: "cache",
		Name:      "memory_evictions_total",
		Help:      "Entries dropped from the memory tier by capacity or clear.",
	})
)

func recordLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metricLookups.WithLabelValues(tier, result).Inc()
}

func recordWrite(tier, result string) {
	metricWrites.WithLabelValues(tier, result).Inc()
}

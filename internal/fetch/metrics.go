package fetch

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netimage",
		Subsystem: "fetch",
		Name:      "requests_total",
		Help:      "Outgoing image requests by kind (thumbnail, full) and status code (0 for transport failures).",
	}, []string{"kind", "code"})
	metricDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "netimage",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Outgoing image request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	metricBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netimage",
		Subsystem: "fetch",
		Name:      "received_bytes_total",
		Help:      "Response body bytes received from successful fetches.",
	})
)

func recordFetch(kind string, resp *Response, err error, elapsed time.Duration) {
	code := 0
	if resp != nil {
		code = resp.StatusCode
		metricBytes.Add(float64(len(resp.Body)))
	}
	var ferr *Error
	if errors.As(err, &ferr) {
		code = ferr.StatusCode
	}
	metricRequests.WithLabelValues(kind, strconv.Itoa(code)).Inc()
	metricDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

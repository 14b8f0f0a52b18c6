package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the metrics endpoint is mounted.
const MetricsPath = "/metrics"

// MetricsServer serves a Prometheus registry over HTTP.
type MetricsServer struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// MetricsHandler returns a router serving gatherer at MetricsPath. A nil
// gatherer serves the default registry.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := chi.NewRouter()
	r.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// StartMetrics listens on addr and serves the default registry in the
// background until Shutdown.
func StartMetrics(addr string, logger *slog.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	m := &MetricsServer{
		srv: &http.Server{
			Handler:           MetricsHandler(nil),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", m.Addr(), "path", MetricsPath)
	return m, nil
}

// Addr returns the address the server listens on.
func (m *MetricsServer) Addr() string {
	return m.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

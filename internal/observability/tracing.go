package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Span exporters accepted by TracingConfig.Exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterZipkin = "zipkin"
)

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is none, stdout, otlp or zipkin. Empty means none.
	Exporter string

	// Endpoint is the collector address for otlp (host:port) and zipkin
	// (URL). Empty selects the exporter's local default.
	Endpoint string

	// SampleRate is the fraction of loads traced, 0 to 1. Zero means 1.
	SampleRate float64

	ServiceName    string
	ServiceVersion string

	// Writer receives stdout exporter output. Defaults to os.Stderr since
	// stdout carries MCP traffic.
	Writer io.Writer
}

// ValidExporter reports whether name is an accepted exporter.
func ValidExporter(name string) bool {
	switch name {
	case "", ExporterNone, ExporterStdout, ExporterOTLP, ExporterZipkin:
		return true
	}
	return false
}

// TracerProvider owns the installed SDK provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider builds the configured exporter and installs a provider
// using it as the global one. With no exporter nothing is installed and
// spans stay no-ops.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "", ExporterNone:
		return &TracerProvider{}, nil
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case ExporterZipkin:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return install(ctx, exporter, cfg)
}

func install(ctx context.Context, exporter sdktrace.SpanExporter, cfg TracingConfig) (*TracerProvider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "network-image-mcp"
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}, nil
}

// Enabled reports whether spans are exported.
func (tp *TracerProvider) Enabled() bool {
	return tp.provider != nil
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

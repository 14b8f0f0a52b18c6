// Package observability exposes the process's Prometheus metrics over HTTP
// and installs the OpenTelemetry tracer provider that load spans are
// recorded with.
package observability

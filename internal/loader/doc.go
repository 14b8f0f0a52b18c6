// Package loader resolves image locators to decoded images.
//
// The Loader is the state machine that ties the other packages together:
//
//	Idle -> Classifying -> CacheCheck -> (ThumbnailFetch) -> FullFetch -> Decoding -> Ready
//	                  \___________\______________\_______________\________-> Failed
//
// Remote locators consult the configured cache tier first. On a miss an
// optional 200px thumbnail is fetched and emitted as a non-final event, then
// the full image is fetched, rasterized when it is an SVG document, stored in
// the cache and emitted as the final event. Local files and embedded
// resources are read directly and never cached.
//
// # Failure Handling
//
// Nothing is returned as an error to the caller. A failed thumbnail is
// skipped. A failed full load emits the placeholder image when one is
// configured and an empty final event otherwise; either way the final
// event's Err holds a *LoadError naming the stage and the kind of failure.
//
// # Concurrency
//
// Load runs each request on its own goroutine and reports through a
// channel. Binding layers generation tracking on top: every Set supersedes
// and cancels the previous load for the same target and drops its late
// events.
//
// # Observability
//
// Each load gets a uuid load ID that appears in every log line and a span
// named SpanName from the global OpenTelemetry provider. Loads are counted in
// the default Prometheus registry under the "netimage" namespace. Package
// observability exports both.
package loader

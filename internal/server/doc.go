// Package server implements the MCP (Model Context Protocol) server that
// exposes image loading and cache administration as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Loading:
//   - image_fetch: Run one load and return its events and final image
//   - image_view_set: Start a background load into a named view
//   - image_view_status: Report what a view displays
//
// Cache Administration:
//   - image_cache_key: Show the cache key and cache state of a URL
//   - image_cache_clear: Clear the memory tier, the disk tier, or both
//   - image_cache_remove: Drop one URL from both tiers
//
// Vector Rendering:
//   - image_rasterize_svg: Render an SVG file to PNG
//
// # Views
//
// A view stands in for an on-screen image control. Each view owns a
// loader.Binding, so a new image_view_set cancels the view's previous load
// and anything that load still emits is dropped. Views live until Serve
// returns.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A load that ends in a placeholder or no image is not a tool error. Its
// outcome, stage and error kind are reported in the tool result.
//
// # Usage
//
//	srv := server.New(cfg.NewLoader(logger), server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

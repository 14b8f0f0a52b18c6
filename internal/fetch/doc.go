// Package fetch retrieves image payloads over HTTP.
//
// A Fetcher issues exactly one GET per call. The request URL keeps the
// locator's own query parameters and sets two more:
//   - w: ThumbnailWidth (200) for thumbnail fetches, the requested width for
//     full fetches, omitted when no width is requested
//   - token: the caller's auth token, when one is configured
//
// Any 2xx status returns the whole body. Everything else, including
// transport failures, timeouts and cancellation, returns *Error. Retry policy
// belongs to the caller.
//
// Every request is bounded by the client timeout and by the caller's
// context, and bodies larger than Config.MaxBodyBytes are rejected. An
// optional token-bucket limiter (golang.org/x/time/rate) throttles the
// request rate across all loads sharing a Fetcher.
package fetch

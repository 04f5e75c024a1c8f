// Package middlewares holds the stock core.Middleware constructors: endpoint
// selection, headers and auth, query validation, logging, retry, secret masking,
// tracing and timing.
//
// Order matters. A typical chain is
//
//	Tracing -> Logger -> Validate -> URL/Router -> Headers -> Auth -> Mask -> Retry
//
// so that every retry attempt reuses the already prepared request.
package middlewares

// Package server provides the gateway's HTTP server: Gin served over
// HTTP/1.1 and h2c, a server-level middleware chain, and lifecycle
// integration through component.Component.
//
// # Middleware
//
// server/middleware runs at the http.Handler level, so it also covers the
// NoRoute proxy:
//
//   - Recovery: panic recovery with a JSON 500
//   - RequestID: X-Request-Id generation and propagation
//   - observability.HTTPMiddleware: server span continuing the caller's trace
//   - ServiceHeaders: X-Service and X-Service-Version
//   - CORS, BodySizeLimit, RequestLogger
//   - RateLimit: per-client token buckets
//   - Auth: gin handler requiring a bearer token
//
// # Endpoints
//
// server/endpoint provides /ready, /metrics (Prometheus) and the banner.
package server

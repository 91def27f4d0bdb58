// Package gateway is the request-path half of the control plane.
//
// A request is matched against a RouteTable, passes the auth gate when the
// rule requires it, then goes through the Forwarder: breaker check,
// registry resolve, forward with a bounded timeout, breaker update. Replies
// of any status are relayed verbatim; refusals and transport failures are
// answered with 503.
//
// The Aggregator issues several Forwarder calls in parallel for
// /api/search (partial results with error markers) and /api/dashboard
// (list-service is critical, categories degrade).
package gateway

// Package resilience holds the failure-handling primitives used across the
// gateway.
//
//   - BreakerSet: per-destination circuit breakers with a single half-open trial
//   - Retry: bounded exponential retry, used for optimistic store writes
//   - Bulkhead: caps concurrent fan-out calls
//   - RateLimiter / KeyedRateLimiter: token buckets for ingress limiting
//
// The gateway router never retries; a breaker stops calls instead.
package resilience

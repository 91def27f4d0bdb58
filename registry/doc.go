// Package registry is the shared record of which service instances exist,
// where they are, and whether they are healthy.
//
// A Store holds ServiceInstance records keyed by (name, address). Three
// backends share the same semantics: MemoryStore for a single process,
// SQLStore over a SQLite file, and RedisStore over a Redis server. Any
// number of processes may write the SQL or Redis backends concurrently;
// writes to different keys never overwrite each other.
//
// Three loops keep the records current:
//
//   - Prober polls each instance's health endpoint and records UP or DOWN.
//   - Reaper removes instances whose heartbeat is older than StaleAfter.
//   - Agent registers the local process and refreshes its heartbeat.
//
// Resolve chooses among UP instances with a Selector: FirstMatch (default),
// RoundRobin or Random.
package registry

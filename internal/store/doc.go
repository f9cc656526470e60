// Package store provides SQLite-backed durable storage for execution traces.
//
// A run records which compiled automata were executed (by fingerprint),
// the input they were fed and its outcome. Its trace is the ordered list of
// cursor lifecycle events the executor emitted.
//
// # Ordering
//
// All ordering uses the logical seq and tick columns, never timestamps.
// Trace queries are ORDER BY seq ASC so that reads are identical across
// replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Trace hashes are computed with ir.TraceHash over the canonical form of
// the events, which leaves out instance ids.
package store

// Package recorder appends detected arbitrage opportunities and execution
// reports to Postgres for offline research.
//
// The recorder hangs off the detector and engine callbacks, buffers rows
// in memory, and batch-inserts on a size or interval trigger. It is never
// on a hot path: a missing database pool disables persistence while the
// buffers and counters keep working, and inserts use ON CONFLICT DO
// NOTHING so replays stay idempotent.
package recorder

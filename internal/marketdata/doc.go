// Package marketdata ingests normalized messages, maintains per-market
// quotes and order books, and serves reader snapshots.
//
// One worker goroutine (optionally pinned to a core) drains the inbound
// MPSC queue; quote and book maps are single-writer, many-reader under
// read-write locks. A quote write is a single map upsert; a book write
// holds the book lock while it finds or creates the book and applies the
// snapshot. Market
// data is lossy by design: a full inbound queue drops the message and
// counts it rather than stalling the parser upstream.
package marketdata

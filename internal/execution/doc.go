// Package execution runs the risk-checked order pipeline: pre-trade
// checks, order dispatch to venue connections on a pinned worker, and
// reconciliation of asynchronous execution reports back into order state
// and positions.
//
// SubmitOrder is synchronous up to the risk verdict; everything after rides
// two wait-free queues (orders out, reports in) drained by dedicated
// workers. Orders stay in the active index after a terminal status, so
// GetOrder still returns them; a terminal report drops only the order's
// external-id mapping and its per-order callback. A rejected request
// produces exactly one Rejected report and is never retried.
package execution

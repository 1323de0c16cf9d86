// Package arb scans cross-venue quotes for executable spreads.
//
// The detector keeps its own (market, venue) quote table fed from the
// market-data handler's quote callback. When a venue has no directly
// observed quote for a market, its view is synthesized from the handler's
// shared quote scaled by configured per-venue price offsets, so the scan
// still produces a signal. Detected opportunities
// live in a cache keyed by (market, buy venue, sell venue) until they age
// out.
package arb

// Package protocol defines the venue vocabulary of the trading core: the
// Protocol and Side enums, raw inbound packets, the normalized message sum
// type, and the per-venue parsers that translate wire frames into it.
//
// Conventions:
//   - Prices and sizes: float64, zero means absent
//   - Timestamps: int64 monotonic nanoseconds, always stamped from packet
//     receipt, never from the system clock inside a parser
//   - Parsers are total: malformed or truncated input yields nil, never a
//     panic or an out-of-bounds read
package protocol

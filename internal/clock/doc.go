// Package clock provides nanosecond-precision monotonic timing for latency
// measurement, jitter analysis, and performance profiling.
//
// Conventions:
//   - All timestamps are int64 nanoseconds from a single monotonic source
//     shared across the process (never the wall clock).
//   - LatencyStats is not safe for concurrent use; each worker owns its own.
package clock

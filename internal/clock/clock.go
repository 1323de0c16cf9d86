package clock

import "time"

// epoch anchors the monotonic clock at process start. time.Since reads the
// runtime monotonic counter, so NowNS never jumps with wall-clock changes.
var epoch = time.Now()

// NowNS returns monotonic nanoseconds since process start.
func NowNS() int64 {
	return int64(time.Since(epoch))
}

// NowUS returns monotonic microseconds since process start.
func NowUS() int64 {
	return NowNS() / 1000
}

// ScopeTimer measures the lifetime of a code block. Stop writes the elapsed
// nanoseconds to the output pointer given at construction.
type ScopeTimer struct {
	start int64
	out   *int64
}

// NewScopeTimer starts a timer that writes its elapsed nanoseconds to out
// when Stop is called.
func NewScopeTimer(out *int64) *ScopeTimer {
	return &ScopeTimer{start: NowNS(), out: out}
}

// Stop records the elapsed time. Safe to call more than once; the last call
// wins.
func (t *ScopeTimer) Stop() {
	*t.out = NowNS() - t.start
}

// MeasureNS returns the execution time of fn in nanoseconds.
func MeasureNS(fn func()) int64 {
	start := NowNS()
	fn()
	return NowNS() - start
}

// Benchmark runs fn the given number of iterations and collects per-call
// latency statistics.
func Benchmark(fn func(), iterations int) *LatencyStats {
	stats := NewLatencyStats(iterations)
	for i := 0; i < iterations; i++ {
		stats.Record(MeasureNS(fn))
	}
	return stats
}

// BusyWaitNS spins until the given number of nanoseconds has elapsed. More
// precise than time.Sleep for sub-millisecond waits.
func BusyWaitNS(ns int64) {
	end := NowNS() + ns
	for NowNS() < end {
	}
}

// BusyWaitUS spins for the given number of microseconds.
func BusyWaitUS(us int64) {
	BusyWaitNS(us * 1000)
}

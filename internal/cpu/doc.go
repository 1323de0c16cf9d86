// Package cpu provides thread placement for latency-sensitive workers:
// CPU core pinning and real-time scheduling policy.
//
// All operations are advisory. On platforms without affinity support, or
// when the process lacks CAP_SYS_NICE, calls report failure in the returned
// PinResult and the caller continues at normal priority. Callers must hold
// the OS thread (runtime.LockOSThread) before pinning, otherwise the Go
// scheduler may migrate the goroutine off the pinned thread.
package cpu

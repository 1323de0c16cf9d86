//go:build linux

package cpu

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PinToCore pins the current OS thread to the given logical CPU. The caller
// must have locked the goroutine to its thread first.
func PinToCore(core int) PinResult {
	if core < 0 || core >= NumCores() {
		return PinResult{Errno: int(unix.EINVAL), Message: fmt.Sprintf("core %d out of range", core)}
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(core)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		errno, _ := err.(syscall.Errno)
		return PinResult{Errno: int(errno), Message: fmt.Sprintf("failed to pin to core %d: %v", core, err)}
	}
	return PinResult{Success: true, Message: fmt.Sprintf("pinned to core %d", core)}
}

// schedParam mirrors the kernel's struct sched_param.
type schedParam struct {
	priority int32
}

// SetRealtimePriority moves the current thread onto the SCHED_FIFO run
// queue at the given priority (1-99). Requires CAP_SYS_NICE.
func SetRealtimePriority(priority int) PinResult {
	if priority < 1 || priority > 99 {
		return PinResult{Errno: int(unix.EINVAL), Message: fmt.Sprintf("priority %d out of range 1-99", priority)}
	}

	param := schedParam{priority: int32(priority)}
	_, _, errno := unix.Syscall(
		unix.SYS_SCHED_SETSCHEDULER,
		0, // current thread
		uintptr(unix.SCHED_FIFO),
		uintptr(unsafe.Pointer(&param)),
	)
	if errno != 0 {
		return PinResult{Errno: int(errno), Message: fmt.Sprintf("failed to set SCHED_FIFO %d (need CAP_SYS_NICE?): %v", priority, errno)}
	}
	return PinResult{Success: true, Message: fmt.Sprintf("set SCHED_FIFO priority %d", priority)}
}

// CurrentCore returns the logical CPU the calling thread last ran on, or -1
// when unavailable. getcpu(2) writes through its pointer arguments, so the
// wrapper-less raw syscall is used the same way as sched_setscheduler above.
func CurrentCore() int {
	var cpu uint32
	_, _, errno := unix.Syscall(
		unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)),
		0, // node not needed
		0, // unused since Linux 2.6.24
	)
	if errno != 0 {
		return -1
	}
	return int(cpu)
}

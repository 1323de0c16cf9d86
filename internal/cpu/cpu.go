package cpu

import (
	"fmt"
	"runtime"
)

// PinResult reports the outcome of a thread-placement operation.
type PinResult struct {
	Success bool
	Errno   int
	Message string
}

// Ok reports whether the operation fully succeeded.
func (r PinResult) Ok() bool { return r.Success }

// ConfigureLowLatency pins the current thread to core and raises it to
// real-time priority. Pinning failure aborts; a real-time failure after a
// successful pin is reported as partial success.
func ConfigureLowLatency(core, rtPriority int) PinResult {
	pin := PinToCore(core)
	if !pin.Success {
		return pin
	}

	rt := SetRealtimePriority(rtPriority)
	if !rt.Success {
		return PinResult{
			Success: true,
			Errno:   rt.Errno,
			Message: fmt.Sprintf("%s; rt scheduling failed: %s", pin.Message, rt.Message),
		}
	}

	return PinResult{Success: true, Message: pin.Message + "; " + rt.Message}
}

// NumCores returns the number of logical CPUs available to the process.
func NumCores() int {
	return runtime.NumCPU()
}

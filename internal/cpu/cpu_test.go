package cpu

import (
	"runtime"
	"strings"
	"testing"
)

func TestPinToCore_OutOfRange(t *testing.T) {
	res := PinToCore(-1)
	if res.Success {
		t.Error("PinToCore(-1) succeeded, want failure")
	}
	if res.Message == "" {
		t.Error("PinToCore(-1) returned empty message")
	}

	res = PinToCore(NumCores() + 64)
	if res.Success {
		t.Errorf("PinToCore(%d) succeeded, want failure", NumCores()+64)
	}
}

func TestPinToCore_Advisory(t *testing.T) {
	// Pinning may fail in containers or on unsupported platforms; either
	// outcome must carry a descriptive message and never panic.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res := PinToCore(0)
	if res.Message == "" {
		t.Error("PinToCore(0) returned empty message")
	}
	if res.Success && !strings.Contains(res.Message, "core 0") {
		t.Errorf("success message %q does not name the core", res.Message)
	}
}

func TestSetRealtimePriority_Range(t *testing.T) {
	for _, p := range []int{0, 100, -5} {
		if res := SetRealtimePriority(p); res.Success {
			t.Errorf("SetRealtimePriority(%d) succeeded, want range failure", p)
		}
	}
}

func TestConfigureLowLatency_PartialSuccess(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res := ConfigureLowLatency(0, 50)
	// Pinning or RT scheduling may fail (containers, no CAP_SYS_NICE);
	// whatever the outcome, the result must carry a descriptive message.
	if res.Message == "" {
		t.Error("ConfigureLowLatency returned empty message")
	}
}

func TestNumCores(t *testing.T) {
	if NumCores() < 1 {
		t.Errorf("NumCores() = %d, want >= 1", NumCores())
	}
}

package execution

import (
	"strings"
	"testing"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

func TestRisk_OrderSize(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrderSize = 100

	r := NewRiskManager(limits)
	positions := NewPositionTracker()

	res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 200}, positions)
	if res.Passed {
		t.Fatal("oversized order passed risk check")
	}
	if !strings.Contains(res.Reason, "size") {
		t.Errorf("reason = %q, want it to mention size", res.Reason)
	}

	if res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 100}, positions); !res.Passed {
		t.Errorf("at-limit order rejected: %s", res.Reason)
	}
}

func TestRisk_PositionLimitSigned(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrderSize = 1000
	limits.MaxPositionPerMarket = 100

	r := NewRiskManager(limits)
	positions := NewPositionTracker()
	positions.Update("M", 80)

	// Another buy would breach +100.
	if res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 30}, positions); res.Passed {
		t.Error("buy breaching long limit passed")
	}
	// A sell reduces exposure and must pass.
	if res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Sell, Quantity: 30}, positions); !res.Passed {
		t.Errorf("reducing sell rejected: %s", res.Reason)
	}

	// Short side is limited symmetrically.
	positions.Reset()
	positions.Update("M", -80)
	if res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Sell, Quantity: 30}, positions); res.Passed {
		t.Error("sell breaching short limit passed")
	}
}

func TestRisk_TotalPosition(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrderSize = 1000
	limits.MaxPositionPerMarket = 1000
	limits.MaxTotalPosition = 150

	r := NewRiskManager(limits)
	positions := NewPositionTracker()
	positions.Update("A", 60)
	positions.Update("B", -60) // absolute values sum

	if res := r.Check(&OrderRequest{MarketID: "C", Side: protocol.Buy, Quantity: 40}, positions); res.Passed {
		t.Error("total position breach passed")
	}
	if res := r.Check(&OrderRequest{MarketID: "C", Side: protocol.Buy, Quantity: 20}, positions); !res.Passed {
		t.Errorf("within-total order rejected: %s", res.Reason)
	}
}

func TestRisk_RateLimit(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrdersPerSecond = 5

	r := NewRiskManager(limits)
	positions := NewPositionTracker()
	req := &OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 1}

	for i := 0; i < 5; i++ {
		if res := r.Check(req, positions); !res.Passed {
			t.Fatalf("submission %d rejected: %s", i, res.Reason)
		}
	}
	res := r.Check(req, positions)
	if res.Passed {
		t.Fatal("sixth submission within one second passed")
	}
	if !strings.Contains(res.Reason, "rate") {
		t.Errorf("reason = %q, want it to mention rate", res.Reason)
	}
}

func TestRisk_FirstFailureWins(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrderSize = 10
	limits.MaxPositionPerMarket = 5 // also violated, but size is checked first

	r := NewRiskManager(limits)
	res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 50}, NewPositionTracker())
	if !strings.Contains(res.Reason, "size") {
		t.Errorf("reason = %q, want the size failure reported first", res.Reason)
	}
}

func TestRisk_DailyLossKillSwitch(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxLossPerDay = 50

	r := NewRiskManager(limits)
	positions := NewPositionTracker()

	// Buy 100 at 0.60, sell 100 at 0.01: realized loss 59.
	r.RecordFill("M", protocol.Buy, 0.60, 100)
	r.RecordFill("M", protocol.Sell, 0.01, 100)

	if !r.Halted() {
		t.Fatal("kill-switch not tripped past daily loss limit")
	}
	res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 1}, positions)
	if res.Passed {
		t.Error("submission passed while halted")
	}
	if !strings.Contains(res.Reason, "halted") {
		t.Errorf("reason = %q, want it to mention the halt", res.Reason)
	}

	r.ResetDaily()
	if r.Halted() {
		t.Error("kill-switch still tripped after daily reset")
	}
	if res := r.Check(&OrderRequest{MarketID: "M", Side: protocol.Buy, Quantity: 1}, positions); !res.Passed {
		t.Errorf("submission rejected after reset: %s", res.Reason)
	}
}

package execution

import (
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// RiskLimits bound pre-trade exposure.
type RiskLimits struct {
	MaxOrderSize         float64
	MaxPositionPerMarket float64
	MaxTotalPosition     float64
	MaxOrdersPerSecond   int
	MaxLossPerDay        float64
}

// DefaultRiskLimits returns conservative defaults.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxOrderSize:         10000,
		MaxPositionPerMarket: 50000,
		MaxTotalPosition:     200000,
		MaxOrdersPerSecond:   10,
		MaxLossPerDay:        1000,
	}
}

// RiskResult is a pre-trade verdict; the first failing check names the
// reason.
type RiskResult struct {
	Passed bool
	Reason string
}

const rateWindowNS = 1_000_000_000

// RiskManager runs pre-trade checks in a fixed order: daily loss
// kill-switch, order size, per-market position, total position,
// submission rate.
type RiskManager struct {
	mu     sync.Mutex
	limits RiskLimits
	window []int64 // submission timestamps within the last second
	halted bool
	pnl    *PnLTracker
}

// NewRiskManager creates a manager over the given limits.
func NewRiskManager(limits RiskLimits) *RiskManager {
	return &RiskManager{limits: limits, pnl: NewPnLTracker()}
}

// Check runs the pre-trade checks for a request against current positions.
// A passing check appends to the rate window.
func (r *RiskManager) Check(req *OrderRequest, positions *PositionTracker) RiskResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.halted {
		return RiskResult{Reason: "daily loss limit reached, trading halted"}
	}

	if req.Quantity > r.limits.MaxOrderSize {
		return RiskResult{Reason: fmt.Sprintf("order size %.2f exceeds limit %.2f", req.Quantity, r.limits.MaxOrderSize)}
	}

	delta := req.Quantity
	if req.Side == protocol.Sell {
		delta = -req.Quantity
	}
	if math.Abs(positions.Get(req.MarketID)+delta) > r.limits.MaxPositionPerMarket {
		return RiskResult{Reason: "would exceed position limit for market"}
	}

	if positions.Total()+req.Quantity > r.limits.MaxTotalPosition {
		return RiskResult{Reason: "would exceed total position limit"}
	}

	now := clock.NowNS()
	live := r.window[:0]
	for _, ts := range r.window {
		if now-ts <= rateWindowNS {
			live = append(live, ts)
		}
	}
	r.window = live

	if len(r.window) >= r.limits.MaxOrdersPerSecond {
		return RiskResult{Reason: "rate limit exceeded"}
	}
	r.window = append(r.window, now)

	return RiskResult{Passed: true}
}

// RecordFill feeds realized PnL accounting. When the day's realized loss
// breaches MaxLossPerDay the manager halts all further submissions until
// ResetDaily.
func (r *RiskManager) RecordFill(marketID string, side protocol.Side, price, quantity float64) {
	r.pnl.RecordFill(marketID, side, price, quantity)

	loss := r.pnl.Realized().Neg()
	if loss.GreaterThan(decimal.NewFromFloat(r.limits.MaxLossPerDay)) {
		r.mu.Lock()
		r.halted = true
		r.mu.Unlock()
	}
}

// Halted reports whether the daily-loss kill-switch has tripped.
func (r *RiskManager) Halted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halted
}

// ResetDaily clears PnL state and re-arms the kill-switch at the daily
// roll.
func (r *RiskManager) ResetDaily() {
	r.pnl.Reset()
	r.mu.Lock()
	r.halted = false
	r.mu.Unlock()
}

// SetLimits replaces the limits.
func (r *RiskManager) SetLimits(limits RiskLimits) {
	r.mu.Lock()
	r.limits = limits
	r.mu.Unlock()
}

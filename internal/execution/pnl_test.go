package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

func TestPnL_RoundTrip(t *testing.T) {
	p := NewPnLTracker()

	if realized := p.RecordFill("M", protocol.Buy, 0.50, 100); !realized.IsZero() {
		t.Errorf("opening fill realized %s, want 0", realized)
	}
	realized := p.RecordFill("M", protocol.Sell, 0.60, 100)

	want := decimal.NewFromFloat(10) // (0.60 - 0.50) * 100
	if !realized.Equal(want) {
		t.Errorf("realized = %s, want %s", realized, want)
	}
	if !p.Realized().Equal(want) {
		t.Errorf("Realized() = %s, want %s", p.Realized(), want)
	}
}

func TestPnL_AverageCostBlending(t *testing.T) {
	p := NewPnLTracker()
	p.RecordFill("M", protocol.Buy, 0.40, 100)
	p.RecordFill("M", protocol.Buy, 0.60, 100) // avg cost now 0.50

	realized := p.RecordFill("M", protocol.Sell, 0.50, 200)
	if !realized.IsZero() {
		t.Errorf("realized = %s, want 0 selling at average cost", realized)
	}
}

func TestPnL_ShortSide(t *testing.T) {
	p := NewPnLTracker()
	p.RecordFill("M", protocol.Sell, 0.70, 50)
	realized := p.RecordFill("M", protocol.Buy, 0.50, 50)

	want := decimal.NewFromFloat(10) // (0.70 - 0.50) * 50
	if !realized.Equal(want) {
		t.Errorf("short cover realized %s, want %s", realized, want)
	}
}

func TestPnL_FlipThroughZero(t *testing.T) {
	p := NewPnLTracker()
	p.RecordFill("M", protocol.Buy, 0.50, 100)
	// Sell 150: close 100 at a loss, open a 50 short at 0.45.
	realized := p.RecordFill("M", protocol.Sell, 0.45, 150)

	want := decimal.NewFromFloat(-5) // (0.45 - 0.50) * 100
	if !realized.Equal(want) {
		t.Errorf("flip realized %s, want %s", realized, want)
	}

	// Cover the short at 0.40: profit (0.45 - 0.40) * 50.
	realized = p.RecordFill("M", protocol.Buy, 0.40, 50)
	if want := decimal.NewFromFloat(2.5); !realized.Equal(want) {
		t.Errorf("cover realized %s, want %s", realized, want)
	}
}

func TestPnL_Reset(t *testing.T) {
	p := NewPnLTracker()
	p.RecordFill("M", protocol.Buy, 0.50, 10)
	p.RecordFill("M", protocol.Sell, 0.60, 10)
	p.Reset()

	if !p.Realized().IsZero() {
		t.Errorf("Realized() after Reset = %s, want 0", p.Realized())
	}
}

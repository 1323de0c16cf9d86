package execution

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// pnlBook is per-market average-cost state.
type pnlBook struct {
	position decimal.Decimal // signed contracts
	avgCost  decimal.Decimal // average entry price of the open position
}

// PnLTracker accounts realized profit and loss in exact decimal
// arithmetic. Fills that extend a position move the average cost; fills
// that reduce it realize (fill price - average cost) x closed quantity.
type PnLTracker struct {
	mu       sync.Mutex
	books    map[string]*pnlBook
	realized decimal.Decimal
}

// NewPnLTracker creates an empty tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{books: make(map[string]*pnlBook)}
}

// RecordFill accounts one fill and returns the realized PnL delta.
func (t *PnLTracker) RecordFill(marketID string, side protocol.Side, price, quantity float64) decimal.Decimal {
	fillQty := decimal.NewFromFloat(quantity)
	fillPx := decimal.NewFromFloat(price)
	if side == protocol.Sell {
		fillQty = fillQty.Neg()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	book, ok := t.books[marketID]
	if !ok {
		book = &pnlBook{}
		t.books[marketID] = book
	}

	realized := decimal.Zero

	sameSign := book.position.Sign() == 0 || book.position.Sign() == fillQty.Sign()
	if sameSign {
		// Extending: blend the average cost.
		newPos := book.position.Add(fillQty)
		if !newPos.IsZero() {
			weighted := book.avgCost.Mul(book.position.Abs()).Add(fillPx.Mul(fillQty.Abs()))
			book.avgCost = weighted.Div(newPos.Abs())
		}
		book.position = newPos
	} else {
		// Reducing (possibly flipping through zero).
		closed := decimal.Min(book.position.Abs(), fillQty.Abs())
		diff := fillPx.Sub(book.avgCost)
		if book.position.Sign() < 0 {
			diff = diff.Neg()
		}
		realized = diff.Mul(closed)

		book.position = book.position.Add(fillQty)
		if book.position.IsZero() {
			book.avgCost = decimal.Zero
		} else if book.position.Sign() == fillQty.Sign() {
			// Flipped: the remainder opened at the fill price.
			book.avgCost = fillPx
		}
	}

	t.realized = t.realized.Add(realized)
	return realized
}

// Realized returns the cumulative realized PnL.
func (t *PnLTracker) Realized() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.realized
}

// Reset clears all state, typically at the daily roll.
func (t *PnLTracker) Reset() {
	t.mu.Lock()
	t.books = make(map[string]*pnlBook)
	t.realized = decimal.Zero
	t.mu.Unlock()
}

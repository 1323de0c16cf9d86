package marketdata

import (
	"github.com/tidwall/btree"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// BookSide is one price-ordered side of an order book. Levels are kept in
// a btree keyed by price; bids read from the high end, asks from the low
// end.
type BookSide struct {
	levels btree.Map[float64, float64]
	desc   bool // true for bids
}

// Update sets the size at a price level; size <= 0 deletes the level.
func (s *BookSide) Update(price, size float64) {
	if size <= 0 {
		s.levels.Delete(price)
		return
	}
	s.levels.Set(price, size)
}

// BestPrice returns the side's top price, or 0 when empty.
func (s *BookSide) BestPrice() float64 {
	if s.desc {
		if price, _, ok := s.levels.Max(); ok {
			return price
		}
		return 0
	}
	if price, _, ok := s.levels.Min(); ok {
		return price
	}
	return 0
}

// SizeAt returns the size resting at a price, or 0.
func (s *BookSide) SizeAt(price float64) float64 {
	size, _ := s.levels.Get(price)
	return size
}

// TotalSize sums sizes across the top depth levels; depth <= 0 sums all.
func (s *BookSide) TotalSize(depth int) float64 {
	var sum float64
	count := 0
	s.scan(func(_, size float64) bool {
		sum += size
		count++
		return depth <= 0 || count < depth
	})
	return sum
}

// Top returns up to n levels from the top of the side, best first.
func (s *BookSide) Top(n int) []protocol.BookLevel {
	result := make([]protocol.BookLevel, 0, n)
	s.scan(func(price, size float64) bool {
		result = append(result, protocol.BookLevel{Price: price, Size: size})
		return len(result) < n
	})
	return result
}

func (s *BookSide) scan(iter func(price, size float64) bool) {
	if s.desc {
		s.levels.Reverse(iter)
		return
	}
	s.levels.Scan(iter)
}

// Clear drops every level.
func (s *BookSide) Clear() {
	s.levels = btree.Map[float64, float64]{}
}

func (s *BookSide) Empty() bool { return s.levels.Len() == 0 }
func (s *BookSide) Depth() int  { return s.levels.Len() }

// OrderBook is the full two-sided book for one market. Crossed books
// (best bid above best ask) are kept as-is; staleness is reported through
// AgeNS and consumers decide what a crossed book means.
type OrderBook struct {
	marketID     string
	bids         BookSide
	asks         BookSide
	sequence     uint32
	lastUpdateNS int64
}

// NewOrderBook creates an empty book for a market.
func NewOrderBook(marketID string) *OrderBook {
	return &OrderBook{
		marketID: marketID,
		bids:     BookSide{desc: true},
	}
}

func (b *OrderBook) MarketID() string { return b.marketID }

// UpdateBid applies a single bid level change.
func (b *OrderBook) UpdateBid(price, size float64) {
	b.bids.Update(price, size)
	b.lastUpdateNS = clock.NowNS()
}

// UpdateAsk applies a single ask level change.
func (b *OrderBook) UpdateAsk(price, size float64) {
	b.asks.Update(price, size)
	b.lastUpdateNS = clock.NowNS()
}

// Apply replaces the book contents with a snapshot. Applying the same
// snapshot twice leaves the book identical, including sequence and update
// time.
func (b *OrderBook) Apply(snapshot *protocol.OrderBookSnapshot) {
	b.bids.Clear()
	b.asks.Clear()

	for _, lv := range snapshot.Bids {
		b.bids.Update(lv.Price, lv.Size)
	}
	for _, lv := range snapshot.Asks {
		b.asks.Update(lv.Price, lv.Size)
	}

	b.sequence = snapshot.Sequence
	b.lastUpdateNS = snapshot.TimestampNS
}

func (b *OrderBook) BestBid() float64 { return b.bids.BestPrice() }
func (b *OrderBook) BestAsk() float64 { return b.asks.BestPrice() }

// MidPrice is the arithmetic mean of best bid and best ask.
func (b *OrderBook) MidPrice() float64 { return (b.BestBid() + b.BestAsk()) / 2 }

// Spread is best ask minus best bid; negative when the book is crossed.
func (b *OrderBook) Spread() float64 { return b.BestAsk() - b.BestBid() }

// SpreadBPS is the spread relative to mid, in basis points.
func (b *OrderBook) SpreadBPS() float64 {
	mid := b.MidPrice()
	if mid <= 0 {
		return 0
	}
	return b.Spread() / mid * 10000
}

// Crossed reports whether both sides exist and best bid >= best ask.
func (b *OrderBook) Crossed() bool {
	return !b.bids.Empty() && !b.asks.Empty() && b.BestBid() >= b.BestAsk()
}

func (b *OrderBook) Bids() *BookSide     { return &b.bids }
func (b *OrderBook) Asks() *BookSide     { return &b.asks }
func (b *OrderBook) Sequence() uint32    { return b.sequence }
func (b *OrderBook) LastUpdateNS() int64 { return b.lastUpdateNS }
func (b *OrderBook) AgeNS() int64        { return clock.NowNS() - b.lastUpdateNS }

// BookView is a reader snapshot of one book. Views are value copies;
// holding one never blocks the handler.
type BookView struct {
	MarketID     string
	Bids         []protocol.BookLevel
	Asks         []protocol.BookLevel
	BestBid      float64
	BestAsk      float64
	Sequence     uint32
	LastUpdateNS int64
}

// MidPrice is the arithmetic mean of best bid and best ask.
func (v BookView) MidPrice() float64 { return (v.BestBid + v.BestAsk) / 2 }

// view copies the book into a detached snapshot.
func (b *OrderBook) view() BookView {
	return BookView{
		MarketID:     b.marketID,
		Bids:         b.bids.Top(b.bids.Depth()),
		Asks:         b.asks.Top(b.asks.Depth()),
		BestBid:      b.BestBid(),
		BestAsk:      b.BestAsk(),
		Sequence:     b.sequence,
		LastUpdateNS: b.lastUpdateNS,
	}
}

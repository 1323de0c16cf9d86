package protocol

// Protocol identifies a trading venue and transport.
type Protocol uint8

const (
	Unknown Protocol = iota
	KalshiRest
	KalshiWs
	PolymarketRest
	PolymarketWs
	UniswapV3
	Dydx
	CustomDex
)

// String returns the venue name for logging.
func (p Protocol) String() string {
	switch p {
	case KalshiRest:
		return "kalshi_rest"
	case KalshiWs:
		return "kalshi_ws"
	case PolymarketRest:
		return "polymarket_rest"
	case PolymarketWs:
		return "polymarket_ws"
	case UniswapV3:
		return "uniswap_v3"
	case Dydx:
		return "dydx"
	case CustomDex:
		return "custom_dex"
	default:
		return "unknown"
	}
}

// Side is the direction of an order or trade.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// RawPacket is an inbound wire frame with its protocol context. The
// normalizer owns the packet until a parser consumes it.
type RawPacket struct {
	Protocol        Protocol
	Data            []byte
	RecvTimestampNS int64
}

// Message is the normalized message sum type. Exactly four variants exist:
// MarketDataUpdate, OrderBookSnapshot, TradeEvent, and OrderFill. The set
// is closed; consumers dispatch with a type switch.
type Message interface {
	Source() Protocol
	Market() string
	Timestamp() int64

	message()
}

// MarketDataUpdate is a normalized top-of-book update.
type MarketDataUpdate struct {
	Venue    Protocol
	MarketID string
	Symbol   string

	BidPrice  float64
	AskPrice  float64
	BidSize   float64
	AskSize   float64
	LastPrice float64
	Volume24h float64

	TimestampNS int64
	Sequence    uint32
}

func (m *MarketDataUpdate) Source() Protocol { return m.Venue }
func (m *MarketDataUpdate) Market() string   { return m.MarketID }
func (m *MarketDataUpdate) Timestamp() int64 { return m.TimestampNS }
func (m *MarketDataUpdate) message()         {}

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is a normalized full book image. Bids are sorted price
// descending, asks ascending.
type OrderBookSnapshot struct {
	Venue    Protocol
	MarketID string

	Bids []BookLevel
	Asks []BookLevel

	TimestampNS int64
	Sequence    uint32
}

func (m *OrderBookSnapshot) Source() Protocol { return m.Venue }
func (m *OrderBookSnapshot) Market() string   { return m.MarketID }
func (m *OrderBookSnapshot) Timestamp() int64 { return m.TimestampNS }
func (m *OrderBookSnapshot) message()         {}

// TradeEvent is a normalized executed trade.
type TradeEvent struct {
	Venue    Protocol
	MarketID string
	TradeID  string

	AggressorSide Side
	Price         float64
	Size          float64

	TimestampNS int64
}

func (m *TradeEvent) Source() Protocol { return m.Venue }
func (m *TradeEvent) Market() string   { return m.MarketID }
func (m *TradeEvent) Timestamp() int64 { return m.TimestampNS }
func (m *TradeEvent) message()         {}

// OrderFill is a normalized execution notice for one of our own orders.
type OrderFill struct {
	Venue    Protocol
	OrderID  string
	MarketID string

	FillSide      Side
	Price         float64
	FilledSize    float64
	RemainingSize float64

	IsComplete  bool
	TimestampNS int64
}

func (m *OrderFill) Source() Protocol { return m.Venue }
func (m *OrderFill) Market() string   { return m.MarketID }
func (m *OrderFill) Timestamp() int64 { return m.TimestampNS }
func (m *OrderFill) message()         {}

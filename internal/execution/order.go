package execution

import (
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	Pending OrderStatus = iota
	Submitted
	Acknowledged
	PartiallyFilled
	Filled
	Cancelled
	Rejected
	StatusError
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Submitted:
		return "submitted"
	case Acknowledged:
		return "acknowledged"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	case StatusError:
		return "error"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case Filled, Cancelled, Rejected, StatusError:
		return true
	default:
		return false
	}
}

// OrderType is the time-in-force / execution style of an order.
type OrderType uint8

const (
	Market OrderType = iota
	Limit
	IOC
	FOK
	GTC
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case GTC:
		return "gtc"
	default:
		return "invalid"
	}
}

// Order is the engine's internal order record. Owned by the active index,
// which keeps it after it turns terminal; GetOrder hands out copies.
type Order struct {
	InternalID uint64
	ExternalID string
	MarketID   string
	Venue      protocol.Protocol

	Side   protocol.Side
	Type   OrderType
	Status OrderStatus

	Price          float64
	Quantity       float64
	FilledQuantity float64
	AvgFillPrice   float64

	CreatedNS    int64
	SubmittedNS  int64
	LastUpdateNS int64

	ErrorMessage string
}

// ExecutionReport is an asynchronous status update for one order.
type ExecutionReport struct {
	OrderID    uint64
	ExternalID string
	Status     OrderStatus

	FilledQuantity    float64
	FillPrice         float64
	RemainingQuantity float64

	TimestampNS int64
	Message     string
}

// ReportCallback receives the reports for one order.
type ReportCallback func(ExecutionReport)

// OrderRequest is user intent before the risk check.
type OrderRequest struct {
	MarketID string
	Venue    protocol.Protocol
	Side     protocol.Side
	Type     OrderType
	Price    float64
	Quantity float64

	// OnReport receives this order's execution reports, including a
	// Rejected report when the risk check fails.
	OnReport ReportCallback
}

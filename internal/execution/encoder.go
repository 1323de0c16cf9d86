package execution

import (
	"fmt"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// Encoder renders an order into a venue's wire format. Encoders must be
// pure: no I/O, no state.
type Encoder interface {
	Encode(order *Order) []byte
	EncodeCancel(internalID uint64) []byte
}

// JSONEncoder is the default wire format: one compact JSON record per
// order. Production deployments register venue-specific encoders over it.
type JSONEncoder struct{}

func (JSONEncoder) Encode(order *Order) []byte {
	side := 0
	if order.Side == protocol.Sell {
		side = 1
	}
	return []byte(fmt.Sprintf(`{"id":%d,"market":%q,"side":%d,"price":%g,"qty":%g}`,
		order.InternalID, order.MarketID, side, order.Price, order.Quantity))
}

func (JSONEncoder) EncodeCancel(internalID uint64) []byte {
	return []byte(fmt.Sprintf(`{"cancel":%d}`, internalID))
}

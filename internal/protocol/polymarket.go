package protocol

import (
	"encoding/json"
	"strconv"
)

// Polymarket CLOB WebSocket wire types. Frames are JSON text, either a
// single event object or an array of them; prices and sizes arrive as
// decimal strings. Field ordering is arbitrary and unknown fields are
// ignored.

type polymarketEnvelope struct {
	EventType string `json:"event_type"`
}

type polymarketLevelWire struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type polymarketBookWire struct {
	EventType string                `json:"event_type"`
	AssetID   string                `json:"asset_id"`
	Market    string                `json:"market"`
	Bids      []polymarketLevelWire `json:"bids"`
	Asks      []polymarketLevelWire `json:"asks"`
	Hash      string                `json:"hash"`
	Timestamp string                `json:"timestamp"`
}

type polymarketTradeWire struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// PolymarketParser decodes Polymarket CLOB WebSocket frames. The parser is
// total: malformed JSON, unknown event types, and partially populated
// events all yield nil.
type PolymarketParser struct{}

func (PolymarketParser) Protocol() Protocol { return PolymarketWs }

func (p PolymarketParser) Parse(packet *RawPacket) Message {
	data := packet.Data
	if len(data) == 0 {
		return nil
	}

	// Frames may batch events in an array; the first recognizable event
	// wins and later events in the same frame are not returned.
	if data[0] == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(data, &events); err != nil {
			return nil
		}
		for _, ev := range events {
			if msg := p.parseEvent(ev, packet.RecvTimestampNS); msg != nil {
				return msg
			}
		}
		return nil
	}

	return p.parseEvent(data, packet.RecvTimestampNS)
}

func (PolymarketParser) parseEvent(data []byte, recvNS int64) Message {
	var env polymarketEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	switch env.EventType {
	case "book":
		var wire polymarketBookWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil
		}
		if wire.AssetID == "" {
			return nil
		}
		book := &OrderBookSnapshot{
			Venue:       PolymarketWs,
			MarketID:    wire.AssetID,
			TimestampNS: recvNS,
		}
		for _, lv := range wire.Bids {
			book.Bids = append(book.Bids, BookLevel{
				Price: parsePolymarketDecimal(lv.Price),
				Size:  parsePolymarketDecimal(lv.Size),
			})
		}
		for _, lv := range wire.Asks {
			book.Asks = append(book.Asks, BookLevel{
				Price: parsePolymarketDecimal(lv.Price),
				Size:  parsePolymarketDecimal(lv.Size),
			})
		}
		return book

	case "last_trade_price":
		var wire polymarketTradeWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil
		}
		if wire.AssetID == "" {
			return nil
		}
		side := Buy
		if wire.Side == "SELL" || wire.Side == "sell" {
			side = Sell
		}
		return &TradeEvent{
			Venue:         PolymarketWs,
			MarketID:      wire.AssetID,
			TradeID:       wire.Timestamp + ":" + wire.AssetID,
			AggressorSide: side,
			Price:         parsePolymarketDecimal(wire.Price),
			Size:          parsePolymarketDecimal(wire.Size),
			TimestampNS:   recvNS,
		}

	default:
		// price_change, tick_size_change, and control events carry no
		// normalized payload.
		return nil
	}
}

func parsePolymarketDecimal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

package protocol

import "testing"

func TestPolymarket_BookEvent(t *testing.T) {
	data := []byte(`{
		"market": "0xcondition",
		"asset_id": "1234567890",
		"event_type": "book",
		"bids": [{"price": "0.48", "size": "30"}, {"price": "0.47", "size": "100"}],
		"asks": [{"price": "0.52", "size": "25"}],
		"timestamp": "123456789000",
		"hash": "abc"
	}`)

	msg := PolymarketParser{}.Parse(&RawPacket{Protocol: PolymarketWs, Data: data, RecvTimestampNS: 777})
	book, ok := msg.(*OrderBookSnapshot)
	if !ok {
		t.Fatalf("Parse returned %T, want *OrderBookSnapshot", msg)
	}
	if book.MarketID != "1234567890" {
		t.Errorf("MarketID = %q, want asset id", book.MarketID)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("levels = %d/%d, want 2/1", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 0.48 || book.Bids[0].Size != 30 {
		t.Errorf("Bids[0] = %+v", book.Bids[0])
	}
	if book.TimestampNS != 777 {
		t.Errorf("TimestampNS = %d, want packet receipt 777", book.TimestampNS)
	}
}

func TestPolymarket_LastTradePrice(t *testing.T) {
	data := []byte(`{"event_type":"last_trade_price","asset_id":"999","market":"0xc","price":"0.61","size":"40","side":"SELL","timestamp":"170000"}`)

	msg := PolymarketParser{}.Parse(&RawPacket{Data: data, RecvTimestampNS: 5})
	trade, ok := msg.(*TradeEvent)
	if !ok {
		t.Fatalf("Parse returned %T, want *TradeEvent", msg)
	}
	if trade.AggressorSide != Sell {
		t.Errorf("AggressorSide = %v, want Sell", trade.AggressorSide)
	}
	if trade.Price != 0.61 || trade.Size != 40 {
		t.Errorf("price/size = %v/%v", trade.Price, trade.Size)
	}
}

func TestPolymarket_EventArray(t *testing.T) {
	data := []byte(`[{"event_type":"tick_size_change"},{"event_type":"book","asset_id":"7","bids":[],"asks":[]}]`)

	msg := PolymarketParser{}.Parse(&RawPacket{Data: data})
	if _, ok := msg.(*OrderBookSnapshot); !ok {
		t.Fatalf("Parse returned %T, want *OrderBookSnapshot from array frame", msg)
	}
}

func TestPolymarket_Total(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("{"),
		[]byte("not json at all"),
		[]byte(`{"event_type":"price_change","asset_id":"1"}`),
		[]byte(`{"event_type":"book"}`), // missing asset id
		[]byte(`{"unknown_field":true}`),
		[]byte(`[[["deeply nested"]]]`),
	}
	for _, data := range cases {
		if msg := (PolymarketParser{}).Parse(&RawPacket{Data: data}); msg != nil {
			t.Errorf("Parse(%q) = %T, want nil", data, msg)
		}
	}
}

func TestPolymarket_UnknownFieldsTolerated(t *testing.T) {
	data := []byte(`{"event_type":"last_trade_price","asset_id":"1","price":"0.5","size":"1","side":"BUY","extra":{"nested":true},"fee_rate_bps":"0"}`)
	if msg := (PolymarketParser{}).Parse(&RawPacket{Data: data}); msg == nil {
		t.Error("unknown fields caused a parse failure")
	}
}

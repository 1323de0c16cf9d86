package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
)

// Kalshi binary frame layout. All multi-byte integers and doubles are
// network byte order.
//
//	[0:2]  msg_type
//	[2:4]  flags
//	[4:8]  sequence
//	[8:]   payload
const (
	kalshiHeaderSize   = 8
	kalshiMarketIDSize = 16

	kalshiMsgQuote uint16 = 0x0001
	kalshiMsgTrade uint16 = 0x0002
	kalshiMsgBook  uint16 = 0x0003

	// Minimum total frame sizes per message type.
	kalshiQuoteFrameSize    = 56
	kalshiTradeFrameSize    = 48
	kalshiBookHeaderSize    = 28
	kalshiBookMinFrameSize  = 32
	kalshiBookLevelSize     = 16
	kalshiBookLevelsPerSide = 2 // u16 bid count + u16 ask count at offsets 24/26
)

// KalshiParser decodes Kalshi binary frames into normalized messages.
type KalshiParser struct{}

func (KalshiParser) Protocol() Protocol { return KalshiWs }

// Parse decodes one frame. Unknown message types and frames shorter than
// their layout return nil.
func (KalshiParser) Parse(packet *RawPacket) Message {
	data := packet.Data
	if len(data) < kalshiHeaderSize {
		return nil
	}

	msgType := binary.BigEndian.Uint16(data[0:2])
	sequence := binary.BigEndian.Uint32(data[4:8])

	switch msgType {
	case kalshiMsgQuote:
		return parseKalshiQuote(packet, sequence)
	case kalshiMsgTrade:
		return parseKalshiTrade(packet, sequence)
	case kalshiMsgBook:
		return parseKalshiBook(packet, sequence)
	default:
		return nil
	}
}

func parseKalshiQuote(packet *RawPacket, seq uint32) Message {
	data := packet.Data
	if len(data) < kalshiQuoteFrameSize {
		return nil
	}

	return &MarketDataUpdate{
		Venue:       KalshiWs,
		MarketID:    kalshiMarketID(data[8:24]),
		BidPrice:    ntohDouble(data[24:32]),
		AskPrice:    ntohDouble(data[32:40]),
		BidSize:     ntohDouble(data[40:48]),
		AskSize:     ntohDouble(data[48:56]),
		TimestampNS: packet.RecvTimestampNS,
		Sequence:    seq,
	}
}

func parseKalshiTrade(packet *RawPacket, seq uint32) Message {
	data := packet.Data
	if len(data) < kalshiTradeFrameSize {
		return nil
	}

	side := Sell
	if data[24] == 0 {
		side = Buy
	}

	return &TradeEvent{
		Venue:    KalshiWs,
		MarketID: kalshiMarketID(data[8:24]),
		// Frames carry no trade id; the frame sequence stands in.
		TradeID:       strconv.FormatUint(uint64(seq), 10),
		AggressorSide: side,
		Price:         ntohDouble(data[32:40]),
		Size:          ntohDouble(data[40:48]),
		TimestampNS:   packet.RecvTimestampNS,
	}
}

func parseKalshiBook(packet *RawPacket, seq uint32) Message {
	data := packet.Data
	if len(data) < kalshiBookMinFrameSize {
		return nil
	}

	bidLevels := int(binary.BigEndian.Uint16(data[24:26]))
	askLevels := int(binary.BigEndian.Uint16(data[26:28]))

	book := &OrderBookSnapshot{
		Venue:       KalshiWs,
		MarketID:    kalshiMarketID(data[8:24]),
		TimestampNS: packet.RecvTimestampNS,
		Sequence:    seq,
	}

	// A truncated frame yields fewer levels, not an error.
	offset := kalshiBookHeaderSize
	for i := 0; i < bidLevels && offset+kalshiBookLevelSize <= len(data); i++ {
		book.Bids = append(book.Bids, BookLevel{
			Price: ntohDouble(data[offset : offset+8]),
			Size:  ntohDouble(data[offset+8 : offset+16]),
		})
		offset += kalshiBookLevelSize
	}
	for i := 0; i < askLevels && offset+kalshiBookLevelSize <= len(data); i++ {
		book.Asks = append(book.Asks, BookLevel{
			Price: ntohDouble(data[offset : offset+8]),
			Size:  ntohDouble(data[offset+8 : offset+16]),
		})
		offset += kalshiBookLevelSize
	}

	return book
}

// kalshiMarketID trims the NUL padding off a fixed 16-byte market field.
func kalshiMarketID(field []byte) string {
	return string(bytes.TrimRight(field, "\x00"))
}

func ntohDouble(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func htonDouble(dst []byte, v float64) {
	binary.BigEndian.PutUint64(dst, math.Float64bits(v))
}

func kalshiHeader(dst []byte, msgType uint16, seq uint32) {
	binary.BigEndian.PutUint16(dst[0:2], msgType)
	binary.BigEndian.PutUint16(dst[2:4], 0)
	binary.BigEndian.PutUint32(dst[4:8], seq)
}

func putKalshiMarketID(dst []byte, marketID string) {
	n := copy(dst[:kalshiMarketIDSize], marketID)
	for ; n < kalshiMarketIDSize; n++ {
		dst[n] = 0
	}
}

// EncodeKalshiQuote renders a quote update in the Kalshi binary layout.
// Used by test feeds.
func EncodeKalshiQuote(u *MarketDataUpdate) []byte {
	frame := make([]byte, kalshiQuoteFrameSize)
	kalshiHeader(frame, kalshiMsgQuote, u.Sequence)
	putKalshiMarketID(frame[8:24], u.MarketID)
	htonDouble(frame[24:32], u.BidPrice)
	htonDouble(frame[32:40], u.AskPrice)
	htonDouble(frame[40:48], u.BidSize)
	htonDouble(frame[48:56], u.AskSize)
	return frame
}

// EncodeKalshiTrade renders a trade event in the Kalshi binary layout. The
// trade id is carried only through the frame sequence.
func EncodeKalshiTrade(tr *TradeEvent, seq uint32) []byte {
	frame := make([]byte, kalshiTradeFrameSize)
	kalshiHeader(frame, kalshiMsgTrade, seq)
	putKalshiMarketID(frame[8:24], tr.MarketID)
	if tr.AggressorSide == Sell {
		frame[24] = 1
	}
	htonDouble(frame[32:40], tr.Price)
	htonDouble(frame[40:48], tr.Size)
	return frame
}

// EncodeKalshiBook renders a book snapshot in the Kalshi binary layout.
func EncodeKalshiBook(b *OrderBookSnapshot) []byte {
	frame := make([]byte, kalshiBookHeaderSize+kalshiBookLevelSize*(len(b.Bids)+len(b.Asks)))
	kalshiHeader(frame, kalshiMsgBook, b.Sequence)
	putKalshiMarketID(frame[8:24], b.MarketID)
	binary.BigEndian.PutUint16(frame[24:26], uint16(len(b.Bids)))
	binary.BigEndian.PutUint16(frame[26:28], uint16(len(b.Asks)))

	offset := kalshiBookHeaderSize
	for _, lv := range b.Bids {
		htonDouble(frame[offset:offset+8], lv.Price)
		htonDouble(frame[offset+8:offset+16], lv.Size)
		offset += kalshiBookLevelSize
	}
	for _, lv := range b.Asks {
		htonDouble(frame[offset:offset+8], lv.Price)
		htonDouble(frame[offset+8:offset+16], lv.Size)
		offset += kalshiBookLevelSize
	}
	return frame
}

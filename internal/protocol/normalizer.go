package protocol

import "sync/atomic"

// Parser decodes one venue's wire frames into normalized messages.
type Parser interface {
	Protocol() Protocol
	Parse(packet *RawPacket) Message
}

// Normalizer dispatches raw packets to the parser registered for their
// protocol. Packets from unknown protocols and frames a parser cannot
// decode are dropped silently; counters record both.
type Normalizer struct {
	parsers [CustomDex + 1]Parser

	normalized      atomic.Uint64
	parseErrors     atomic.Uint64
	unknownProtocol atomic.Uint64
}

// NormalizerStats is a point-in-time counter snapshot.
type NormalizerStats struct {
	Normalized      uint64
	ParseErrors     uint64
	UnknownProtocol uint64
}

// NewNormalizer creates a normalizer with the built-in Kalshi and
// Polymarket parsers registered.
func NewNormalizer() *Normalizer {
	n := &Normalizer{}
	n.Register(KalshiParser{})
	n.Register(PolymarketParser{})
	return n
}

// Register installs a parser for its protocol, replacing any previous one.
// Not safe to call concurrently with Normalize.
func (n *Normalizer) Register(p Parser) {
	proto := p.Protocol()
	if int(proto) < len(n.parsers) {
		n.parsers[proto] = p
	}
}

// Normalize decodes one packet, returning nil when no parser is registered
// for its protocol or the frame cannot be decoded.
func (n *Normalizer) Normalize(packet *RawPacket) Message {
	if int(packet.Protocol) >= len(n.parsers) {
		n.unknownProtocol.Add(1)
		return nil
	}
	parser := n.parsers[packet.Protocol]
	if parser == nil {
		n.unknownProtocol.Add(1)
		return nil
	}

	msg := parser.Parse(packet)
	if msg == nil {
		n.parseErrors.Add(1)
		return nil
	}
	n.normalized.Add(1)
	return msg
}

// Stats returns a snapshot of the drop counters.
func (n *Normalizer) Stats() NormalizerStats {
	return NormalizerStats{
		Normalized:      n.normalized.Load(),
		ParseErrors:     n.parseErrors.Load(),
		UnknownProtocol: n.unknownProtocol.Load(),
	}
}

package routing

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/execution"
	"github.com/Divyesh-Thirukonda/quantshit/internal/marketdata"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// Strategy selects how a venue is chosen.
type Strategy uint8

const (
	BestPrice Strategy = iota
	LowestLatency
	BestFillRate
	Smart
	Split
)

func (s Strategy) String() string {
	switch s {
	case BestPrice:
		return "best_price"
	case LowestLatency:
		return "lowest_latency"
	case BestFillRate:
		return "best_fill_rate"
	case Smart:
		return "smart"
	case Split:
		return "split"
	default:
		return "invalid"
	}
}

// VenueStats tracks a venue's execution quality for routing decisions.
type VenueStats struct {
	Venue        protocol.Protocol
	AvgLatencyNS int64
	P99LatencyNS int64
	FillRate     float64
	RejectRate   float64
	LastUpdateNS int64
}

// VenueSplit is one leg of a split decision.
type VenueSplit struct {
	Venue    protocol.Protocol
	Fraction float64
}

// Decision is the routing verdict for one request.
type Decision struct {
	PrimaryVenue protocol.Protocol
	VenueSplits  []VenueSplit
	Reason       string
}

// Config holds router options.
type Config struct {
	DefaultStrategy Strategy
	// MinSplitSize drops split legs smaller than this before submission.
	MinSplitSize float64

	LatencyWeight  float64
	PriceWeight    float64
	FillRateWeight float64
}

// DefaultConfig returns the smart-routing defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy: Smart,
		MinSplitSize:    100,
		LatencyWeight:   0.3,
		PriceWeight:     0.4,
		FillRateWeight:  0.3,
	}
}

// missingScore is the neutral score when a venue has no data for a
// dimension.
const missingScore = 0.5

// Router picks venues for order requests and feeds execution results back
// into its venue statistics.
type Router struct {
	engine *execution.Engine
	md     *marketdata.Handler
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	stats    map[protocol.Protocol]*VenueStats
	total    map[protocol.Protocol]uint64
	filled   map[protocol.Protocol]uint64
	rejected map[protocol.Protocol]uint64
}

// NewRouter creates a router over the engine and market-data handler.
func NewRouter(engine *execution.Engine, md *marketdata.Handler, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		engine:   engine,
		md:       md,
		cfg:      cfg,
		logger:   logger,
		stats:    make(map[protocol.Protocol]*VenueStats),
		total:    make(map[protocol.Protocol]uint64),
		filled:   make(map[protocol.Protocol]uint64),
		rejected: make(map[protocol.Protocol]uint64),
	}
}

// RouteOrder decides and submits. Split legs below MinSplitSize are
// dropped; the call reports success only if every submitted leg was
// accepted.
func (r *Router) RouteOrder(req execution.OrderRequest, strategy Strategy) bool {
	decision := r.Decide(&req, strategy)

	if len(decision.VenueSplits) <= 1 {
		routed := req
		routed.Venue = decision.PrimaryVenue
		return r.engine.SubmitOrder(routed)
	}

	ok := true
	for _, split := range decision.VenueSplits {
		leg := req
		leg.Venue = split.Venue
		leg.Quantity = req.Quantity * split.Fraction

		if leg.Quantity < r.cfg.MinSplitSize {
			continue
		}
		ok = r.engine.SubmitOrder(leg) && ok
	}
	return ok
}

// Decide returns the routing verdict without executing.
func (r *Router) Decide(req *execution.OrderRequest, strategy Strategy) Decision {
	switch strategy {
	case BestPrice:
		return r.routeByPrice(req)
	case LowestLatency:
		return r.routeByLatency(req)
	case BestFillRate:
		return r.routeByFillRate(req)
	case Split:
		return r.routeSplit(req)
	default:
		return r.routeSmart(req)
	}
}

// RecordExecution updates venue statistics after an order completes.
// Latency uses an EMA with 7/8 weight on history; p99 is tracked as the
// running maximum.
func (r *Router) RecordExecution(venue protocol.Protocol, latencyNS int64, filled, rejected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[venue]
	if !ok {
		stats = &VenueStats{Venue: venue}
		r.stats[venue] = stats
	}

	if stats.AvgLatencyNS == 0 {
		stats.AvgLatencyNS = latencyNS
	} else {
		stats.AvgLatencyNS = (stats.AvgLatencyNS*7 + latencyNS) / 8
	}
	if latencyNS > stats.P99LatencyNS {
		stats.P99LatencyNS = latencyNS
	}

	r.total[venue]++
	if filled {
		r.filled[venue]++
	}
	if rejected {
		r.rejected[venue]++
	}
	stats.FillRate = float64(r.filled[venue]) / float64(r.total[venue])
	stats.RejectRate = float64(r.rejected[venue]) / float64(r.total[venue])
	stats.LastUpdateNS = clock.NowNS()
}

// VenueStats returns a copy of a venue's statistics.
func (r *Router) VenueStats(venue protocol.Protocol) (VenueStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[venue]
	if !ok {
		return VenueStats{}, false
	}
	return *stats, true
}

func (r *Router) knownVenues() []*VenueStats {
	venues := make([]*VenueStats, 0, len(r.stats))
	for _, s := range r.stats {
		venues = append(venues, s)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].Venue < venues[j].Venue })
	return venues
}

func single(venue protocol.Protocol, reason string) Decision {
	return Decision{
		PrimaryVenue: venue,
		VenueSplits:  []VenueSplit{{Venue: venue, Fraction: 1}},
		Reason:       reason,
	}
}

func (r *Router) routeByPrice(req *execution.OrderRequest) Decision {
	r.mu.Lock()
	venues := r.knownVenues()
	r.mu.Unlock()

	if len(venues) == 0 {
		return single(req.Venue, "no venue stats available")
	}

	if _, ok := r.md.GetQuote(req.MarketID); !ok {
		return single(req.Venue, "no market data for price routing")
	}

	// One shared quote serves all venues until per-venue books are fed
	// through; the decision then degenerates to the first venue.
	return single(venues[0].Venue, "best price at venue")
}

func (r *Router) routeByLatency(req *execution.OrderRequest) Decision {
	r.mu.Lock()
	venues := r.knownVenues()
	r.mu.Unlock()

	if len(venues) == 0 {
		return single(req.Venue, "no venue stats available")
	}

	best := venues[0]
	for _, s := range venues[1:] {
		if s.AvgLatencyNS < best.AvgLatencyNS {
			best = s
		}
	}
	return single(best.Venue, "lowest latency venue")
}

func (r *Router) routeByFillRate(req *execution.OrderRequest) Decision {
	r.mu.Lock()
	venues := r.knownVenues()
	r.mu.Unlock()

	if len(venues) == 0 {
		return single(req.Venue, "no venue stats available")
	}

	best := venues[0]
	for _, s := range venues[1:] {
		if s.FillRate > best.FillRate {
			best = s
		}
	}
	return single(best.Venue, "best fill rate venue")
}

func (r *Router) routeSplit(req *execution.OrderRequest) Decision {
	r.mu.Lock()
	venues := r.knownVenues()
	r.mu.Unlock()

	if len(venues) == 0 {
		return single(req.Venue, "no venue stats available")
	}

	fraction := 1.0 / float64(len(venues))
	splits := make([]VenueSplit, 0, len(venues))
	for _, s := range venues {
		splits = append(splits, VenueSplit{Venue: s.Venue, Fraction: fraction})
	}
	return Decision{
		PrimaryVenue: splits[0].Venue,
		VenueSplits:  splits,
		Reason:       "even split across venues",
	}
}

// routeSmart scores venues on latency, fill rate, and price with
// max-scaling normalization to [0, 1]; missing data scores neutral.
func (r *Router) routeSmart(req *execution.OrderRequest) Decision {
	r.mu.Lock()
	venues := r.knownVenues()
	r.mu.Unlock()

	if len(venues) == 0 {
		return single(req.Venue, "no venue stats available")
	}

	var maxLatency float64
	var maxFill float64
	for _, s := range venues {
		if lat := float64(s.AvgLatencyNS); lat > maxLatency {
			maxLatency = lat
		}
		if s.FillRate > maxFill {
			maxFill = s.FillRate
		}
	}

	var best *VenueStats
	var bestScore float64
	for _, s := range venues {
		latencyScore := missingScore
		if maxLatency > 0 {
			latencyScore = 1 - float64(s.AvgLatencyNS)/maxLatency
		}
		fillScore := missingScore
		if maxFill > 0 {
			fillScore = s.FillRate / maxFill
		}
		// Price comparison needs per-venue books; neutral until then.
		priceScore := missingScore

		score := r.cfg.LatencyWeight*latencyScore +
			r.cfg.FillRateWeight*fillScore +
			r.cfg.PriceWeight*priceScore

		if best == nil || score > bestScore {
			best = s
			bestScore = score
		}
	}

	return single(best.Venue, "smart routing on combined venue score")
}

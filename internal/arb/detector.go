package arb

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/marketdata"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// Opportunity is a detected cross-venue spread.
type Opportunity struct {
	MarketID string

	BuyVenue  protocol.Protocol
	SellVenue protocol.Protocol

	BuyPrice  float64
	SellPrice float64
	MaxSize   float64

	Spread          float64 // sell price minus buy price
	SpreadBPS       float64
	ExpectedProfit  float64
	ProfitAfterFees float64

	DetectedNS int64
	QuoteAgeNS int64

	Confidence float64 // 1.0 at age zero, 0 at the configured max age
	Stale      bool
}

// VenueOffset synthesizes one venue's view from a shared observed quote
// when no direct feed for that venue has been seen yet.
type VenueOffset struct {
	Bid float64
	Ask float64
}

// Config holds detector thresholds and venue parameters.
type Config struct {
	MinSpreadBPS  float64
	MinProfit     float64
	MaxQuoteAgeNS int64

	// FeeBPS maps each venue to its taker fee in basis points.
	FeeBPS map[protocol.Protocol]float64

	// VenuePairs lists the ordered venue pairs to scan.
	VenuePairs [][2]protocol.Protocol

	// VenueOffsets drive the synthetic fallback when a venue has no
	// directly observed quote for a market.
	VenueOffsets map[protocol.Protocol]VenueOffset

	// TrackedMarkets limits the scan; empty means all known markets.
	TrackedMarkets []string

	// ScanInterval is the minimum delay between scans.
	ScanInterval time.Duration
}

// DefaultConfig returns the Kalshi/Polymarket defaults.
func DefaultConfig() Config {
	return Config{
		MinSpreadBPS:  10,
		MinProfit:     1,
		MaxQuoteAgeNS: 100 * time.Millisecond.Nanoseconds(),
		FeeBPS: map[protocol.Protocol]float64{
			protocol.KalshiWs:     7,
			protocol.KalshiRest:   7,
			protocol.PolymarketWs: 0,
		},
		VenuePairs: [][2]protocol.Protocol{
			{protocol.KalshiWs, protocol.PolymarketWs},
		},
		// Demo dislocation: Kalshi marked down, Polymarket marked up, far
		// enough apart that the synthetic path clears a typical quoted
		// spread. Directly observed venue quotes always take precedence.
		VenueOffsets: map[protocol.Protocol]VenueOffset{
			protocol.KalshiWs:     {Bid: 0.97, Ask: 0.96},
			protocol.PolymarketWs: {Bid: 1.01, Ask: 1.02},
		},
		ScanInterval: time.Millisecond,
	}
}

// OpportunityCallback observes every opportunity on every scan.
type OpportunityCallback func(Opportunity)

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Scans                  uint64
	OpportunitiesFound     uint64
	TotalTheoreticalProfit float64
	LastScanNS             int64
}

type venueKey struct {
	marketID string
	venue    protocol.Protocol
}

// Detector scans venue quotes for arbitrage on a fixed cadence.
type Detector struct {
	md     *marketdata.Handler
	cfg    Config
	logger *slog.Logger

	venueMu     sync.RWMutex
	venueQuotes map[venueKey]marketdata.Quote

	oppMu         sync.Mutex
	opportunities map[string]Opportunity

	cbMu     sync.RWMutex
	callback OpportunityCallback

	running atomic.Bool
	done    chan struct{}

	scans       atomic.Uint64
	found       atomic.Uint64
	lastScanNS  atomic.Int64
	profitMu    sync.Mutex
	totalProfit float64
}

// NewDetector creates a detector over the market-data handler.
func NewDetector(md *marketdata.Handler, cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Millisecond
	}
	return &Detector{
		md:            md,
		cfg:           cfg,
		logger:        logger,
		venueQuotes:   make(map[venueKey]marketdata.Quote),
		opportunities: make(map[string]Opportunity),
	}
}

// Start launches the scan loop. No-op when already running.
func (d *Detector) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	d.done = make(chan struct{})

	go d.scanLoop()

	d.logger.Info("arbitrage detector started",
		"min_spread_bps", d.cfg.MinSpreadBPS,
		"min_profit", d.cfg.MinProfit,
		"scan_interval", d.cfg.ScanInterval,
	)
}

// Stop halts the scan loop and joins it. No-op when not running.
func (d *Detector) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	<-d.done
	d.logger.Info("arbitrage detector stopped")
}

// ObserveQuote records a venue's view of a market. Wire this to the
// market-data handler's quote callback.
func (d *Detector) ObserveQuote(q marketdata.Quote) {
	d.venueMu.Lock()
	d.venueQuotes[venueKey{q.MarketID, q.Source}] = q
	d.venueMu.Unlock()
}

// CheckMarket scans one market immediately and returns its opportunities.
func (d *Detector) CheckMarket(marketID string) []Opportunity {
	var result []Opportunity
	for _, pair := range d.cfg.VenuePairs {
		if opp, ok := d.checkPair(marketID, pair[0], pair[1]); ok {
			result = append(result, opp)
		}
	}
	return result
}

// Opportunities returns a snapshot of the current cache.
func (d *Detector) Opportunities() []Opportunity {
	d.oppMu.Lock()
	defer d.oppMu.Unlock()

	result := make([]Opportunity, 0, len(d.opportunities))
	for _, opp := range d.opportunities {
		result = append(result, opp)
	}
	return result
}

// BestOpportunity returns the cached opportunity with the highest profit
// after fees.
func (d *Detector) BestOpportunity() (Opportunity, bool) {
	d.oppMu.Lock()
	defer d.oppMu.Unlock()

	var best Opportunity
	found := false
	for _, opp := range d.opportunities {
		if !found || opp.ProfitAfterFees > best.ProfitAfterFees {
			best = opp
			found = true
		}
	}
	return best, found
}

// SetCallback registers an observer fired for every opportunity on every
// scan, not only new cache entries.
func (d *Detector) SetCallback(cb OpportunityCallback) {
	d.cbMu.Lock()
	d.callback = cb
	d.cbMu.Unlock()
}

// Stats returns a counter snapshot.
func (d *Detector) Stats() Stats {
	d.profitMu.Lock()
	profit := d.totalProfit
	d.profitMu.Unlock()

	return Stats{
		Scans:                  d.scans.Load(),
		OpportunitiesFound:     d.found.Load(),
		TotalTheoreticalProfit: profit,
		LastScanNS:             d.lastScanNS.Load(),
	}
}

func (d *Detector) scanLoop() {
	defer close(d.done)

	for d.running.Load() {
		start := clock.NowNS()
		d.scanAllMarkets()
		d.scans.Add(1)
		d.lastScanNS.Store(clock.NowNS() - start)

		time.Sleep(d.cfg.ScanInterval)
	}
}

func (d *Detector) scanAllMarkets() {
	markets := d.cfg.TrackedMarkets
	if len(markets) == 0 {
		markets = d.md.GetMarkets()
	}

	for _, marketID := range markets {
		for _, opp := range d.CheckMarket(marketID) {
			d.processOpportunity(opp)
		}
	}

	d.evictStale()
}

// checkPair evaluates both directions between two venues and returns the
// more profitable positive spread, when it clears the thresholds.
func (d *Detector) checkPair(marketID string, venueA, venueB protocol.Protocol) (Opportunity, bool) {
	quoteA, ageA, okA := d.venueQuote(marketID, venueA)
	quoteB, ageB, okB := d.venueQuote(marketID, venueB)
	if !okA || !okB {
		return Opportunity{}, false
	}

	quoteAge := ageA
	if ageB > quoteAge {
		quoteAge = ageB
	}

	// Direction 1: buy at A's ask, sell into B's bid. Direction 2: the
	// reverse. Fees differ per venue, so both directions are priced out
	// and the higher profit after fees wins.
	dir1, ok1 := d.direction(venueA, venueB,
		quoteA.AskPrice, quoteB.BidPrice, math.Min(quoteB.BidSize, quoteA.AskSize))
	dir2, ok2 := d.direction(venueB, venueA,
		quoteB.AskPrice, quoteA.BidPrice, math.Min(quoteA.BidSize, quoteB.AskSize))

	var opp Opportunity
	switch {
	case ok1 && (!ok2 || dir1.ProfitAfterFees >= dir2.ProfitAfterFees):
		opp = dir1
	case ok2:
		opp = dir2
	default:
		return Opportunity{}, false
	}

	opp.MarketID = marketID
	opp.DetectedNS = clock.NowNS()
	opp.QuoteAgeNS = quoteAge
	opp.Stale = quoteAge > d.cfg.MaxQuoteAgeNS
	opp.Confidence = math.Max(0, 1-float64(quoteAge)/float64(d.cfg.MaxQuoteAgeNS))

	if opp.SpreadBPS < d.cfg.MinSpreadBPS || opp.ProfitAfterFees < d.cfg.MinProfit {
		return Opportunity{}, false
	}
	return opp, true
}

// direction prices out one buy/sell leg pair. ok is false when the spread
// is not positive.
func (d *Detector) direction(buyVenue, sellVenue protocol.Protocol, buyPrice, sellPrice, maxSize float64) (Opportunity, bool) {
	spread := sellPrice - buyPrice
	if spread <= 0 {
		return Opportunity{}, false
	}

	opp := Opportunity{
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		MaxSize:   maxSize,
		Spread:    spread,
	}

	mid := (buyPrice + sellPrice) / 2
	if mid > 0 {
		opp.SpreadBPS = spread / mid * 10000
	}

	opp.ExpectedProfit = spread * maxSize

	feeBuy := d.venueFee(buyVenue) * buyPrice * maxSize / 10000
	feeSell := d.venueFee(sellVenue) * sellPrice * maxSize / 10000
	opp.ProfitAfterFees = opp.ExpectedProfit - feeBuy - feeSell

	return opp, true
}

// venueQuote returns the venue's directly observed quote when present,
// falling back to the shared handler quote scaled by the venue offset.
func (d *Detector) venueQuote(marketID string, venue protocol.Protocol) (marketdata.Quote, int64, bool) {
	d.venueMu.RLock()
	q, ok := d.venueQuotes[venueKey{marketID, venue}]
	d.venueMu.RUnlock()
	if ok {
		return q, q.AgeNS(), true
	}

	shared, ok := d.md.GetQuote(marketID)
	if !ok {
		return marketdata.Quote{}, 0, false
	}
	offset, ok := d.cfg.VenueOffsets[venue]
	if !ok {
		return marketdata.Quote{}, 0, false
	}

	synthetic := shared
	synthetic.Source = venue
	synthetic.BidPrice = shared.BidPrice * offset.Bid
	synthetic.AskPrice = shared.AskPrice * offset.Ask
	return synthetic, shared.AgeNS(), true
}

func (d *Detector) venueFee(venue protocol.Protocol) float64 {
	return d.cfg.FeeBPS[venue]
}

func (d *Detector) processOpportunity(opp Opportunity) {
	key := opp.MarketID + "_" + opp.BuyVenue.String() + "_" + opp.SellVenue.String()

	d.oppMu.Lock()
	_, existed := d.opportunities[key]
	d.opportunities[key] = opp
	d.oppMu.Unlock()

	if !existed {
		d.found.Add(1)
		d.profitMu.Lock()
		d.totalProfit += opp.ProfitAfterFees
		d.profitMu.Unlock()
	}

	d.cbMu.RLock()
	cb := d.callback
	d.cbMu.RUnlock()
	if cb != nil {
		d.fire(cb, opp)
	}
}

func (d *Detector) fire(cb OpportunityCallback, opp Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("opportunity callback panicked", "panic", r)
		}
	}()
	cb(opp)
}

// evictStale drops cache entries older than ten quote lifetimes.
func (d *Detector) evictStale() {
	cutoff := clock.NowNS() - 10*d.cfg.MaxQuoteAgeNS

	d.oppMu.Lock()
	defer d.oppMu.Unlock()
	for key, opp := range d.opportunities {
		if opp.DetectedNS < cutoff {
			delete(d.opportunities, key)
		}
	}
}

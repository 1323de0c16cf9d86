package marketdata

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/cpu"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
	"github.com/Divyesh-Thirukonda/quantshit/internal/queue"
)

// Quote is the top of book for one market at one venue.
type Quote struct {
	MarketID string
	Source   protocol.Protocol

	BidPrice float64
	BidSize  float64
	AskPrice float64
	AskSize  float64

	TimestampNS int64
}

// MidPrice is the arithmetic mean of bid and ask.
func (q Quote) MidPrice() float64 { return (q.BidPrice + q.AskPrice) / 2 }

// Spread is ask minus bid.
func (q Quote) Spread() float64 { return q.AskPrice - q.BidPrice }

// AgeNS is nanoseconds since the quote's source timestamp.
func (q Quote) AgeNS() int64 { return clock.NowNS() - q.TimestampNS }

// Callback types. Callbacks run on the handler worker; implementations
// must not block.
type (
	QuoteCallback func(Quote)
	TradeCallback func(*protocol.TradeEvent)
	BookCallback  func(marketID string, view BookView)
)

// Config holds handler options.
type Config struct {
	// WorkerCore pins the handler worker to a CPU core; -1 disables.
	WorkerCore int
	// QueueSize is the inbound MPSC capacity; must be a power of two.
	QueueSize int
	// MaintainFullBooks enables book maintenance from snapshots.
	MaintainFullBooks bool
}

// DefaultConfig returns the defaults used by the trading core.
func DefaultConfig() Config {
	return Config{
		WorkerCore:        -1,
		QueueSize:         65536,
		MaintainFullBooks: true,
	}
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	QuotesReceived         uint64
	TradesReceived         uint64
	BooksReceived          uint64
	QueueDrops             uint64
	AvgProcessingLatencyNS int64
}

// Handler ingests normalized messages and serves quote and book reads.
type Handler struct {
	cfg    Config
	logger *slog.Logger

	inbound *queue.MPSC[protocol.Message]

	quotesMu sync.RWMutex
	quotes   map[string]Quote

	booksMu sync.RWMutex
	books   map[string]*OrderBook

	cbMu    sync.RWMutex
	quoteCB QuoteCallback
	tradeCB TradeCallback
	bookCB  BookCallback

	running atomic.Bool
	done    chan struct{}

	quotesReceived atomic.Uint64
	tradesReceived atomic.Uint64
	booksReceived  atomic.Uint64
	queueDrops     atomic.Uint64
	avgLatencyNS   atomic.Int64
}

// NewHandler creates a handler. The queue size must be a positive power of
// two.
func NewHandler(cfg Config, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inbound, err := queue.NewMPSC[protocol.Message](cfg.QueueSize)
	if err != nil {
		return nil, err
	}
	return &Handler{
		cfg:     cfg,
		logger:  logger,
		inbound: inbound,
		quotes:  make(map[string]Quote),
		books:   make(map[string]*OrderBook),
	}, nil
}

// Start launches the worker. A second Start without an intervening Stop is
// a no-op.
func (h *Handler) Start() {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	h.done = make(chan struct{})

	go h.processLoop()

	h.logger.Info("market data handler started",
		"queue_size", h.cfg.QueueSize,
		"worker_core", h.cfg.WorkerCore,
		"full_books", h.cfg.MaintainFullBooks,
	)
}

// Stop flips the running flag and joins the worker. Double stop is a
// no-op.
func (h *Handler) Stop() {
	if !h.running.CompareAndSwap(true, false) {
		return
	}
	<-h.done
	h.logger.Info("market data handler stopped")
}

// OnMessage enqueues a normalized message. On a full queue the message is
// dropped and counted; market data is lossy by contract and a stalled
// worker must not stall the parser.
func (h *Handler) OnMessage(msg protocol.Message) {
	if msg == nil {
		return
	}
	if !h.inbound.TryPush(msg) {
		h.queueDrops.Add(1)
	}
}

// GetQuote returns the current quote for a market.
func (h *Handler) GetQuote(marketID string) (Quote, bool) {
	h.quotesMu.RLock()
	defer h.quotesMu.RUnlock()
	q, ok := h.quotes[marketID]
	return q, ok
}

// GetBook returns a detached snapshot of a market's book.
func (h *Handler) GetBook(marketID string) (BookView, bool) {
	h.booksMu.RLock()
	defer h.booksMu.RUnlock()
	book, ok := h.books[marketID]
	if !ok {
		return BookView{}, false
	}
	return book.view(), true
}

// GetMarkets lists every market with a current quote.
func (h *Handler) GetMarkets() []string {
	h.quotesMu.RLock()
	defer h.quotesMu.RUnlock()

	markets := make([]string, 0, len(h.quotes))
	for id := range h.quotes {
		markets = append(markets, id)
	}
	return markets
}

func (h *Handler) SetQuoteCallback(cb QuoteCallback) {
	h.cbMu.Lock()
	h.quoteCB = cb
	h.cbMu.Unlock()
}

func (h *Handler) SetTradeCallback(cb TradeCallback) {
	h.cbMu.Lock()
	h.tradeCB = cb
	h.cbMu.Unlock()
}

func (h *Handler) SetBookCallback(cb BookCallback) {
	h.cbMu.Lock()
	h.bookCB = cb
	h.cbMu.Unlock()
}

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() Stats {
	return Stats{
		QuotesReceived:         h.quotesReceived.Load(),
		TradesReceived:         h.tradesReceived.Load(),
		BooksReceived:          h.booksReceived.Load(),
		QueueDrops:             h.queueDrops.Load(),
		AvgProcessingLatencyNS: h.avgLatencyNS.Load(),
	}
}

// processLoop drains the inbound queue until Stop. The worker spins with a
// yield when empty; it never blocks on I/O.
func (h *Handler) processLoop() {
	defer close(h.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if h.cfg.WorkerCore >= 0 {
		if res := cpu.PinToCore(h.cfg.WorkerCore); !res.Success {
			h.logger.Warn("worker pin failed", "core", h.cfg.WorkerCore, "reason", res.Message)
		}
	}

	for h.running.Load() {
		msg, ok := h.inbound.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}

		start := clock.NowNS()
		h.dispatch(msg)

		// EMA with 7/8 weight on history smooths spikes without keeping
		// sample history.
		latency := clock.NowNS() - start
		prev := h.avgLatencyNS.Load()
		h.avgLatencyNS.Store((prev*7 + latency) / 8)
	}
}

func (h *Handler) dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.MarketDataUpdate:
		h.handleQuote(m)
	case *protocol.OrderBookSnapshot:
		h.handleBook(m)
	case *protocol.TradeEvent:
		h.handleTrade(m)
	case *protocol.OrderFill:
		// Fills are reconciled by the execution engine, not here.
	}
}

func (h *Handler) handleQuote(update *protocol.MarketDataUpdate) {
	q := Quote{
		MarketID:    update.MarketID,
		Source:      update.Venue,
		BidPrice:    update.BidPrice,
		BidSize:     update.BidSize,
		AskPrice:    update.AskPrice,
		AskSize:     update.AskSize,
		TimestampNS: update.TimestampNS,
	}

	h.quotesMu.Lock()
	h.quotes[update.MarketID] = q
	h.quotesMu.Unlock()

	h.quotesReceived.Add(1)

	h.cbMu.RLock()
	cb := h.quoteCB
	h.cbMu.RUnlock()
	if cb != nil {
		h.guard(func() { cb(q) })
	}
}

func (h *Handler) handleBook(snapshot *protocol.OrderBookSnapshot) {
	if !h.cfg.MaintainFullBooks {
		return
	}

	h.booksMu.Lock()
	book, ok := h.books[snapshot.MarketID]
	if !ok {
		book = NewOrderBook(snapshot.MarketID)
		h.books[snapshot.MarketID] = book
	}
	book.Apply(snapshot)
	view := book.view()
	h.booksMu.Unlock()

	h.booksReceived.Add(1)

	h.cbMu.RLock()
	cb := h.bookCB
	h.cbMu.RUnlock()
	if cb != nil {
		h.guard(func() { cb(snapshot.MarketID, view) })
	}
}

func (h *Handler) handleTrade(trade *protocol.TradeEvent) {
	h.tradesReceived.Add(1)

	h.cbMu.RLock()
	cb := h.tradeCB
	h.cbMu.RUnlock()
	if cb != nil {
		h.guard(func() { cb(trade) })
	}
}

// guard keeps a panicking user callback from killing the worker.
func (h *Handler) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("market data callback panicked", "panic", r)
		}
	}()
	fn()
}

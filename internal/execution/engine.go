package execution

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/connection"
	"github.com/Divyesh-Thirukonda/quantshit/internal/cpu"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
	"github.com/Divyesh-Thirukonda/quantshit/internal/queue"
)

// Config holds engine options.
type Config struct {
	// OrderWorkerCore pins the order worker; -1 disables.
	OrderWorkerCore int
	// ReportWorkerCore pins the report worker; -1 disables.
	ReportWorkerCore int
	// RealtimePriority applies SCHED_FIFO to the order worker when 1-99
	// and OrderWorkerCore pins it; an unpinned worker keeps normal priority.
	RealtimePriority int

	// Queue capacities; powers of two.
	OrderQueueSize  int
	ReportQueueSize int

	Limits RiskLimits
}

// DefaultConfig returns the defaults used by the trading core.
func DefaultConfig() Config {
	return Config{
		OrderWorkerCore:  -1,
		ReportWorkerCore: -1,
		OrderQueueSize:   16384,
		ReportQueueSize:  16384,
		Limits:           DefaultRiskLimits(),
	}
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	OrdersSubmitted uint64
	OrdersFilled    uint64
	OrdersRejected  uint64
	TotalVolume     float64
	AvgLatencyNS    int64
}

// Callback types for engine-wide observers.
type (
	OrderCallback     func(Order)
	ExecutionCallback func(ExecutionReport)
)

// Engine is the order execution pipeline.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	risk      *RiskManager
	positions *PositionTracker

	orderQueue  *queue.SPSC[*Order]
	reportQueue *queue.SPSC[ExecutionReport]

	ordersMu sync.Mutex
	active   map[uint64]*Order
	extIndex map[string]uint64

	callbacksMu sync.Mutex
	callbacks   map[uint64]ReportCallback

	connsMu sync.Mutex
	conns   map[protocol.Protocol]connection.Conn

	encodersMu sync.Mutex
	encoders   map[protocol.Protocol]Encoder
	defaultEnc Encoder

	cbMu        sync.RWMutex
	orderCB     OrderCallback
	executionCB ExecutionCallback

	running   atomic.Bool
	orderDone chan struct{}
	execDone  chan struct{}

	nextOrderID atomic.Uint64

	ordersSubmitted atomic.Uint64
	ordersFilled    atomic.Uint64
	ordersRejected  atomic.Uint64
	totalVolume     atomicFloat64
	avgLatencyNS    atomic.Int64
}

// NewEngine creates an engine. Queue sizes must be positive powers of two.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	orderQueue, err := queue.NewSPSC[*Order](cfg.OrderQueueSize)
	if err != nil {
		return nil, err
	}
	reportQueue, err := queue.NewSPSC[ExecutionReport](cfg.ReportQueueSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		logger:      logger,
		risk:        NewRiskManager(cfg.Limits),
		positions:   NewPositionTracker(),
		orderQueue:  orderQueue,
		reportQueue: reportQueue,
		active:      make(map[uint64]*Order),
		extIndex:    make(map[string]uint64),
		callbacks:   make(map[uint64]ReportCallback),
		conns:       make(map[protocol.Protocol]connection.Conn),
		encoders:    make(map[protocol.Protocol]Encoder),
		defaultEnc:  JSONEncoder{},
	}
	e.nextOrderID.Store(0)
	return e, nil
}

// Start launches the order and report workers. No-op when running.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.orderDone = make(chan struct{})
	e.execDone = make(chan struct{})

	go e.orderLoop()
	go e.execLoop()

	e.logger.Info("execution engine started",
		"order_queue", e.cfg.OrderQueueSize,
		"report_queue", e.cfg.ReportQueueSize,
		"order_core", e.cfg.OrderWorkerCore,
	)
}

// Stop flips the running flag once and joins both workers.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	<-e.orderDone
	<-e.execDone
	e.logger.Info("execution engine stopped")
}

// SubmitOrder risk-checks the request synchronously. On failure the
// request's callback receives one Rejected report and the order never
// exists. On success the order enters the queue in Pending and becomes
// visible to GetOrder once the order worker consumes it.
func (e *Engine) SubmitOrder(req OrderRequest) bool {
	verdict := e.risk.Check(&req, e.positions)
	if !verdict.Passed {
		e.ordersRejected.Add(1)
		if req.OnReport != nil {
			e.guardReport(req.OnReport, ExecutionReport{
				Status:      Rejected,
				TimestampNS: clock.NowNS(),
				Message:     verdict.Reason,
			})
		}
		return false
	}

	order := &Order{
		InternalID: e.nextOrderID.Add(1),
		ExternalID: uuid.NewString(),
		MarketID:   req.MarketID,
		Venue:      req.Venue,
		Side:       req.Side,
		Type:       req.Type,
		Status:     Pending,
		Price:      req.Price,
		Quantity:   req.Quantity,
		CreatedNS:  clock.NowNS(),
	}

	if req.OnReport != nil {
		e.callbacksMu.Lock()
		e.callbacks[order.InternalID] = req.OnReport
		e.callbacksMu.Unlock()
	}

	if !e.orderQueue.TryPush(order) {
		e.callbacksMu.Lock()
		delete(e.callbacks, order.InternalID)
		e.callbacksMu.Unlock()
		e.logger.Warn("order queue full", "market", req.MarketID)
		return false
	}
	return true
}

// CancelOrder marks an active order Cancelled and, when the venue
// connection is up, emits a wire-level cancel.
func (e *Engine) CancelOrder(orderID uint64) bool {
	e.ordersMu.Lock()
	order, ok := e.active[orderID]
	if !ok || order.Status.Terminal() {
		e.ordersMu.Unlock()
		return false
	}
	order.Status = Cancelled
	order.LastUpdateNS = clock.NowNS()
	venue := order.Venue
	e.ordersMu.Unlock()

	if conn := e.connFor(venue); conn != nil && conn.State() == connection.Connected {
		conn.Send(e.encoderFor(venue).EncodeCancel(orderID))
	}
	return true
}

// GetOrder returns a snapshot copy of an order in the active index. An
// order submitted through SubmitOrder appears here only after the order
// worker has consumed it.
func (e *Engine) GetOrder(orderID uint64) (Order, bool) {
	e.ordersMu.Lock()
	defer e.ordersMu.Unlock()

	order, ok := e.active[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// RegisterConnection stores the venue connection used for dispatch. The
// pool retains ownership.
func (e *Engine) RegisterConnection(venue protocol.Protocol, conn connection.Conn) {
	e.connsMu.Lock()
	e.conns[venue] = conn
	e.connsMu.Unlock()
}

// RegisterEncoder installs a venue-specific wire encoder.
func (e *Engine) RegisterEncoder(venue protocol.Protocol, enc Encoder) {
	e.encodersMu.Lock()
	e.encoders[venue] = enc
	e.encodersMu.Unlock()
}

// OnExecutionReport enqueues a venue report for reconciliation. Returns
// false when the report queue is full.
func (e *Engine) OnExecutionReport(report ExecutionReport) bool {
	return e.reportQueue.TryPush(report)
}

// ReconcileFill translates a normalized fill from the market-data path
// into an execution report against the originating order.
func (e *Engine) ReconcileFill(fill *protocol.OrderFill) bool {
	e.ordersMu.Lock()
	internalID, ok := e.extIndex[fill.OrderID]
	var remaining float64
	if ok {
		if order, live := e.active[internalID]; live {
			remaining = order.Quantity - order.FilledQuantity - fill.FilledSize
		}
	}
	e.ordersMu.Unlock()
	if !ok {
		return false
	}

	status := PartiallyFilled
	if fill.IsComplete {
		status = Filled
	}
	return e.OnExecutionReport(ExecutionReport{
		OrderID:           internalID,
		ExternalID:        fill.OrderID,
		Status:            status,
		FilledQuantity:    fill.FilledSize,
		FillPrice:         fill.Price,
		RemainingQuantity: math.Max(0, remaining),
		TimestampNS:       fill.TimestampNS,
	})
}

// Position returns the signed position for a market.
func (e *Engine) Position(marketID string) float64 {
	return e.positions.Get(marketID)
}

// Risk exposes the risk manager for daily resets and limit changes.
func (e *Engine) Risk() *RiskManager { return e.risk }

func (e *Engine) SetOrderCallback(cb OrderCallback) {
	e.cbMu.Lock()
	e.orderCB = cb
	e.cbMu.Unlock()
}

func (e *Engine) SetExecutionCallback(cb ExecutionCallback) {
	e.cbMu.Lock()
	e.executionCB = cb
	e.cbMu.Unlock()
}

// Stats returns a counter snapshot.
func (e *Engine) Stats() Stats {
	return Stats{
		OrdersSubmitted: e.ordersSubmitted.Load(),
		OrdersFilled:    e.ordersFilled.Load(),
		OrdersRejected:  e.ordersRejected.Load(),
		TotalVolume:     e.totalVolume.Load(),
		AvgLatencyNS:    e.avgLatencyNS.Load(),
	}
}

// orderLoop drains the order queue on a dedicated, optionally pinned
// thread: transition to Submitted, index, serialize, dispatch.
func (e *Engine) orderLoop() {
	defer close(e.orderDone)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.cfg.OrderWorkerCore >= 0 {
		res := cpu.PinToCore(e.cfg.OrderWorkerCore)
		if !res.Success {
			e.logger.Warn("order worker pin failed", "core", e.cfg.OrderWorkerCore, "reason", res.Message)
		}
		if e.cfg.RealtimePriority > 0 {
			if res := cpu.SetRealtimePriority(e.cfg.RealtimePriority); !res.Success {
				e.logger.Warn("order worker rt priority failed", "reason", res.Message)
			}
		}
	}

	for e.running.Load() {
		order, ok := e.orderQueue.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}

		order.Status = Submitted
		order.SubmittedNS = clock.NowNS()
		order.LastUpdateNS = order.SubmittedNS

		e.ordersMu.Lock()
		e.active[order.InternalID] = order
		e.extIndex[order.ExternalID] = order.InternalID
		snapshot := *order
		e.ordersMu.Unlock()

		e.sendToVenue(&snapshot)

		e.ordersSubmitted.Add(1)
		latency := snapshot.SubmittedNS - snapshot.CreatedNS
		prev := e.avgLatencyNS.Load()
		e.avgLatencyNS.Store((prev*7 + latency) / 8)

		e.cbMu.RLock()
		cb := e.orderCB
		e.cbMu.RUnlock()
		if cb != nil {
			e.guardOrder(cb, snapshot)
		}
	}
}

// execLoop reconciles reports in arrival order; a late report may regress
// observed state and that is accepted.
func (e *Engine) execLoop() {
	defer close(e.execDone)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.cfg.ReportWorkerCore >= 0 {
		if res := cpu.PinToCore(e.cfg.ReportWorkerCore); !res.Success {
			e.logger.Warn("report worker pin failed", "core", e.cfg.ReportWorkerCore, "reason", res.Message)
		}
	}

	for e.running.Load() {
		report, ok := e.reportQueue.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		e.applyReport(report)
	}
}

func (e *Engine) applyReport(report ExecutionReport) {
	e.ordersMu.Lock()
	order, ok := e.active[report.OrderID]
	if ok {
		order.Status = report.Status
		if report.FilledQuantity > 0 {
			// Weighted average across partial fills.
			prevFilled := order.FilledQuantity
			newFilled := prevFilled + report.FilledQuantity
			if newFilled > 0 && report.FillPrice > 0 {
				order.AvgFillPrice = (order.AvgFillPrice*prevFilled + report.FillPrice*report.FilledQuantity) / newFilled
			}
			order.FilledQuantity = newFilled
		}
		order.LastUpdateNS = report.TimestampNS
		if report.Status == Rejected || report.Status == StatusError {
			order.ErrorMessage = report.Message
		}
		if report.Status.Terminal() {
			delete(e.extIndex, order.ExternalID)
		}
	}
	var side protocol.Side
	var marketID string
	if ok {
		side = order.Side
		marketID = order.MarketID
	}
	e.ordersMu.Unlock()

	if ok && report.Status == Filled {
		e.ordersFilled.Add(1)
		e.totalVolume.Add(report.FilledQuantity)

		delta := report.FilledQuantity
		if side == protocol.Sell {
			delta = -delta
		}
		e.positions.Update(marketID, delta)
		e.risk.RecordFill(marketID, side, report.FillPrice, report.FilledQuantity)
	}

	e.callbacksMu.Lock()
	cb, hasCB := e.callbacks[report.OrderID]
	if hasCB && report.Status.Terminal() {
		delete(e.callbacks, report.OrderID)
	}
	e.callbacksMu.Unlock()
	if hasCB {
		e.guardReport(cb, report)
	}

	e.cbMu.RLock()
	global := e.executionCB
	e.cbMu.RUnlock()
	if global != nil {
		e.guardReport(ReportCallback(global), report)
	}
}

func (e *Engine) sendToVenue(order *Order) {
	conn := e.connFor(order.Venue)
	if conn == nil || conn.State() != connection.Connected {
		// The order stays Submitted in the index; a reconciler may later
		// transition it to error.
		return
	}
	conn.Send(e.encoderFor(order.Venue).Encode(order))
}

func (e *Engine) connFor(venue protocol.Protocol) connection.Conn {
	e.connsMu.Lock()
	defer e.connsMu.Unlock()
	return e.conns[venue]
}

func (e *Engine) encoderFor(venue protocol.Protocol) Encoder {
	e.encodersMu.Lock()
	defer e.encodersMu.Unlock()
	if enc, ok := e.encoders[venue]; ok {
		return enc
	}
	return e.defaultEnc
}

func (e *Engine) guardReport(cb ReportCallback, report ExecutionReport) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("report callback panicked", "panic", r)
		}
	}()
	cb(report)
}

func (e *Engine) guardOrder(cb OrderCallback, order Order) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("order callback panicked", "panic", r)
		}
	}()
	cb(order)
}

// atomicFloat64 is a float64 with atomic add/load via bit casting.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

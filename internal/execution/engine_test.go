package execution

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/connection"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// stubConn records sent frames; always Connected.
type stubConn struct {
	mu    sync.Mutex
	proto protocol.Protocol
	sent  [][]byte
}

func (s *stubConn) Protocol() protocol.Protocol { return s.proto }
func (s *stubConn) State() connection.State     { return connection.Connected }
func (s *stubConn) Connect() bool               { return true }
func (s *stubConn) Disconnect()                 {}

func (s *stubConn) Send(data []byte) bool {
	s.mu.Lock()
	s.sent = append(s.sent, data)
	s.mu.Unlock()
	return true
}

func (s *stubConn) sentFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *stubConn) Subscribe(channel, symbol string)             {}
func (s *stubConn) Unsubscribe(channel, symbol string)           {}
func (s *stubConn) SetDataCallback(cb connection.DataCallback)   {}
func (s *stubConn) SetStateCallback(cb connection.StateCallback) {}
func (s *stubConn) SetErrorCallback(cb connection.ErrorCallback) {}

func newTestEngine(t *testing.T, limits RiskLimits) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Limits = limits

	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.Start()
	t.Cleanup(e.Stop)
	return e
}

func await(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEngine_RiskRejection(t *testing.T) {
	limits := DefaultRiskLimits()
	limits.MaxOrderSize = 100

	e := newTestEngine(t, limits)

	var mu sync.Mutex
	var reports []ExecutionReport
	ok := e.SubmitOrder(OrderRequest{
		MarketID: "M",
		Venue:    protocol.KalshiWs,
		Side:     protocol.Buy,
		Quantity: 200,
		OnReport: func(r ExecutionReport) {
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		},
	})

	if ok {
		t.Fatal("SubmitOrder = true for oversized order")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want exactly 1", len(reports))
	}
	if reports[0].Status != Rejected {
		t.Errorf("Status = %v, want Rejected", reports[0].Status)
	}
	if !strings.Contains(reports[0].Message, "size") {
		t.Errorf("Message = %q, want it to mention size", reports[0].Message)
	}
	if got := e.Stats().OrdersRejected; got != 1 {
		t.Errorf("OrdersRejected = %d, want 1", got)
	}
	// No order was created: the active index stays empty.
	if _, found := e.GetOrder(1); found {
		t.Error("rejected order present in active index")
	}
}

func TestEngine_SubmitVisibleAfterWorker(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())
	conn := &stubConn{proto: protocol.KalshiWs}
	e.RegisterConnection(protocol.KalshiWs, conn)

	if !e.SubmitOrder(OrderRequest{
		MarketID: "M",
		Venue:    protocol.KalshiWs,
		Side:     protocol.Buy,
		Type:     Limit,
		Price:    0.55,
		Quantity: 10,
	}) {
		t.Fatal("SubmitOrder = false")
	}

	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	order, _ := e.GetOrder(1)
	if order.Status != Submitted {
		t.Errorf("Status = %v, want Submitted", order.Status)
	}
	if order.SubmittedNS == 0 || order.CreatedNS == 0 {
		t.Error("timestamps not stamped")
	}
	if order.ExternalID == "" {
		t.Error("ExternalID not assigned")
	}

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	wire := string(frames[0])
	if !strings.Contains(wire, `"id":1`) || !strings.Contains(wire, `"market":"M"`) {
		t.Errorf("wire = %s", wire)
	}
}

func TestEngine_NoConnectionStillSubmitted(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())

	e.SubmitOrder(OrderRequest{MarketID: "M", Venue: protocol.Dydx, Side: protocol.Buy, Quantity: 1})

	await(t, func() bool {
		order, found := e.GetOrder(1)
		return found && order.Status == Submitted
	})
}

func TestEngine_FillUpdatesPositionAndStats(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())

	var mu sync.Mutex
	var reports []ExecutionReport
	e.SubmitOrder(OrderRequest{
		MarketID: "M",
		Venue:    protocol.KalshiWs,
		Side:     protocol.Buy,
		Quantity: 10,
		OnReport: func(r ExecutionReport) {
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		},
	})

	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	e.OnExecutionReport(ExecutionReport{
		OrderID:        1,
		Status:         Filled,
		FilledQuantity: 10,
		FillPrice:      0.50,
		TimestampNS:    clock.NowNS(),
	})

	await(t, func() bool { return e.Stats().OrdersFilled == 1 })

	if got := e.Position("M"); got != 10 {
		t.Errorf("Position(M) = %v, want +10", got)
	}
	if got := e.Stats().TotalVolume; got != 10 {
		t.Errorf("TotalVolume = %v, want 10", got)
	}

	mu.Lock()
	n := len(reports)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("got %d reports, want 1", n)
	}

	// The callback is evicted on the terminal report: a duplicate fill
	// must not reach it again.
	e.OnExecutionReport(ExecutionReport{OrderID: 1, Status: Filled, FilledQuantity: 0})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Errorf("callback fired %d times after eviction, want 1", len(reports))
	}
}

func TestEngine_SellFillDecrementsPosition(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())

	e.SubmitOrder(OrderRequest{MarketID: "M", Venue: protocol.KalshiWs, Side: protocol.Sell, Quantity: 7})
	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	e.OnExecutionReport(ExecutionReport{OrderID: 1, Status: Filled, FilledQuantity: 7, FillPrice: 0.5})
	await(t, func() bool { return e.Stats().OrdersFilled == 1 })

	if got := e.Position("M"); got != -7 {
		t.Errorf("Position(M) = %v, want -7", got)
	}
}

func TestEngine_PartialFillAveragePrice(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())

	e.SubmitOrder(OrderRequest{MarketID: "M", Venue: protocol.KalshiWs, Side: protocol.Buy, Quantity: 20})
	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	e.OnExecutionReport(ExecutionReport{OrderID: 1, Status: PartiallyFilled, FilledQuantity: 10, FillPrice: 0.40})
	e.OnExecutionReport(ExecutionReport{OrderID: 1, Status: Filled, FilledQuantity: 10, FillPrice: 0.60})

	await(t, func() bool {
		order, _ := e.GetOrder(1)
		return order.Status == Filled
	})

	order, _ := e.GetOrder(1)
	if order.FilledQuantity != 20 {
		t.Errorf("FilledQuantity = %v, want 20", order.FilledQuantity)
	}
	if order.AvgFillPrice != 0.50 {
		t.Errorf("AvgFillPrice = %v, want 0.50", order.AvgFillPrice)
	}
}

func TestEngine_CancelOrder(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())
	conn := &stubConn{proto: protocol.KalshiWs}
	e.RegisterConnection(protocol.KalshiWs, conn)

	e.SubmitOrder(OrderRequest{MarketID: "M", Venue: protocol.KalshiWs, Side: protocol.Buy, Quantity: 5})
	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	if !e.CancelOrder(1) {
		t.Fatal("CancelOrder = false for active order")
	}

	order, _ := e.GetOrder(1)
	if order.Status != Cancelled {
		t.Errorf("Status = %v, want Cancelled", order.Status)
	}

	// A wire-level cancel followed the order frame.
	frames := conn.sentFrames()
	if len(frames) != 2 || !strings.Contains(string(frames[1]), `"cancel":1`) {
		t.Errorf("frames = %v", frames)
	}

	if e.CancelOrder(1) {
		t.Error("CancelOrder = true for already-terminal order")
	}
	if e.CancelOrder(999) {
		t.Error("CancelOrder = true for unknown order")
	}
}

func TestEngine_ReconcileFill(t *testing.T) {
	e := newTestEngine(t, DefaultRiskLimits())

	e.SubmitOrder(OrderRequest{MarketID: "M", Venue: protocol.PolymarketWs, Side: protocol.Buy, Quantity: 10})
	await(t, func() bool {
		_, found := e.GetOrder(1)
		return found
	})

	order, _ := e.GetOrder(1)
	if !e.ReconcileFill(&protocol.OrderFill{
		Venue:      protocol.PolymarketWs,
		OrderID:    order.ExternalID,
		MarketID:   "M",
		FillSide:   protocol.Buy,
		Price:      0.5,
		FilledSize: 10,
		IsComplete: true,
	}) {
		t.Fatal("ReconcileFill = false for known external id")
	}

	await(t, func() bool { return e.Stats().OrdersFilled == 1 })
	if got := e.Position("M"); got != 10 {
		t.Errorf("Position(M) = %v, want 10", got)
	}

	if e.ReconcileFill(&protocol.OrderFill{OrderID: "unknown"}) {
		t.Error("ReconcileFill = true for unknown external id")
	}
}

func TestEngine_DoubleStartStop(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	e.Start()
	e.Start()
	e.Stop()
	e.Stop()
}

func TestEngine_QueueSizeValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OrderQueueSize = 1000 // not a power of two
	if _, err := NewEngine(cfg, nil); err == nil {
		t.Error("NewEngine accepted a non-power-of-two queue size")
	}
}

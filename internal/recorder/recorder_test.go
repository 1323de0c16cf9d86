package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/Divyesh-Thirukonda/quantshit/internal/arb"
	"github.com/Divyesh-Thirukonda/quantshit/internal/execution"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

func TestBuffer_SendReceive(t *testing.T) {
	b := NewBuffer[int](4)

	for i := 0; i < 10; i++ {
		if !b.Send(i) {
			t.Fatalf("Send(%d) = false", i)
		}
	}
	if b.Len() != 10 {
		t.Errorf("Len() = %d, want 10 (buffer grows)", b.Len())
	}

	for i := 0; i < 10; i++ {
		v, ok := b.TryReceive()
		if !ok || v != i {
			t.Fatalf("TryReceive() = %d,%v want %d", v, ok, i)
		}
	}
	if _, ok := b.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer returned a value")
	}

	stats := b.Stats()
	if stats.TotalIn != 10 || stats.TotalOut != 10 {
		t.Errorf("TotalIn/Out = %d/%d, want 10/10", stats.TotalIn, stats.TotalOut)
	}
	if stats.Resizes == 0 {
		t.Error("Resizes = 0, want growth past initial capacity")
	}
}

func TestBuffer_GrowPreservesWrappedOrder(t *testing.T) {
	b := NewBuffer[int](8)

	// Wrap the ring, then force growth.
	for i := 0; i < 5; i++ {
		b.Send(i)
	}
	for i := 0; i < 5; i++ {
		b.TryReceive()
	}
	for i := 0; i < 20; i++ {
		b.Send(100 + i)
	}

	got := b.Drain(0)
	for i, v := range got {
		if v != 100+i {
			t.Fatalf("Drain()[%d] = %d, want %d", i, v, 100+i)
		}
	}
}

func TestBuffer_Closed(t *testing.T) {
	b := NewBuffer[int](2)
	b.Send(1)
	b.Close()

	if b.Send(2) {
		t.Error("Send after Close = true")
	}
	// Remaining items still drain.
	if v, ok := b.TryReceive(); !ok || v != 1 {
		t.Errorf("TryReceive() = %d,%v", v, ok)
	}
}

func TestRecorder_TransformAndFlow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Writer.BatchSize = 2
	cfg.Writer.FlushInterval = 20 * time.Millisecond

	// nil pool: inserts are no-ops that still count.
	r := New(cfg, nil, nil)

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}

	r.RecordOpportunity(arb.Opportunity{
		MarketID:        "M1",
		BuyVenue:        protocol.KalshiWs,
		SellVenue:       protocol.PolymarketWs,
		BuyPrice:        0.48,
		SellPrice:       0.52,
		MaxSize:         100,
		SpreadBPS:       800,
		ProfitAfterFees: 3.5,
		Confidence:      0.9,
	})
	r.RecordReport(execution.ExecutionReport{
		OrderID:        7,
		ExternalID:     "ext-7",
		Status:         execution.Filled,
		FilledQuantity: 10,
		FillPrice:      0.5,
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		opps, fills := r.Stats()
		if opps.Inserts == 1 && fills.Inserts == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("rows never flushed: opps=%+v fills=%+v", opps, fills)
		}
		time.Sleep(time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRecorder_StopFlushesRemainder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Writer.BatchSize = 1000
	cfg.Writer.FlushInterval = time.Hour // only the final flush applies

	r := New(cfg, nil, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	r.RecordOpportunity(arb.Opportunity{MarketID: "M"})

	// Give the consume loop a moment to move the row into the batch.
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}

	opps, _ := r.Stats()
	if opps.Inserts != 1 {
		t.Errorf("Inserts = %d, want the final flush to write 1", opps.Inserts)
	}
}

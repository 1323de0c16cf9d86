package recorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/Divyesh-Thirukonda/quantshit/internal/arb"
	"github.com/Divyesh-Thirukonda/quantshit/internal/execution"
)

// Config tunes the recorder.
type Config struct {
	Writer     WriterConfig
	BufferSize int
}

// DefaultConfig returns the recorder defaults.
func DefaultConfig() Config {
	return Config{
		Writer:     DefaultWriterConfig(),
		BufferSize: 10000,
	}
}

// opportunityRow is the persisted shape of an arbitrage opportunity.
type opportunityRow struct {
	ID              uuid.UUID
	MarketID        string
	BuyVenue        string
	SellVenue       string
	BuyPrice        float64
	SellPrice       float64
	MaxSize         float64
	SpreadBPS       float64
	ProfitAfterFees float64
	Confidence      float64
	Stale           bool
	DetectedNS      int64
	RecordedAt      int64 // wall-clock microseconds for cross-run joins
}

// fillRow is the persisted shape of an execution report.
type fillRow struct {
	OrderID           uint64
	ExternalID        string
	Status            string
	FilledQuantity    float64
	FillPrice         float64
	RemainingQuantity float64
	TimestampNS       int64
	Message           string
	RecordedAt        int64
}

// Recorder buffers opportunities and execution reports and batch-writes
// them to Postgres. A nil pool disables inserts; rows are still counted so
// tests and dry runs observe the flow.
type Recorder struct {
	cfg    Config
	logger *slog.Logger
	db     *pgxpool.Pool

	opps  *Buffer[opportunityRow]
	fills *Buffer[fillRow]

	oppWriter  *batchWriter[opportunityRow]
	fillWriter *batchWriter[fillRow]
}

// New creates a recorder over the given pool (nil disables persistence).
func New(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		cfg:    cfg,
		logger: logger,
		db:     db,
		opps:   NewBuffer[opportunityRow](cfg.BufferSize),
		fills:  NewBuffer[fillRow](cfg.BufferSize),
	}
	r.oppWriter = newBatchWriter("opportunities", cfg.Writer, r.opps, r.insertOpportunities, logger)
	r.fillWriter = newBatchWriter("fills", cfg.Writer, r.fills, r.insertFills, logger)
	return r
}

// Start launches both writers.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.oppWriter.Start(ctx); err != nil {
		return err
	}
	return r.fillWriter.Start(ctx)
}

// Stop flushes and stops both writers concurrently.
func (r *Recorder) Stop(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return r.oppWriter.Stop(ctx) })
	g.Go(func() error { return r.fillWriter.Stop(ctx) })
	err := g.Wait()

	r.opps.Close()
	r.fills.Close()
	return err
}

// RecordOpportunity enqueues an opportunity for persistence. Safe to wire
// directly as the detector callback.
func (r *Recorder) RecordOpportunity(opp arb.Opportunity) {
	r.opps.Send(opportunityRow{
		ID:              uuid.New(),
		MarketID:        opp.MarketID,
		BuyVenue:        opp.BuyVenue.String(),
		SellVenue:       opp.SellVenue.String(),
		BuyPrice:        opp.BuyPrice,
		SellPrice:       opp.SellPrice,
		MaxSize:         opp.MaxSize,
		SpreadBPS:       opp.SpreadBPS,
		ProfitAfterFees: opp.ProfitAfterFees,
		Confidence:      opp.Confidence,
		Stale:           opp.Stale,
		DetectedNS:      opp.DetectedNS,
		RecordedAt:      time.Now().UnixMicro(),
	})
}

// RecordReport enqueues an execution report. Safe to wire directly as the
// engine's global execution callback.
func (r *Recorder) RecordReport(report execution.ExecutionReport) {
	r.fills.Send(fillRow{
		OrderID:           report.OrderID,
		ExternalID:        report.ExternalID,
		Status:            report.Status.String(),
		FilledQuantity:    report.FilledQuantity,
		FillPrice:         report.FillPrice,
		RemainingQuantity: report.RemainingQuantity,
		TimestampNS:       report.TimestampNS,
		Message:           report.Message,
		RecordedAt:        time.Now().UnixMicro(),
	})
}

// Stats returns both writers' metrics.
func (r *Recorder) Stats() (opportunities, fills WriterMetrics) {
	return r.oppWriter.Stats(), r.fillWriter.Stats()
}

func (r *Recorder) insertOpportunities(ctx context.Context, rows []opportunityRow) (int, error) {
	if r.db == nil {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO opportunities (id, market_id, buy_venue, sell_venue, buy_price, sell_price, max_size, spread_bps, profit_after_fees, confidence, stale, detected_ns, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING
		`, row.ID, row.MarketID, row.BuyVenue, row.SellVenue, row.BuyPrice, row.SellPrice, row.MaxSize, row.SpreadBPS, row.ProfitAfterFees, row.Confidence, row.Stale, row.DetectedNS, row.RecordedAt)
	}
	return r.sendBatch(ctx, batch, len(rows))
}

func (r *Recorder) insertFills(ctx context.Context, rows []fillRow) (int, error) {
	if r.db == nil {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO fills (order_id, external_id, status, filled_quantity, fill_price, remaining_quantity, timestamp_ns, message, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (order_id, timestamp_ns, status) DO NOTHING
		`, row.OrderID, row.ExternalID, row.Status, row.FilledQuantity, row.FillPrice, row.RemainingQuantity, row.TimestampNS, row.Message, row.RecordedAt)
	}
	return r.sendBatch(ctx, batch, len(rows))
}

func (r *Recorder) sendBatch(ctx context.Context, batch *pgx.Batch, n int) (conflicts int, err error) {
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < n; i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}

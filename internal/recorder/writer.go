package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WriterConfig tunes batch accumulation.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns the recorder defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
	}
}

// WriterMetrics counts writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// insertFunc writes one batch and reports how many rows were conflict
// no-ops.
type insertFunc[T any] func(ctx context.Context, rows []T) (conflicts int, err error)

// batchWriter drains one buffer into the database in batches. Adapted
// per row type by the insert function.
type batchWriter[T any] struct {
	name   string
	cfg    WriterConfig
	logger *slog.Logger

	input  *Buffer[T]
	insert insertFunc[T]

	batchMu sync.Mutex
	batch   []T
	metrics WriterMetrics

	flushTicker *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func newBatchWriter[T any](name string, cfg WriterConfig, input *Buffer[T], insert insertFunc[T], logger *slog.Logger) *batchWriter[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &batchWriter[T]{
		name:   name,
		cfg:    cfg,
		logger: logger,
		input:  input,
		insert: insert,
		batch:  make([]T, 0, cfg.BatchSize),
	}
}

// Start launches the consume and flush goroutines.
func (w *batchWriter[T]) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("recorder writer started",
		"writer", w.name,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains goroutines and performs a final flush.
func (w *batchWriter[T]) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("recorder writer stop timed out", "writer", w.name)
	}

	w.flush(ctx)
	return nil
}

// Stats returns current metrics.
func (w *batchWriter[T]) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *batchWriter[T]) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			row, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.add(row)
		}
	}
}

func (w *batchWriter[T]) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *batchWriter[T]) add(row T) {
	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *batchWriter[T]) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]T, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.insert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "writer", w.name, "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed batch",
		"writer", w.name,
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

package config

import (
	"errors"
	"fmt"
)

func powerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks that all values are usable. Call after ApplyDefaults.
func (c *CoreConfig) Validate() error {
	if !powerOfTwo(c.Handler.QueueSize) {
		return fmt.Errorf("handler.queue_size must be a power of two, got %d", c.Handler.QueueSize)
	}
	if !powerOfTwo(c.Engine.OrderQueueSize) {
		return fmt.Errorf("engine.order_queue_size must be a power of two, got %d", c.Engine.OrderQueueSize)
	}
	if !powerOfTwo(c.Engine.ReportQueueSize) {
		return fmt.Errorf("engine.report_queue_size must be a power of two, got %d", c.Engine.ReportQueueSize)
	}

	if c.Handler.WorkerCore < -1 {
		return errors.New("handler.worker_core must be >= -1")
	}
	if c.Engine.OrderWorkerCore < -1 || c.Engine.ReportWorkerCore < -1 {
		return errors.New("engine worker cores must be >= -1")
	}
	if p := c.Engine.RealtimePriority; p != 0 && (p < 1 || p > 99) {
		return fmt.Errorf("engine.realtime_priority must be 1-99 or 0, got %d", p)
	}

	if c.Arbitrage.MinSpreadBPS < 0 {
		return errors.New("arbitrage.min_spread_bps must be >= 0")
	}
	if c.Arbitrage.MaxQuoteAge <= 0 {
		return errors.New("arbitrage.max_quote_age must be > 0")
	}

	if c.Risk.MaxOrderSize <= 0 {
		return errors.New("risk.max_order_size must be > 0")
	}
	if c.Risk.MaxOrdersPerSecond < 1 {
		return errors.New("risk.max_orders_per_second must be >= 1")
	}

	for i, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venues[%d].name is required", i)
		}
		if v.Endpoint == "" {
			return fmt.Errorf("venues[%d].endpoint is required", i)
		}
	}

	if c.Recorder.Enabled {
		if err := c.Recorder.Database.validate("recorder.database"); err != nil {
			return err
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 || db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns must be between 0 and max_conns", prefix)
	}
	return nil
}

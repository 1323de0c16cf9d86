package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHandlerQueueSize = 65536
	DefaultOrderQueueSize   = 16384
	DefaultReportQueueSize  = 16384

	DefaultMinSpreadBPS     = 10.0
	DefaultMinProfit        = 1.0
	DefaultMaxQuoteAge      = 100 * time.Millisecond
	DefaultScanInterval     = time.Millisecond
	DefaultKalshiFeeBPS     = 7.0
	DefaultPolymarketFeeBPS = 0.0

	DefaultMaxOrderSize         = 10000.0
	DefaultMaxPositionPerMarket = 50000.0
	DefaultMaxTotalPosition     = 200000.0
	DefaultMaxOrdersPerSecond   = 10
	DefaultMaxLossPerDay        = 1000.0

	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultDBMaxConns    = 10
	DefaultDBMinConns    = 2
	DefaultBatchSize     = 1000
	DefaultFlushInterval = time.Second
	DefaultBufferSize    = 10000

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills zero-valued optional fields in place.
func (c *CoreConfig) ApplyDefaults() {
	if c.Handler.QueueSize == 0 {
		c.Handler.QueueSize = DefaultHandlerQueueSize
	}
	if c.Handler.WorkerCore == 0 {
		c.Handler.WorkerCore = -1
	}

	if c.Engine.OrderQueueSize == 0 {
		c.Engine.OrderQueueSize = DefaultOrderQueueSize
	}
	if c.Engine.ReportQueueSize == 0 {
		c.Engine.ReportQueueSize = DefaultReportQueueSize
	}
	if c.Engine.OrderWorkerCore == 0 {
		c.Engine.OrderWorkerCore = -1
	}
	if c.Engine.ReportWorkerCore == 0 {
		c.Engine.ReportWorkerCore = -1
	}

	if c.Arbitrage.MinSpreadBPS == 0 {
		c.Arbitrage.MinSpreadBPS = DefaultMinSpreadBPS
	}
	if c.Arbitrage.MinProfit == 0 {
		c.Arbitrage.MinProfit = DefaultMinProfit
	}
	if c.Arbitrage.MaxQuoteAge == 0 {
		c.Arbitrage.MaxQuoteAge = DefaultMaxQuoteAge
	}
	if c.Arbitrage.ScanInterval == 0 {
		c.Arbitrage.ScanInterval = DefaultScanInterval
	}
	if c.Arbitrage.KalshiFeeBPS == 0 {
		c.Arbitrage.KalshiFeeBPS = DefaultKalshiFeeBPS
	}

	if c.Risk.MaxOrderSize == 0 {
		c.Risk.MaxOrderSize = DefaultMaxOrderSize
	}
	if c.Risk.MaxPositionPerMarket == 0 {
		c.Risk.MaxPositionPerMarket = DefaultMaxPositionPerMarket
	}
	if c.Risk.MaxTotalPosition == 0 {
		c.Risk.MaxTotalPosition = DefaultMaxTotalPosition
	}
	if c.Risk.MaxOrdersPerSecond == 0 {
		c.Risk.MaxOrdersPerSecond = DefaultMaxOrdersPerSecond
	}
	if c.Risk.MaxLossPerDay == 0 {
		c.Risk.MaxLossPerDay = DefaultMaxLossPerDay
	}

	if c.Recorder.Database.Port == 0 {
		c.Recorder.Database.Port = DefaultDBPort
	}
	if c.Recorder.Database.SSLMode == "" {
		c.Recorder.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Recorder.Database.MaxConns == 0 {
		c.Recorder.Database.MaxConns = DefaultDBMaxConns
	}
	if c.Recorder.Database.MinConns == 0 {
		c.Recorder.Database.MinConns = DefaultDBMinConns
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

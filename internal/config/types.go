// Package config defines the option records for the trading core. All
// tunables are plain structs resolved at construction time; YAML loading
// is a convenience on top, never a requirement of the core packages.
package config

import "time"

// CoreConfig is the root configuration for the trading core.
type CoreConfig struct {
	Handler   HandlerConfig   `yaml:"handler"`
	Engine    EngineConfig    `yaml:"engine"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Risk      RiskConfig      `yaml:"risk"`
	Venues    []VenueConfig   `yaml:"venues"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// HandlerConfig tunes the market-data handler.
type HandlerConfig struct {
	QueueSize         int  `yaml:"queue_size"`          // power of two
	WorkerCore        int  `yaml:"worker_core"`         // -1 = no pinning
	MaintainFullBooks bool `yaml:"maintain_full_books"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	OrderQueueSize   int `yaml:"order_queue_size"`  // power of two
	ReportQueueSize  int `yaml:"report_queue_size"` // power of two
	OrderWorkerCore  int `yaml:"order_worker_core"`
	ReportWorkerCore int `yaml:"report_worker_core"`
	RealtimePriority int `yaml:"realtime_priority"` // 0 = off, else 1-99
}

// ArbitrageConfig tunes the detector.
type ArbitrageConfig struct {
	MinSpreadBPS     float64       `yaml:"min_spread_bps"`
	MinProfit        float64       `yaml:"min_profit"`
	MaxQuoteAge      time.Duration `yaml:"max_quote_age"`
	ScanInterval     time.Duration `yaml:"scan_interval"`
	KalshiFeeBPS     float64       `yaml:"kalshi_fee_bps"`
	PolymarketFeeBPS float64       `yaml:"polymarket_fee_bps"`
	TrackedMarkets   []string      `yaml:"tracked_markets"`
}

// RiskConfig carries the pre-trade limits.
type RiskConfig struct {
	MaxOrderSize         float64 `yaml:"max_order_size"`
	MaxPositionPerMarket float64 `yaml:"max_position_per_market"`
	MaxTotalPosition     float64 `yaml:"max_total_position"`
	MaxOrdersPerSecond   int     `yaml:"max_orders_per_second"`
	MaxLossPerDay        float64 `yaml:"max_loss_per_day"`
}

// VenueConfig describes one venue connection.
type VenueConfig struct {
	Name        string        `yaml:"name"` // "kalshi_ws", "polymarket_ws"
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	APISecret   string        `yaml:"api_secret"`
	RecvTimeout time.Duration `yaml:"recv_timeout"`
	Channels    []string      `yaml:"channels"`
}

// RecorderConfig tunes the research recorder. Disabled unless Enabled is
// set; an enabled recorder requires a database host, name and user.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig describes a Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig tunes the Prometheus exposition endpoint.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Package metrics exposes component statistics to Prometheus.
//
// Key metrics:
//   - Market data throughput, queue drops, processing latency
//   - Arbitrage scan rate, opportunity counts, theoretical profit
//   - Execution order/fill/reject counters, volume, submit latency
//   - Connection pool occupancy
//
// Collectors read each component's Stats snapshot on scrape; nothing is
// pushed from hot paths.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Divyesh-Thirukonda/quantshit/internal/arb"
	"github.com/Divyesh-Thirukonda/quantshit/internal/connection"
	"github.com/Divyesh-Thirukonda/quantshit/internal/execution"
	"github.com/Divyesh-Thirukonda/quantshit/internal/marketdata"
)

const namespace = "tradecore"

// Server collects component stats and serves the exposition endpoint.
type Server struct {
	registry *prometheus.Registry
	logger   *slog.Logger
	srv      *http.Server
}

// New creates a metrics server with an empty registry.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
}

// Registry exposes the underlying registry for extra collectors.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// ObserveHandler registers gauges over the market-data handler stats.
func (s *Server) ObserveHandler(h *marketdata.Handler) {
	s.gauge("marketdata", "quotes_received_total", "Quotes processed.", func() float64 {
		return float64(h.Stats().QuotesReceived)
	})
	s.gauge("marketdata", "trades_received_total", "Trades processed.", func() float64 {
		return float64(h.Stats().TradesReceived)
	})
	s.gauge("marketdata", "books_received_total", "Book snapshots processed.", func() float64 {
		return float64(h.Stats().BooksReceived)
	})
	s.gauge("marketdata", "queue_drops_total", "Messages dropped on a full inbound queue.", func() float64 {
		return float64(h.Stats().QueueDrops)
	})
	s.gauge("marketdata", "processing_latency_ns", "EMA of per-message processing latency.", func() float64 {
		return float64(h.Stats().AvgProcessingLatencyNS)
	})
}

// ObserveDetector registers gauges over the arbitrage detector stats.
func (s *Server) ObserveDetector(d *arb.Detector) {
	s.gauge("arb", "scans_total", "Scan loop iterations.", func() float64 {
		return float64(d.Stats().Scans)
	})
	s.gauge("arb", "opportunities_found_total", "Distinct opportunities cached.", func() float64 {
		return float64(d.Stats().OpportunitiesFound)
	})
	s.gauge("arb", "theoretical_profit", "Cumulative profit after fees of found opportunities.", func() float64 {
		return d.Stats().TotalTheoreticalProfit
	})
}

// ObserveEngine registers gauges over the execution engine stats.
func (s *Server) ObserveEngine(e *execution.Engine) {
	s.gauge("execution", "orders_submitted_total", "Orders accepted past risk.", func() float64 {
		return float64(e.Stats().OrdersSubmitted)
	})
	s.gauge("execution", "orders_filled_total", "Orders fully filled.", func() float64 {
		return float64(e.Stats().OrdersFilled)
	})
	s.gauge("execution", "orders_rejected_total", "Orders rejected pre-trade.", func() float64 {
		return float64(e.Stats().OrdersRejected)
	})
	s.gauge("execution", "volume_total", "Filled volume.", func() float64 {
		return e.Stats().TotalVolume
	})
	s.gauge("execution", "submit_latency_ns", "EMA of request-to-submit latency.", func() float64 {
		return float64(e.Stats().AvgLatencyNS)
	})
}

// ObservePool registers gauges over the connection pool.
func (s *Server) ObservePool(p *connection.Pool) {
	s.gauge("connection", "pool_size", "Connections owned by the pool.", func() float64 {
		return float64(p.Size())
	})
	s.gauge("connection", "connected", "Connections currently up.", func() float64 {
		return float64(p.ConnectedCount())
	})
}

// Serve starts the exposition endpoint in the background.
func (s *Server) Serve(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("metrics server listening", "port", port, "path", path)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Close shuts the exposition endpoint down.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *Server) gauge(subsystem, name, help string, fn func() float64) {
	s.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

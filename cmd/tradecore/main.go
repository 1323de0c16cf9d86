package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Divyesh-Thirukonda/quantshit/internal/arb"
	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/config"
	"github.com/Divyesh-Thirukonda/quantshit/internal/connection"
	"github.com/Divyesh-Thirukonda/quantshit/internal/database"
	"github.com/Divyesh-Thirukonda/quantshit/internal/execution"
	"github.com/Divyesh-Thirukonda/quantshit/internal/marketdata"
	"github.com/Divyesh-Thirukonda/quantshit/internal/metrics"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
	"github.com/Divyesh-Thirukonda/quantshit/internal/recorder"
	"github.com/Divyesh-Thirukonda/quantshit/internal/routing"
	"github.com/Divyesh-Thirukonda/quantshit/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting tradecore",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Market data pipeline.
	normalizer := protocol.NewNormalizer()

	handler, err := marketdata.NewHandler(marketdata.Config{
		WorkerCore:        cfg.Handler.WorkerCore,
		QueueSize:         cfg.Handler.QueueSize,
		MaintainFullBooks: cfg.Handler.MaintainFullBooks,
	}, logger)
	if err != nil {
		logger.Error("failed to create market data handler", "error", err)
		os.Exit(1)
	}

	// Execution pipeline.
	engine, err := execution.NewEngine(execution.Config{
		OrderWorkerCore:  cfg.Engine.OrderWorkerCore,
		ReportWorkerCore: cfg.Engine.ReportWorkerCore,
		RealtimePriority: cfg.Engine.RealtimePriority,
		OrderQueueSize:   cfg.Engine.OrderQueueSize,
		ReportQueueSize:  cfg.Engine.ReportQueueSize,
		Limits: execution.RiskLimits{
			MaxOrderSize:         cfg.Risk.MaxOrderSize,
			MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
			MaxTotalPosition:     cfg.Risk.MaxTotalPosition,
			MaxOrdersPerSecond:   cfg.Risk.MaxOrdersPerSecond,
			MaxLossPerDay:        cfg.Risk.MaxLossPerDay,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create execution engine", "error", err)
		os.Exit(1)
	}

	// Arbitrage detection over the handler's quote stream.
	arbCfg := arb.DefaultConfig()
	arbCfg.MinSpreadBPS = cfg.Arbitrage.MinSpreadBPS
	arbCfg.MinProfit = cfg.Arbitrage.MinProfit
	arbCfg.MaxQuoteAgeNS = cfg.Arbitrage.MaxQuoteAge.Nanoseconds()
	arbCfg.ScanInterval = cfg.Arbitrage.ScanInterval
	arbCfg.TrackedMarkets = cfg.Arbitrage.TrackedMarkets
	arbCfg.FeeBPS[protocol.KalshiWs] = cfg.Arbitrage.KalshiFeeBPS
	arbCfg.FeeBPS[protocol.PolymarketWs] = cfg.Arbitrage.PolymarketFeeBPS

	detector := arb.NewDetector(handler, arbCfg, logger)
	handler.SetQuoteCallback(detector.ObserveQuote)

	router := routing.NewRouter(engine, handler, routing.DefaultConfig(), logger)

	// Venue connections.
	pool := connection.NewPool(len(cfg.Venues) + 2)
	for _, venue := range cfg.Venues {
		proto := venueProtocol(venue.Name)
		if proto == protocol.Unknown {
			logger.Warn("skipping unknown venue", "name", venue.Name)
			continue
		}

		connCfg := connection.DefaultConfig()
		connCfg.Endpoint = venue.Endpoint
		connCfg.APIKey = venue.APIKey
		connCfg.APISecret = venue.APISecret
		if venue.RecvTimeout > 0 {
			connCfg.RecvTimeout = venue.RecvTimeout
		}

		conn := connection.NewWSConn(connCfg, proto, logger)
		conn.SetDataCallback(func(packet *protocol.RawPacket) {
			msg := normalizer.Normalize(packet)
			if msg == nil {
				return
			}
			if fill, ok := msg.(*protocol.OrderFill); ok {
				engine.ReconcileFill(fill)
				return
			}
			handler.OnMessage(msg)
		})
		conn.SetErrorCallback(func(code int, message string) {
			logger.Warn("venue connection error", "venue", proto, "code", code, "message", message)
		})

		if err := pool.Add(conn); err != nil {
			logger.Error("connection pool full", "venue", venue.Name)
			continue
		}
		engine.RegisterConnection(proto, conn)

		for _, channel := range venue.Channels {
			conn.Subscribe(channel, "")
		}
	}

	// Optional research recorder.
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		db, err := database.Connect(ctx, cfg.Recorder.Database)
		if err != nil {
			logger.Error("failed to connect recorder database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		rec = recorder.New(recorder.Config{
			Writer: recorder.WriterConfig{
				BatchSize:     cfg.Recorder.BatchSize,
				FlushInterval: cfg.Recorder.FlushInterval,
			},
			BufferSize: cfg.Recorder.BufferSize,
		}, db, logger)

		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
		detector.SetCallback(rec.RecordOpportunity)
	}

	// Execution reports feed routing stats and, when enabled, the
	// recorder.
	engine.SetExecutionCallback(func(report execution.ExecutionReport) {
		if order, ok := engine.GetOrder(report.OrderID); ok && report.Status.Terminal() {
			latency := clock.NowNS() - order.SubmittedNS
			router.RecordExecution(order.Venue, latency,
				report.Status == execution.Filled,
				report.Status == execution.Rejected)
		}
		if rec != nil {
			rec.RecordReport(report)
		}
	})

	// Metrics exposition.
	metricsSrv := metrics.New(logger)
	metricsSrv.ObserveHandler(handler)
	metricsSrv.ObserveDetector(detector)
	metricsSrv.ObserveEngine(engine)
	metricsSrv.ObservePool(pool)
	if cfg.Metrics.Port > 0 {
		metricsSrv.Serve(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// Bring the core up: consumers first, then the feeds.
	handler.Start()
	engine.Start()
	detector.Start()

	if err := pool.ConnectAll(); err != nil {
		logger.Warn("some venue connections failed", "error", err)
	}
	logger.Info("tradecore running",
		"venues", pool.Size(),
		"connected", pool.ConnectedCount(),
	)

	<-ctx.Done()

	// Tear down in reverse: feeds, then consumers.
	logger.Info("shutting down")
	pool.DisconnectAll()
	detector.Stop()
	engine.Stop()
	handler.Stop()

	if rec != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := rec.Stop(stopCtx); err != nil {
			logger.Warn("recorder stop failed", "error", err)
		}
	}
	metricsSrv.Close()

	logger.Info("tradecore stopped")
}

func venueProtocol(name string) protocol.Protocol {
	switch name {
	case "kalshi_ws":
		return protocol.KalshiWs
	case "kalshi_rest":
		return protocol.KalshiRest
	case "polymarket_ws":
		return protocol.PolymarketWs
	case "polymarket_rest":
		return protocol.PolymarketRest
	case "uniswap_v3":
		return protocol.UniswapV3
	case "dydx":
		return protocol.Dydx
	case "custom_dex":
		return protocol.CustomDex
	default:
		return protocol.Unknown
	}
}

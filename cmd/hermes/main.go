package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/efreitasn/hermes/internal/config"
	"github.com/efreitasn/hermes/internal/handler"
	"github.com/efreitasn/hermes/internal/journal"
	"github.com/efreitasn/hermes/internal/service"
	"github.com/efreitasn/hermes/internal/sim"
	"github.com/efreitasn/hermes/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against a running report server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to HTTP_ADDR/healthz, exit 0/1.
	if *healthcheck {
		addr := os.Getenv("HTTP_ADDR")
		if addr == "" {
			addr = ":8080"
		}
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	// SIGINT/SIGTERM stop the run between days and the report server.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Population.
	population, err := sim.NewPopulation(sim.PopulationConfig{
		NumAgents:        cfg.NumAgents,
		StartingMoney:    cfg.StartingMoney,
		MaxStartingGoods: cfg.MaxStartingGoods,
		DailyLimit:       cfg.DailyLimit,
		Seed:             cfg.Seed,
	})
	if err != nil {
		logger.Error("failed to build population", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Instantiate stores.
	agentStore := store.NewAgentStore()
	dayStore := store.NewDayStore()
	tradeStore := store.NewTradeStore()
	for _, a := range population {
		if err := agentStore.Create(a); err != nil {
			logger.Error("failed to register agent", slog.Int64("agent_id", a.ID), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	opts := []sim.Option{
		sim.WithSeed(cfg.Seed),
		sim.WithWorkers(cfg.Workers),
		sim.WithLogger(logger),
		sim.WithCheckInvariants(cfg.CheckInvariants),
		sim.WithSummarySink(dayStore),
		sim.WithTradeSink(tradeStore),
	}

	// Optional run journal.
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			logger.Error("failed to open journal", slog.String("path", cfg.JournalPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer j.Close()
		opts = append(opts, sim.WithJournal(j))
	}

	runner := sim.NewRunner(population, opts...)

	logger.Info("simulation starting",
		slog.String("agents", humanize.Comma(int64(cfg.NumAgents))),
		slog.Int("days", cfg.Days),
		slog.Float64("daily_limit", cfg.DailyLimit),
		slog.Uint64("seed", cfg.Seed),
		slog.Int("workers", cfg.Workers),
	)
	started := time.Now()

	summaries, err := runner.Run(ctx, cfg.Days)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn("simulation interrupted", slog.Int("days_completed", len(summaries)))
	case err != nil:
		logger.Error("simulation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var totalTrades int
	for _, s := range summaries {
		totalTrades += s.Trades
	}
	logger.Info("simulation finished",
		slog.Int("days", len(summaries)),
		slog.String("trades", humanize.Comma(int64(totalTrades))),
		slog.Duration("elapsed", time.Since(started)),
	)

	reportSvc := service.NewReportService(agentStore, dayStore, tradeStore)
	if cfg.TopAgents > 0 {
		top, err := reportSvc.TopAgents(min(cfg.TopAgents, 100))
		if err != nil {
			logger.Error("failed to rank agents", slog.String("error", err.Error()))
		}
		for rank, a := range top {
			logger.Info("agent",
				slog.Int("rank", rank+1),
				slog.Int64("agent_id", a.ID),
				slog.String("money", humanize.Comma(a.Money)),
				slog.String("net_worth", humanize.Comma(a.NetWorth)),
				slog.Int("trades", a.Trades),
			)
		}
	}

	if cfg.HTTPAddr == "" || ctx.Err() != nil {
		return
	}

	// Serve the run's reports until SIGINT/SIGTERM.
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.NewRouter(reportSvc, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("report server starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

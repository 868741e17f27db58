package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"powerarb/internal/arbitrage"
	"powerarb/internal/backtest"
	"powerarb/internal/collector"
	"powerarb/internal/config"
	"powerarb/internal/database"
	"powerarb/internal/model"
	"powerarb/internal/provider"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("cannot connect to database: %v", err)
	}
	defer pool.Close()

	repo := &database.PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("cannot migrate database: %v", err)
	}

	providerCfg := cfg.Providers["entsoe"]
	client, err := provider.NewClient("entsoe", logger, &providerCfg)
	if err != nil {
		log.Fatalf("cannot create provider: %v", err)
	}

	coll := collector.New(logger, client, repo, cfg.Collector.Countries, cfg.Collector.Schedule, cfg.Backtest.ModelVersion)

	// Optional intraday feed: streamed ticks upsert the home-market curve
	// between scheduled collections.
	if cfg.Collector.StreamURL != "" {
		stream := provider.NewStreamClient(logger, cfg.Collector.StreamURL)
		points := make(chan model.PricePoint, 64)
		go func() {
			if err := stream.StartStream(ctx, points, collector.HomeCountry); err != nil {
				logger.Error("price stream stopped", "error", err)
			}
		}()
		go func() {
			if err := coll.ConsumeStream(ctx, points, "stream"); err != nil {
				logger.Error("stream consumer stopped", "error", err)
			}
		}()
	}

	// One analysis pass on startup, then the collector keeps the repository
	// fed until shutdown.
	runAnalysis(ctx, logger, &cfg, repo, coll)

	if err := coll.Run(ctx); err != nil {
		logger.Error("collector stopped", "error", err)
	}
}

func runAnalysis(ctx context.Context, logger *slog.Logger, cfg *config.Config, repo database.Repository, coll *collector.Collector) {
	inter := arbitrage.InterconnectionsFromConfig(cfg.Links)
	if len(inter) == 0 {
		inter = arbitrage.DefaultInterconnections()
	}
	engine := arbitrage.NewEngine(logger, inter, &cfg.Arbitrage)

	now := time.Now()
	curves, err := coll.FetchAll(ctx, now, now.Add(48*time.Hour))
	if err != nil {
		logger.Error("fetching price curves failed", "error", err)
		return
	}

	opportunities := engine.CalculateAll(curves)
	logger.Info("arbitrage scan complete", "opportunities", len(opportunities))

	if best, ok := engine.BestOpportunity(); ok {
		logger.Info("best opportunity",
			"from", best.From,
			"to", best.To,
			"timestamp", best.Timestamp,
			"netSpread", best.NetSpread,
			"totalGain", best.TotalGain,
			"score", best.Score,
		)
		if err := repo.LogOpportunity(ctx, best); err != nil {
			logger.Error("failed to log opportunity", "error", err)
		}
	}

	margin := engine.PotentialMargin(48)
	logger.Info("potential margin over 48h",
		"totalMargin", margin.TotalMargin,
		"count", margin.Count,
		"avgMargin", margin.AvgMargin,
	)

	timeline, err := repo.UnifiedTimeline(ctx, time.Duration(cfg.Backtest.Days)*24*time.Hour, 0)
	if err != nil {
		logger.Error("loading unified timeline failed", "error", err)
		return
	}

	replayer := backtest.NewReplayer(logger)
	report := replayer.Run(backtest.RowsFromTimeline(timeline))
	if !report.Available {
		logger.Info("backtest unavailable", "reason", report.Message)
		return
	}
	logger.Info("backtest results",
		"days", report.TotalDays,
		"totalPnL", report.TotalPnL,
		"winRate", report.WinRate,
		"sharpe", report.SharpeRatio,
		"actionSuccessRate", report.ActionSuccessRate,
	)

	// Benchmark the recorded predictions against the naive baseline on the
	// same window.
	baseline := replayer.RunSplit(backtest.PersistenceSamples(timeline), backtest.Persistence{}, cfg.Backtest.MLTestSize)
	if !baseline.Available {
		logger.Info("baseline retrodiction unavailable", "reason", baseline.Message)
		return
	}
	logger.Info("baseline retrodiction results",
		"days", baseline.TotalDays,
		"totalPnL", baseline.TotalPnL,
		"winRate", baseline.WinRate,
	)
}

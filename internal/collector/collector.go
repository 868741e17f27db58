// Package collector keeps the price repository fed from the upstream
// provider on a fixed schedule.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"powerarb/internal/database"
	"powerarb/internal/model"
	"powerarb/internal/provider"
)

// HomeCountry is the market whose realized prices are tracked for accuracy
// and backtesting. Other countries are only fetched for arbitrage.
const HomeCountry = "FR"

// Collector periodically pulls day-ahead prices and stores the home-market
// curve in the repository.
type Collector struct {
	logger       *slog.Logger
	client       provider.Client
	repo         database.Repository
	countries    []string
	schedule     string
	modelVersion string
}

// New creates a Collector fetching the given countries on a cron schedule.
// modelVersion tags the stored forward curve in the prediction log.
func New(logger *slog.Logger, client provider.Client, repo database.Repository, countries []string, schedule, modelVersion string) *Collector {
	return &Collector{
		logger:       logger,
		client:       client,
		repo:         repo,
		countries:    countries,
		schedule:     schedule,
		modelVersion: modelVersion,
	}
}

// Run schedules the collection loop and blocks until the context is
// cancelled. One collection runs immediately on startup.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.Collect(ctx); err != nil {
		c.logger.Error("Collector: initial collection failed", "error", err)
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(c.schedule, func() {
		if err := c.Collect(ctx); err != nil {
			c.logger.Error("Collector: scheduled collection failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("collector: bad schedule %q: %w", c.schedule, err)
	}

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	c.logger.Info("Collector: stopped")
	return nil
}

// Collect stores the last day of realized home-market prices.
func (c *Collector) Collect(ctx context.Context) error {
	now := time.Now()
	series, err := c.client.FetchDayAhead(ctx, HomeCountry, now.Add(-24*time.Hour), now)
	if err != nil {
		return fmt.Errorf("collector: fetch %s: %w", HomeCountry, err)
	}

	prices := make([]model.ActualPrice, len(series))
	for i, point := range series {
		prices[i] = model.ActualPrice{
			Timestamp: point.Timestamp,
			Price:     point.Price,
			Source:    c.client.Name(),
		}
	}
	if err := c.repo.StoreActualPrices(ctx, prices); err != nil {
		return fmt.Errorf("collector: store %s: %w", HomeCountry, err)
	}
	c.logger.Info("Collector: stored realized prices", "country", HomeCountry, "hours", len(prices))

	// Record the published forward curve as the prediction of each delivery
	// hour, so the unified timeline can score it once the hour is realized.
	forward, err := c.client.FetchDayAhead(ctx, HomeCountry, now, now.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("collector: fetch %s forward curve: %w", HomeCountry, err)
	}
	recs := make([]model.PredictionRecord, len(forward))
	for i, point := range forward {
		recs[i] = model.PredictionRecord{
			PredictionTime: now,
			TargetTime:     point.Timestamp,
			Predicted:      point.Price,
			ModelVersion:   c.modelVersion,
		}
	}
	if err := c.repo.StorePredictions(ctx, recs); err != nil {
		return fmt.Errorf("collector: store %s forward curve: %w", HomeCountry, err)
	}
	c.logger.Info("Collector: stored forward curve", "country", HomeCountry, "hours", len(recs), "modelVersion", c.modelVersion)
	return nil
}

// ConsumeStream drains intraday price points for the home market into the
// repository until the channel closes or the context is cancelled. Each
// point upserts the hour it belongs to, so a revised price wins.
func (c *Collector) ConsumeStream(ctx context.Context, points <-chan model.PricePoint, source string) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Collector: stream consumer stopped")
			return nil
		case point, ok := <-points:
			if !ok {
				return nil
			}
			price := model.ActualPrice{
				Timestamp: point.Timestamp,
				Price:     point.Price,
				Source:    source,
			}
			if err := c.repo.StoreActualPrices(ctx, []model.ActualPrice{price}); err != nil {
				c.logger.Error("Collector: failed to store streamed price", "error", err)
			}
		}
	}
}

// FetchAll pulls the price curves of every configured country concurrently.
// Countries the provider cannot serve are logged and skipped; the fetch only
// fails when the context is cancelled.
func (c *Collector) FetchAll(ctx context.Context, from, to time.Time) (map[string]model.PriceSeries, error) {
	var mu sync.Mutex
	curves := make(map[string]model.PriceSeries, len(c.countries))

	group, gctx := errgroup.WithContext(ctx)
	for _, country := range c.countries {
		group.Go(func() error {
			series, err := c.client.FetchDayAhead(gctx, country, from, to)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("Collector: fetch failed, skipping country", "country", country, "error", err)
				return nil
			}
			mu.Lock()
			curves[country] = series
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("collector: fetch all: %w", err)
	}
	return curves, nil
}

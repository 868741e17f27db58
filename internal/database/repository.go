package database

import (
	"context"
	"time"

	"powerarb/internal/model"
)

// Repository defines the standard interface for database operations.
type Repository interface {
	Migrate(ctx context.Context) error
	StorePredictions(ctx context.Context, recs []model.PredictionRecord) error
	StoreActualPrices(ctx context.Context, prices []model.ActualPrice) error
	UnifiedTimeline(ctx context.Context, lookback, lookahead time.Duration) ([]model.TimelinePoint, error)
	LogOpportunity(ctx context.Context, opp model.Opportunity) error
}

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"powerarb/internal/model"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	Pool *pgxpool.Pool

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (r *PostgresRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Migrate creates the tables and indexes if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			prediction_timestamp TIMESTAMPTZ NOT NULL,
			target_timestamp TIMESTAMPTZ NOT NULL,
			predicted_price NUMERIC(20, 8) NOT NULL,
			confidence_lower NUMERIC(20, 8),
			confidence_upper NUMERIC(20, 8),
			model_version VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_target ON predictions(target_timestamp)`,
		`CREATE TABLE IF NOT EXISTS actual_prices (
			timestamp TIMESTAMPTZ PRIMARY KEY,
			price NUMERIC(20, 8) NOT NULL,
			source VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS opportunities (
			id BIGSERIAL PRIMARY KEY,
			from_country VARCHAR(10) NOT NULL,
			to_country VARCHAR(10) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			buy_price NUMERIC(20, 8) NOT NULL,
			sell_price NUMERIC(20, 8) NOT NULL,
			gross_spread NUMERIC(20, 8) NOT NULL,
			transport_cost NUMERIC(20, 8) NOT NULL,
			net_spread NUMERIC(20, 8) NOT NULL,
			volume_mwh NUMERIC(20, 8) NOT NULL,
			total_gain_eur NUMERIC(20, 8) NOT NULL,
			score NUMERIC(5, 1) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// StorePredictions appends prediction records. Re-predicting the same target
// hour inserts a new row; UnifiedTimeline resolves to the latest one.
func (r *PostgresRepository) StorePredictions(ctx context.Context, recs []model.PredictionRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(
			`INSERT INTO predictions (prediction_timestamp, target_timestamp, predicted_price, confidence_lower, confidence_upper, model_version)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.PredictionTime, rec.TargetTime, rec.Predicted, rec.ConfidenceLow, rec.ConfidenceHigh, rec.ModelVersion,
		)
	}
	if err := r.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store predictions: %w", err)
	}
	return nil
}

// StoreActualPrices upserts realized prices keyed by timestamp.
func (r *PostgresRepository) StoreActualPrices(ctx context.Context, prices []model.ActualPrice) error {
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(
			`INSERT INTO actual_prices (timestamp, price, source) VALUES ($1, $2, $3)
			 ON CONFLICT (timestamp) DO UPDATE SET price = EXCLUDED.price, source = EXCLUDED.source`,
			p.Timestamp, p.Price, p.Source,
		)
	}
	if err := r.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store actual prices: %w", err)
	}
	return nil
}

// LogOpportunity records one calculated arbitrage opportunity.
func (r *PostgresRepository) LogOpportunity(ctx context.Context, opp model.Opportunity) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO opportunities (from_country, to_country, timestamp, buy_price, sell_price, gross_spread, transport_cost, net_spread, volume_mwh, total_gain_eur, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		opp.From, opp.To, opp.Timestamp, opp.BuyPrice, opp.SellPrice,
		opp.GrossSpread, opp.TransportCost, opp.NetSpread, opp.Volume, opp.TotalGain, opp.Score,
	)
	if err != nil {
		return fmt.Errorf("log opportunity: %w", err)
	}
	return nil
}

// UnifiedTimeline assembles past hours (realized price joined with the
// latest prediction that had been recorded for that hour) and future hours
// (the latest forward prediction per target hour), ordered by timestamp.
func (r *PostgresRepository) UnifiedTimeline(ctx context.Context, lookback, lookahead time.Duration) ([]model.TimelinePoint, error) {
	now := r.now()
	start := now.Add(-lookback)
	end := now.Add(lookahead)

	points := make(map[time.Time]*model.TimelinePoint)

	rows, err := r.Pool.Query(ctx,
		`SELECT timestamp, price FROM actual_prices
		 WHERE timestamp >= $1 AND timestamp <= $2
		 ORDER BY timestamp`,
		start, now,
	)
	if err != nil {
		return nil, fmt.Errorf("unified timeline: actual prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts time.Time
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("unified timeline: scan actual price: %w", err)
		}
		points[ts.UTC()] = &model.TimelinePoint{Timestamp: ts, ActualPrice: &price}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unified timeline: actual prices: %w", err)
	}

	// Latest prediction recorded per past target hour. Only hours with a
	// realized price can carry a historical prediction.
	histRows, err := r.Pool.Query(ctx,
		`SELECT DISTINCT ON (target_timestamp) target_timestamp, predicted_price
		 FROM predictions
		 WHERE target_timestamp >= $1 AND target_timestamp <= $2
		 ORDER BY target_timestamp, prediction_timestamp DESC`,
		start, now,
	)
	if err != nil {
		return nil, fmt.Errorf("unified timeline: historical predictions: %w", err)
	}
	defer histRows.Close()
	for histRows.Next() {
		var ts time.Time
		var predicted float64
		if err := histRows.Scan(&ts, &predicted); err != nil {
			return nil, fmt.Errorf("unified timeline: scan historical prediction: %w", err)
		}
		if point, ok := points[ts.UTC()]; ok {
			point.HistoricalPredicted = &predicted
		}
	}
	if err := histRows.Err(); err != nil {
		return nil, fmt.Errorf("unified timeline: historical predictions: %w", err)
	}

	futureRows, err := r.Pool.Query(ctx,
		`SELECT DISTINCT ON (target_timestamp) target_timestamp, predicted_price
		 FROM predictions
		 WHERE target_timestamp > $1 AND target_timestamp <= $2
		 ORDER BY target_timestamp, prediction_timestamp DESC`,
		now, end,
	)
	if err != nil {
		return nil, fmt.Errorf("unified timeline: future predictions: %w", err)
	}
	defer futureRows.Close()
	for futureRows.Next() {
		var ts time.Time
		var predicted float64
		if err := futureRows.Scan(&ts, &predicted); err != nil {
			return nil, fmt.Errorf("unified timeline: scan future prediction: %w", err)
		}
		points[ts.UTC()] = &model.TimelinePoint{
			Timestamp:      ts,
			PredictedPrice: &predicted,
			IsFuture:       true,
		}
	}
	if err := futureRows.Err(); err != nil {
		return nil, fmt.Errorf("unified timeline: future predictions: %w", err)
	}

	timeline := make([]model.TimelinePoint, 0, len(points))
	for _, point := range points {
		timeline = append(timeline, *point)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Timestamp.Before(timeline[j].Timestamp)
	})
	return timeline, nil
}

package model

import "time"

// PricePoint represents a single hourly price observation for one market.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// PriceSeries is an hourly price curve for one country, with unique,
// ascending timestamps.
type PriceSeries []PricePoint

// Opportunity represents a profitable cross-border trade at one hour.
type Opportunity struct {
	From          string
	To            string
	Timestamp     time.Time
	BuyPrice      float64
	SellPrice     float64
	GrossSpread   float64
	TransportCost float64
	NetSpread     float64
	Volume        float64
	TotalGain     float64
	Score         float64
}

// PredictionRecord represents one stored model prediction for a target hour.
type PredictionRecord struct {
	ID             int64     `db:"id"`
	PredictionTime time.Time `db:"prediction_timestamp"`
	TargetTime     time.Time `db:"target_timestamp"`
	Predicted      float64   `db:"predicted_price"`
	ConfidenceLow  *float64  `db:"confidence_lower"`
	ConfidenceHigh *float64  `db:"confidence_upper"`
	ModelVersion   string    `db:"model_version"`
}

// ActualPrice represents one realized day-ahead price observation.
type ActualPrice struct {
	Timestamp time.Time `db:"timestamp"`
	Price     float64   `db:"price"`
	Source    string    `db:"source"`
}

/// TimelinePoint is one hour of the unified timeline: the realized price,
// the latest prediction that was recorded for that hour before it passed,
// and the current forward prediction. Nil means no value is known.
type TimelinePoint struct {
	Timestamp           time.Time
	ActualPrice         *float64
	PredictedPrice      *float64
	HistoricalPredicted *float64
	IsFuture            bool
}

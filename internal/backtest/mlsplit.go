package backtest

import (
	"fmt"
	"time"

	"powerarb/internal/model"
)

// Minimum sample count for the retrodiction variant, which must leave room
// for a meaningful train/test split.
const minSamples = 100

// Predictor is a trained price model. Training is out of scope here; the
// replayer only needs point predictions over the held-out window.
type Predictor interface {
	Predict(features []float64) float64
}

// Sample is one hour of the full historical feature table.
type Sample struct {
	Timestamp time.Time
	Actual    float64
	Features  []float64
}

// Persistence is the naive day-ahead baseline: the forecast for an hour is
// the realized price 24 hours earlier. It stands in when no trained model
// is configured.
type Persistence struct{}

func (Persistence) Predict(features []float64) float64 { return features[0] }

// PersistenceSamples builds the feature table for the Persistence baseline
// from a unified timeline: one sample per realized hour whose same hour of
// the previous day is also realized.
func PersistenceSamples(points []model.TimelinePoint) []Sample {
	realized := make(map[time.Time]float64, len(points))
	for _, p := range points {
		if p.ActualPrice != nil {
			realized[p.Timestamp.UTC()] = *p.ActualPrice
		}
	}

	var samples []Sample
	for _, p := range points {
		if p.ActualPrice == nil {
			continue
		}
		lagged, ok := realized[p.Timestamp.UTC().Add(-24*time.Hour)]
		if !ok {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: p.Timestamp,
			Actual:    *p.ActualPrice,
			Features:  []float64{lagged},
		})
	}
	return samples
}

// RunSplit replays the strategy over the held-out tail of the sample table.
// The split is temporal, never random, so the model is only ever evaluated
// on hours after its training window. testSize is the held-out fraction.
func (r *Replayer) RunSplit(samples []Sample, p Predictor, testSize float64) Report {
	if len(samples) < minSamples {
		return unavailable(fmt.Sprintf("only %dh of data, need at least %dh for a train/test split", len(samples), minSamples))
	}

	splitIdx := int(float64(len(samples)) * (1 - testSize))
	test := samples[splitIdx:]
	if len(test) < minHours {
		return unavailable(fmt.Sprintf("test window too small (%dh), need at least %dh", len(test), minHours))
	}

	rows := make([]Row, len(test))
	for i, sample := range test {
		rows[i] = Row{
			Timestamp: sample.Timestamp,
			Predicted: p.Predict(sample.Features),
			Actual:    sample.Actual,
		}
	}

	r.logger.Debug("Replayer: retrodiction split",
		"train", splitIdx,
		"test", len(test),
	)
	return r.Run(rows)
}

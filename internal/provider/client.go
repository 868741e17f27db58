package provider

import (
	"context"
	"time"

	"powerarb/internal/model"
)

// Client defines the standard interface for day-ahead price providers.
type Client interface {
	Name() string
	FetchDayAhead(ctx context.Context, country string, from, to time.Time) (model.PriceSeries, error)
}

package collector

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"powerarb/internal/model"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) FetchDayAhead(ctx context.Context, country string, from, to time.Time) (model.PriceSeries, error) {
	args := m.Called(ctx, country, from, to)
	series, _ := args.Get(0).(model.PriceSeries)
	return series, args.Error(1)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) StorePredictions(ctx context.Context, recs []model.PredictionRecord) error {
	args := m.Called(ctx, recs)
	return args.Error(0)
}

func (m *MockRepository) StoreActualPrices(ctx context.Context, prices []model.ActualPrice) error {
	args := m.Called(ctx, prices)
	return args.Error(0)
}

func (m *MockRepository) UnifiedTimeline(ctx context.Context, lookback, lookahead time.Duration) ([]model.TimelinePoint, error) {
	args := m.Called(ctx, lookback, lookahead)
	points, _ := args.Get(0).([]model.TimelinePoint)
	return points, args.Error(1)
}

func (m *MockRepository) LogOpportunity(ctx context.Context, opp model.Opportunity) error {
	args := m.Called(ctx, opp)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestCollector_Collect(t *testing.T) {
	series := model.PriceSeries{
		{Timestamp: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Price: 61.5},
		{Timestamp: time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), Price: 58.0},
	}

	mockProvider := new(MockProvider)
	mockRepo := new(MockRepository)
	// One fetch for the realized day, one for the forward curve
	mockProvider.On("FetchDayAhead", mock.Anything, HomeCountry, mock.Anything, mock.Anything).Return(series, nil).Twice()
	mockRepo.On("StoreActualPrices", mock.Anything, mock.MatchedBy(func(prices []model.ActualPrice) bool {
		return len(prices) == 2 && prices[0].Price == 61.5 && prices[0].Source == "mock"
	})).Return(nil).Once()
	mockRepo.On("StorePredictions", mock.Anything, mock.MatchedBy(func(recs []model.PredictionRecord) bool {
		return len(recs) == 2 && recs[0].Predicted == 61.5 && recs[0].ModelVersion == "day-ahead-v1"
	})).Return(nil).Once()

	coll := New(testLogger(), mockProvider, mockRepo, []string{"FR", "DE"}, "5 * * * *", "day-ahead-v1")
	err := coll.Collect(context.Background())
	require.NoError(t, err)

	mockProvider.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestCollector_Collect_FetchFailure(t *testing.T) {
	mockProvider := new(MockProvider)
	mockRepo := new(MockRepository)
	mockProvider.On("FetchDayAhead", mock.Anything, HomeCountry, mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream down")).Once()

	coll := New(testLogger(), mockProvider, mockRepo, []string{"FR"}, "5 * * * *", "day-ahead-v1")
	err := coll.Collect(context.Background())
	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "StoreActualPrices")
}

func TestCollector_FetchAll(t *testing.T) {
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	series := model.PriceSeries{{Timestamp: from, Price: 70}}

	mockProvider := new(MockProvider)
	mockRepo := new(MockRepository)
	mockProvider.On("FetchDayAhead", mock.Anything, "FR", from, to).Return(series, nil).Once()
	mockProvider.On("FetchDayAhead", mock.Anything, "DE", from, to).Return(series, nil).Once()
	// A failing country is skipped, not fatal
	mockProvider.On("FetchDayAhead", mock.Anything, "ES", from, to).Return(nil, errors.New("no data")).Once()

	coll := New(testLogger(), mockProvider, mockRepo, []string{"FR", "DE", "ES"}, "5 * * * *", "day-ahead-v1")
	curves, err := coll.FetchAll(context.Background(), from, to)
	require.NoError(t, err)

	assert.Len(t, curves, 2)
	assert.Contains(t, curves, "FR")
	assert.Contains(t, curves, "DE")
	assert.NotContains(t, curves, "ES")
	mockProvider.AssertExpectations(t)
}

func TestCollector_ConsumeStream(t *testing.T) {
	mockProvider := new(MockProvider)
	mockRepo := new(MockRepository)

	point := model.PricePoint{Timestamp: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), Price: 64.2}
	mockRepo.On("StoreActualPrices", mock.Anything, mock.MatchedBy(func(prices []model.ActualPrice) bool {
		return len(prices) == 1 && prices[0].Price == 64.2 && prices[0].Source == "stream"
	})).Return(nil).Once()

	points := make(chan model.PricePoint, 1)
	points <- point
	close(points)

	coll := New(testLogger(), mockProvider, mockRepo, []string{"FR"}, "5 * * * *", "day-ahead-v1")
	err := coll.ConsumeStream(context.Background(), points, "stream")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"BitcoinSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lastValueEstimator repeats the final observation, like a random-walk forecast.
type lastValueEstimator struct {
	calls  int
	values []float64
}

func (e *lastValueEstimator) Name() string { return "last-value" }

func (e *lastValueEstimator) Predict(_ context.Context, values []float64, _ model.Order, steps int) ([]float64, error) {
	e.calls++
	e.values = values
	out := make([]float64, steps)
	for i := range out {
		out[i] = values[len(values)-1]
	}
	return out, nil
}

type stubEstimator struct {
	out []float64
	err error
}

func (e stubEstimator) Name() string { return "stub" }

func (e stubEstimator) Predict(context.Context, []float64, model.Order, int) ([]float64, error) {
	return e.out, e.err
}

func series(t *testing.T, n int) model.PriceSeries {
	t.Helper()
	start := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, n)
	for i := range points {
		points[i] = model.PricePoint{Timestamp: start.AddDate(0, 0, i), Price: 40000 + float64(i)*25}
	}
	s, err := model.NewPriceSeries(points)
	require.NoError(t, err)
	return s
}

func TestForecast_ContiguousDailyTimestamps(t *testing.T) {
	s := series(t, 20)
	est := &lastValueEstimator{}
	f := NewForecaster(est, DefaultOrder)

	for _, h := range []int{1, 7, 30} {
		points, err := f.Forecast(context.Background(), s, h)
		require.NoError(t, err)
		require.Len(t, points, h)

		last, _ := s.Last()
		assert.Equal(t, last.Timestamp.AddDate(0, 0, 1), points[0].Timestamp)
		for i := 1; i < len(points); i++ {
			assert.Equal(t, points[i-1].Timestamp.AddDate(0, 0, 1), points[i].Timestamp)
			assert.True(t, points[i].Timestamp.After(points[i-1].Timestamp))
		}
		assert.Equal(t, last.Price, points[h-1].Predicted)
	}
	assert.Equal(t, s.Prices(), est.values)
}

func TestForecast_CrossesYearBoundary(t *testing.T) {
	s := series(t, 12) // ends 2024-12-31
	points, err := NewForecaster(&lastValueEstimator{}, DefaultOrder).Forecast(context.Background(), s, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), points[1].Timestamp)
}

func TestForecast_InvalidHorizon(t *testing.T) {
	est := &lastValueEstimator{}
	f := NewForecaster(est, DefaultOrder)
	for _, h := range []int{0, -3} {
		_, err := f.Forecast(context.Background(), series(t, 20), h)
		assert.ErrorIs(t, err, model.ErrInvalidArgument)
	}
	assert.Zero(t, est.calls)
}

func TestForecast_InsufficientData(t *testing.T) {
	est := &lastValueEstimator{}
	f := NewForecaster(est, DefaultOrder)

	_, err := f.Forecast(context.Background(), series(t, 6), 5)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.Zero(t, est.calls)

	_, err = f.Forecast(context.Background(), series(t, 7), 5)
	assert.NoError(t, err)
}

func TestForecast_EstimatorFailures(t *testing.T) {
	s := series(t, 20)
	boom := errors.New("singular matrix")

	_, err := NewForecaster(stubEstimator{err: boom}, DefaultOrder).Forecast(context.Background(), s, 3)
	assert.ErrorIs(t, err, boom)

	_, err = NewForecaster(stubEstimator{out: []float64{1, 2}}, DefaultOrder).Forecast(context.Background(), s, 3)
	assert.Error(t, err)
}

func TestFutureDates(t *testing.T) {
	last := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	dates := FutureDates(last, 3)
	assert.Equal(t, []time.Time{
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}, dates)
}

func TestARIMAEstimator_ReturnsRequestedSteps(t *testing.T) {
	values := make([]float64, 120)
	for i := range values {
		values[i] = 30000 + float64(i)*40 + float64((i*7)%11)*15
	}
	est := NewARIMAEstimator()
	predicted, err := est.Predict(context.Background(), values, DefaultOrder, 10)
	require.NoError(t, err)
	assert.Len(t, predicted, 10)
}

func TestARIMAEstimator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewARIMAEstimator().Predict(ctx, []float64{1, 2, 3, 4, 5, 6, 7, 8}, DefaultOrder, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

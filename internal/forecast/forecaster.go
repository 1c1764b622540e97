package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"BitcoinSentinel/internal/model"
)

// DefaultOrder is ARIMA(5,1,0).
var DefaultOrder = model.Order{P: 5, D: 1, Q: 0}

// DefaultHorizon is the number of days forecast when none is configured.
const DefaultHorizon = 30

// Estimator produces point predictions for the next steps values of a series.
type Estimator interface {
	Predict(ctx context.Context, values []float64, order model.Order, steps int) ([]float64, error)
	Name() string
}

// Forecaster validates input, delegates prediction to an Estimator and dates the result.
type Forecaster struct {
	Estimator Estimator
	Order     model.Order
}

// NewForecaster creates a Forecaster with the given estimator and order.
func NewForecaster(est Estimator, order model.Order) *Forecaster {
	return &Forecaster{Estimator: est, Order: order}
}

// Forecast predicts horizon daily prices following the last observation of s.
func (f *Forecaster) Forecast(ctx context.Context, s model.PriceSeries, horizon int) ([]model.ForecastPoint, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", model.ErrInvalidArgument, horizon)
	}
	if f.Order.P < 0 || f.Order.D < 0 || f.Order.Q < 0 {
		return nil, fmt.Errorf("%w: negative ARIMA order %+v", model.ErrInvalidArgument, f.Order)
	}
	if s.Len() <= f.Order.Sum() {
		return nil, fmt.Errorf("%w: ARIMA(%d,%d,%d) needs more than %d observations, have %d",
			model.ErrInsufficientData, f.Order.P, f.Order.D, f.Order.Q, f.Order.Sum(), s.Len())
	}

	predicted, err := f.Estimator.Predict(ctx, s.Prices(), f.Order, horizon)
	if err != nil {
		return nil, fmt.Errorf("%s estimator: %w", f.Estimator.Name(), err)
	}
	if len(predicted) != horizon {
		return nil, fmt.Errorf("%s estimator returned %d predictions, want %d", f.Estimator.Name(), len(predicted), horizon)
	}

	last, _ := s.Last()
	dates := FutureDates(last.Timestamp, horizon)
	out := make([]model.ForecastPoint, horizon)
	for i, v := range predicted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s estimator returned non-finite prediction at step %d", f.Estimator.Name(), i+1)
		}
		out[i] = model.ForecastPoint{Timestamp: dates[i], Predicted: v}
	}
	return out, nil
}

// FutureDates returns n consecutive days starting the day after last.
func FutureDates(last time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = last.AddDate(0, 0, i+1)
	}
	return out
}

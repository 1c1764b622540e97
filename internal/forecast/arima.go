package forecast

import (
	"context"
	"fmt"

	"BitcoinSentinel/internal/model"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/timeseries"
)

// ARIMAEstimator fits an ARIMA model with goarima on every call.
type ARIMAEstimator struct{}

// NewARIMAEstimator creates the goarima-backed estimator.
func NewARIMAEstimator() *ARIMAEstimator { return &ARIMAEstimator{} }

func (e *ARIMAEstimator) Name() string { return "arima" }

// Predict fits ARIMA(p,d,q) to values and returns the next steps point forecasts.
func (e *ARIMAEstimator) Predict(ctx context.Context, values []float64, order model.Order, steps int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	series := timeseries.New(append([]float64(nil), values...))
	m := arima.New(order.P, order.D, order.Q)
	if err := m.Fit(series); err != nil {
		return nil, fmt.Errorf("fit ARIMA(%d,%d,%d): %w", order.P, order.D, order.Q, err)
	}
	predicted, err := m.Predict(steps)
	if err != nil {
		return nil, fmt.Errorf("predict %d steps: %w", steps, err)
	}
	return predicted, nil
}

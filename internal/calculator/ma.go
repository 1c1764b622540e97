package calculator

import (
	"fmt"
	"math"

	"BitcoinSentinel/internal/model"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// MovingAverage computes the trailing simple moving average of the price column.
// The first window-1 entries are undefined. talib keeps a running sum, so a
// window following a value many orders of magnitude larger loses precision;
// price series do not come close to that.
func MovingAverage(s model.PriceSeries, window int) (model.RollingStat, error) {
	return trailingMean(s, window, "Moving_Avg")
}

// RollingMean is MovingAverage reported under the rolling-mean column name.
func RollingMean(s model.PriceSeries, window int) (model.RollingStat, error) {
	return trailingMean(s, window, "Rolling_Mean")
}

func trailingMean(s model.PriceSeries, window int, name string) (model.RollingStat, error) {
	if err := checkWindow(s, window); err != nil {
		return model.RollingStat{}, err
	}
	values := talib.Sma(s.Prices(), window)
	for i := 0; i < window-1; i++ {
		values[i] = math.NaN()
	}
	return model.RollingStat{
		Name:       name,
		Window:     window,
		Timestamps: s.Timestamps(),
		Values:     values,
	}, nil
}

// RollingStd computes the trailing sample standard deviation (ddof = 1).
// A window of 1 leaves every entry undefined.
func RollingStd(s model.PriceSeries, window int) (model.RollingStat, error) {
	if err := checkWindow(s, window); err != nil {
		return model.RollingStat{}, err
	}
	prices := s.Prices()
	values := make([]float64, len(prices))
	for i := range values {
		if i < window-1 || window < 2 {
			values[i] = math.NaN()
			continue
		}
		values[i] = stat.StdDev(prices[i-window+1:i+1], nil)
	}
	return model.RollingStat{
		Name:       "Rolling_Std",
		Window:     window,
		Timestamps: s.Timestamps(),
		Values:     values,
	}, nil
}

func checkWindow(s model.PriceSeries, window int) error {
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", model.ErrInvalidArgument, window)
	}
	if window > s.Len() {
		return fmt.Errorf("%w: window %d exceeds series length %d", model.ErrInvalidArgument, window, s.Len())
	}
	return nil
}

package calculator

import (
	"fmt"

	"BitcoinSentinel/internal/model"

	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
)

// DefaultSeasonalPeriod is one week of daily observations.
const DefaultSeasonalPeriod = 7

// Decompose splits the price column into trend, seasonal and residual parts
// using goarima's classical additive decomposition. Trend and residual are
// undefined for the period/2 observations at each end.
func Decompose(s model.PriceSeries, period int) (model.Decomposition, error) {
	if period < 2 {
		return model.Decomposition{}, fmt.Errorf("%w: period must be at least 2, got %d", model.ErrInvalidArgument, period)
	}
	if s.Len() < 2*period {
		return model.Decomposition{}, fmt.Errorf("%w: decomposition needs %d observations, have %d",
			model.ErrInsufficientData, 2*period, s.Len())
	}

	res := stats.Decompose(timeseries.New(s.Prices()), period, "additive")
	if res == nil {
		return model.Decomposition{}, fmt.Errorf("%w: decomposition with period %d failed", model.ErrInsufficientData, period)
	}

	ts := s.Timestamps()
	stat := func(name string, v *timeseries.Series) model.RollingStat {
		return model.RollingStat{Name: name, Window: period, Centered: true, Timestamps: ts, Values: v.Values}
	}
	return model.Decomposition{
		Period:   period,
		Trend:    stat("Trend", res.Trend),
		Seasonal: stat("Seasonal", res.Seasonal),
		Residual: stat("Residual", res.Residual),
	}, nil
}

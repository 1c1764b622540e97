package anomaly

import (
	"fmt"
	"math"

	"BitcoinSentinel/internal/calculator"
	"BitcoinSentinel/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Threshold presets for the z-score policy.
const (
	ThresholdSensitive    = 2.0
	ThresholdConservative = 3.0
)

// DefaultRollingWindow is the trailing window of the rolling z-score variant.
const DefaultRollingWindow = 30

// ZScores returns (price - μ) / σ over the whole series, with population μ and σ.
// A constant series (σ = 0) yields all-undefined scores.
func ZScores(s model.PriceSeries) model.RollingStat {
	prices := s.Prices()
	out := model.RollingStat{Name: "Z_Score", Window: len(prices), Timestamps: s.Timestamps(), Values: make([]float64, len(prices))}
	if len(prices) == 0 {
		return out
	}

	mu, sigma := stat.PopMeanStdDev(prices, nil)
	if sigma == 0 || constant(prices) {
		for i := range out.Values {
			out.Values[i] = math.NaN()
		}
		return out
	}
	for i, p := range prices {
		out.Values[i] = (p - mu) / sigma
	}
	return out
}

// RollingZScores scores each price against the trailing window's mean and sample std.
// Positions without a full window or with zero spread are undefined.
func RollingZScores(s model.PriceSeries, window int) (model.RollingStat, error) {
	mean, err := calculator.RollingMean(s, window)
	if err != nil {
		return model.RollingStat{}, err
	}
	std, err := calculator.RollingStd(s, window)
	if err != nil {
		return model.RollingStat{}, err
	}
	out := model.RollingStat{Name: "Z_Score", Window: window, Timestamps: s.Timestamps(), Values: make([]float64, s.Len())}
	for i, p := range s.Points {
		if !mean.Defined(i) || !std.Defined(i) || std.Values[i] == 0 {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = (p.Price - mean.Values[i]) / std.Values[i]
	}
	return out, nil
}

// FlagZScores marks every defined score whose magnitude exceeds threshold.
func FlagZScores(z model.RollingStat, threshold float64) ([]bool, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	flags := make([]bool, z.Len())
	for i, v := range z.Values {
		flags[i] = z.Defined(i) && math.Abs(v) > threshold
	}
	return flags, nil
}

func checkThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 {
		return fmt.Errorf("%w: z-score threshold must be positive, got %v", model.ErrInvalidArgument, threshold)
	}
	return nil
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

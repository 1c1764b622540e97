package anomaly

import (
	"fmt"
	"math"

	"BitcoinSentinel/internal/calculator"
	"BitcoinSentinel/internal/model"
)

// IQR policy defaults.
const (
	DefaultIQRWindow     = 7
	DefaultIQRMultiplier = 1.5
)

// Fences holds the centered rolling median and the IQR fences around it.
type Fences struct {
	Median model.RollingStat
	Lower  model.RollingStat
	Upper  model.RollingStat
}

// IQRFences computes median ± multiplier × (Q75 − Q25) over a centered window.
func IQRFences(s model.PriceSeries, window int, multiplier float64) (Fences, error) {
	if math.IsNaN(multiplier) || multiplier < 0 {
		return Fences{}, fmt.Errorf("%w: IQR multiplier must be non-negative, got %v", model.ErrInvalidArgument, multiplier)
	}
	qs, err := calculator.CenteredQuantiles(s, window, 0.25, 0.5, 0.75)
	if err != nil {
		return Fences{}, err
	}
	q25, median, q75 := qs[0], qs[1], qs[2]
	median.Name = "Rolling_Median"

	lower := model.RollingStat{Name: "IQR_Lower", Window: window, Centered: true, Timestamps: median.Timestamps, Values: make([]float64, s.Len())}
	upper := model.RollingStat{Name: "IQR_Upper", Window: window, Centered: true, Timestamps: median.Timestamps, Values: make([]float64, s.Len())}
	for i := range median.Values {
		if !median.Defined(i) {
			lower.Values[i] = math.NaN()
			upper.Values[i] = math.NaN()
			continue
		}
		iqr := q75.Values[i] - q25.Values[i]
		lower.Values[i] = median.Values[i] - multiplier*iqr
		upper.Values[i] = median.Values[i] + multiplier*iqr
	}
	return Fences{Median: median, Lower: lower, Upper: upper}, nil
}

// FlagOutsideFences marks prices strictly outside [lower, upper]. Undefined fences never flag.
func FlagOutsideFences(s model.PriceSeries, f Fences) []bool {
	flags := make([]bool, s.Len())
	for i, p := range s.Points {
		if !f.Lower.Defined(i) || !f.Upper.Defined(i) {
			continue
		}
		flags[i] = p.Price < f.Lower.Values[i] || p.Price > f.Upper.Values[i]
	}
	return flags
}

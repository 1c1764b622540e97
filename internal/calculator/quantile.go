package calculator

import (
	"fmt"
	"math"
	"sort"

	"BitcoinSentinel/internal/model"
)

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks. values need not be sorted and is not modified.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 || q < 0 || q > 1 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// CenteredBounds returns the inclusive window [lo, hi] centered on i.
// Even windows take the extra sample from the later side.
func CenteredBounds(i, window int) (lo, hi int) {
	return i - (window-1)/2, i + window/2
}

// CenteredDefined reports whether a centered window at i is fully inside a series of length n.
// Positions within window/2 of either end are never defined.
func CenteredDefined(i, window, n int) bool {
	half := window / 2
	return window <= n && i >= half && i < n-half
}

// CenteredQuantiles computes one centered rolling quantile per q over the price column.
// Each returned stat is aligned with the series; entries near the boundaries are undefined.
func CenteredQuantiles(s model.PriceSeries, window int, qs ...float64) ([]model.RollingStat, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", model.ErrInvalidArgument, window)
	}
	for _, q := range qs {
		if q < 0 || q > 1 {
			return nil, fmt.Errorf("%w: quantile %v outside [0, 1]", model.ErrInvalidArgument, q)
		}
	}

	prices := s.Prices()
	n := len(prices)
	out := make([]model.RollingStat, len(qs))
	for k, q := range qs {
		out[k] = model.RollingStat{
			Name:       fmt.Sprintf("Rolling_Q%02.0f", q*100),
			Window:     window,
			Centered:   true,
			Timestamps: s.Timestamps(),
			Values:     make([]float64, n),
		}
	}

	if window > n {
		for k := range out {
			for i := range out[k].Values {
				out[k].Values[i] = math.NaN()
			}
		}
		return out, nil
	}

	buf := make([]float64, window)
	for i := 0; i < n; i++ {
		if !CenteredDefined(i, window, n) {
			for k := range out {
				out[k].Values[i] = math.NaN()
			}
			continue
		}
		lo, hi := CenteredBounds(i, window)
		copy(buf, prices[lo:hi+1])
		sort.Float64s(buf)
		for k, q := range qs {
			out[k].Values[i] = quantileSorted(buf, q)
		}
	}
	return out, nil
}

// CenteredMedian is the centered rolling median of the price column.
func CenteredMedian(s model.PriceSeries, window int) (model.RollingStat, error) {
	stats, err := CenteredQuantiles(s, window, 0.5)
	if err != nil {
		return model.RollingStat{}, err
	}
	stats[0].Name = "Rolling_Median"
	return stats[0], nil
}

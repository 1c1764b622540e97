package calculator

import (
	"math"
	"testing"
	"time"

	"BitcoinSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func series(t *testing.T, prices ...float64) model.PriceSeries {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Timestamp: start.AddDate(0, 0, i), Price: p}
	}
	s, err := model.NewPriceSeries(points)
	require.NoError(t, err)
	return s
}

func TestMovingAverage_Example(t *testing.T) {
	s := series(t, 100, 102, 98, 250, 101)
	ma, err := MovingAverage(s, 2)
	require.NoError(t, err)

	require.Equal(t, s.Len(), ma.Len())
	assert.False(t, ma.Defined(0))
	assert.InDelta(t, 101.0, ma.Values[1], 1e-9)
	assert.InDelta(t, 100.0, ma.Values[2], 1e-9)
	assert.InDelta(t, 174.0, ma.Values[3], 1e-9)
	assert.InDelta(t, 175.5, ma.Values[4], 1e-9)
}

func TestMovingAverage_MatchesTrailingMean(t *testing.T) {
	prices := []float64{5, 7, 3, 9, 11, 4, 6, 8, 10, 2, 1, 13}
	s := series(t, prices...)
	for w := 1; w <= len(prices); w++ {
		ma, err := MovingAverage(s, w)
		require.NoError(t, err)
		require.Len(t, ma.Values, len(prices))
		for i := range prices {
			if i < w-1 {
				assert.True(t, math.IsNaN(ma.Values[i]), "w=%d i=%d should be undefined", w, i)
				continue
			}
			assert.InDelta(t, stat.Mean(prices[i-w+1:i+1], nil), ma.Values[i], 1e-9, "w=%d i=%d", w, i)
		}
	}
}

func TestMovingAverage_PriceScaleJumps(t *testing.T) {
	prices := []float64{0.06, 0.05, 1250, 68000, 67950.5, 105000.25, 3.5, 98000}
	s := series(t, prices...)
	ma, err := MovingAverage(s, 2)
	require.NoError(t, err)
	for i := 1; i < len(prices); i++ {
		assert.InDelta(t, (prices[i-1]+prices[i])/2, ma.Values[i], 1e-6, "i=%d", i)
	}
}

func TestMovingAverage_InvalidWindow(t *testing.T) {
	s := series(t, 1, 2, 3)
	for _, w := range []int{0, -1, 4} {
		_, err := MovingAverage(s, w)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, "window %d", w)
	}
}

func TestMovingAverage_DoesNotMutateInput(t *testing.T) {
	s := series(t, 1, 2, 3, 4)
	_, err := MovingAverage(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Prices())
}

func TestRollingStd(t *testing.T) {
	s := series(t, 2, 4, 4, 4, 5, 5, 7, 9)
	std, err := RollingStd(s, 8)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		assert.False(t, std.Defined(i))
	}
	// sample std of the classic example: population std 2, n = 8
	assert.InDelta(t, 2*math.Sqrt(8.0/7.0), std.Values[7], 1e-9)

	one, err := RollingStd(s, 1)
	require.NoError(t, err)
	assert.Zero(t, one.DefinedCount())
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Quantile(values, 0.5), 1e-12)
	assert.InDelta(t, 1.75, Quantile(values, 0.25), 1e-12)
	assert.InDelta(t, 3.25, Quantile(values, 0.75), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestCenteredMedian_Boundaries(t *testing.T) {
	s := series(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	med, err := CenteredMedian(s, 7)
	require.NoError(t, err)
	for i := 0; i < s.Len(); i++ {
		if i < 3 || i >= 7 {
			assert.False(t, med.Defined(i), "i=%d", i)
			continue
		}
		assert.InDelta(t, float64(i+1), med.Values[i], 1e-12, "i=%d", i)
	}
}

func TestCenteredQuantiles_WindowLongerThanSeries(t *testing.T) {
	s := series(t, 1, 2, 3)
	stats, err := CenteredQuantiles(s, math.MaxInt, 0.25, 0.75)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, st := range stats {
		require.Len(t, st.Values, 3)
		for i := range st.Values {
			assert.False(t, st.Defined(i))
		}
	}
}

func TestCenteredBounds_EvenWindowFavoursLaterSample(t *testing.T) {
	lo, hi := CenteredBounds(5, 4)
	assert.Equal(t, 4, lo)
	assert.Equal(t, 7, hi)

	assert.False(t, CenteredDefined(1, 4, 10))
	assert.True(t, CenteredDefined(2, 4, 10))
	assert.True(t, CenteredDefined(7, 4, 10))
	assert.False(t, CenteredDefined(8, 4, 10))
}

func TestDecompose_ComponentsSumToSeries(t *testing.T) {
	prices := make([]float64, 42)
	weekly := []float64{3, -1, 0, 2, -2, -1, -1}
	for i := range prices {
		prices[i] = 1000 + float64(i)*2 + weekly[i%7]
	}
	s := series(t, prices...)

	dec, err := Decompose(s, 7)
	require.NoError(t, err)
	for i := range prices {
		if !dec.Trend.Defined(i) {
			assert.True(t, i < 3 || i >= len(prices)-3, "i=%d", i)
			continue
		}
		sum := dec.Trend.Values[i] + dec.Seasonal.Values[i] + dec.Residual.Values[i]
		assert.InDelta(t, prices[i], sum, 1e-9)
		// a linear trend plus a zero-mean weekly cycle decomposes exactly
		assert.InDelta(t, weekly[i%7], dec.Seasonal.Values[i], 1e-9)
		assert.InDelta(t, 0, dec.Residual.Values[i], 1e-9)
	}
}

func TestDecompose_EvenPeriod(t *testing.T) {
	prices := make([]float64, 24)
	cycle := []float64{2, -1, 1, -2}
	for i := range prices {
		prices[i] = 500 + 3*float64(i) + cycle[i%4]
	}
	s := series(t, prices...)

	dec, err := Decompose(s, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, dec.Period)
	require.Len(t, dec.Trend.Values, len(prices))
	for i := range prices {
		if i < 2 || i >= len(prices)-2 {
			assert.False(t, dec.Trend.Defined(i), "i=%d", i)
			assert.False(t, dec.Residual.Defined(i), "i=%d", i)
			continue
		}
		assert.InDelta(t, 500+3*float64(i), dec.Trend.Values[i], 1e-9)
		assert.InDelta(t, cycle[i%4], dec.Seasonal.Values[i], 1e-9)
		assert.InDelta(t, 0, dec.Residual.Values[i], 1e-9)
	}
	assert.Equal(t, s.Timestamps(), dec.Seasonal.Timestamps)
}

func TestDecompose_Errors(t *testing.T) {
	s := series(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13)
	_, err := Decompose(s, 7)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = Decompose(s, 1)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestSummarize(t *testing.T) {
	s := series(t, 100, 120, 80, 110)
	sum, err := Summarize(s)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 120.0, sum.High.Price)
	assert.Equal(t, 80.0, sum.Low.Price)
	assert.InDelta(t, 10.0, sum.ChangePct, 1e-9)
	assert.InDelta(t, 0.75, sum.RangePosition, 1e-9)

	_, err = Summarize(model.PriceSeries{})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		current, high, low, want float64
	}{
		{5, 10, 0, 0.5},
		{15, 10, 0, 1},
		{-5, 10, 0, 0},
		{7, 7, 7, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.current, tt.high, tt.low)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12)
	}
	_, err := RangePosition(1, 0, 10)
	assert.Error(t, err)
}

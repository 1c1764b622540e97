package plotter

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BitcoinSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func sample(n int) model.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, n)
	for i := range points {
		points[i] = model.PricePoint{Timestamp: start.AddDate(0, 0, i), Price: 40000 + 500*math.Sin(float64(i)/3)}
	}
	return model.PriceSeries{Points: points}
}

func stat(s model.PriceSeries, name string, undefined int) model.RollingStat {
	values := make([]float64, s.Len())
	for i := range values {
		if i < undefined {
			values[i] = math.NaN()
			continue
		}
		values[i] = s.Points[i].Price * 0.99
	}
	return model.RollingStat{Name: name, Window: undefined + 1, Timestamps: s.Timestamps(), Values: values}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic), "not a PNG: %s", path)
}

func TestCharts_WritePNG(t *testing.T) {
	dir := t.TempDir()
	s := sample(40)
	last := s.Points[len(s.Points)-1].Timestamp

	require.NoError(t, Prices(filepath.Join(dir, "prices.png"), s))
	require.NoError(t, PriceWithMovingAverage(filepath.Join(dir, "ma.png"), s, stat(s, "Moving_Avg", 4)))
	require.NoError(t, Anomalies(filepath.Join(dir, "anomalies.png"), s, model.AnomalyReport{
		Flags: []model.AnomalyFlag{
			{Timestamp: s.Points[5].Timestamp, Price: s.Points[5].Price, ByZScore: true},
			{Timestamp: s.Points[9].Timestamp, Price: s.Points[9].Price, ByIQR: true},
		},
	}))
	require.NoError(t, Forecast(filepath.Join(dir, "sub", "forecast.png"), s, []model.ForecastPoint{
		{Timestamp: last.AddDate(0, 0, 1), Predicted: 40100},
		{Timestamp: last.AddDate(0, 0, 2), Predicted: 40200},
	}))
	require.NoError(t, Decomposition(filepath.Join(dir, "decomposition.png"), s, model.Decomposition{
		Period:   7,
		Trend:    stat(s, "Trend", 3),
		Seasonal: stat(s, "Seasonal", 0),
		Residual: stat(s, "Residual", 3),
	}))

	for _, name := range []string{"prices.png", "ma.png", "anomalies.png", "sub/forecast.png", "decomposition.png"} {
		assertPNG(t, filepath.Join(dir, name))
	}
}

func TestCharts_EmptySeries(t *testing.T) {
	dir := t.TempDir()
	err := Prices(filepath.Join(dir, "p.png"), model.PriceSeries{})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	err = Decomposition(filepath.Join(dir, "d.png"), model.PriceSeries{}, model.Decomposition{})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.NoFileExists(t, filepath.Join(dir, "p.png"))
}

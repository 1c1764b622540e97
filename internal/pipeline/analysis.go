package pipeline

import (
	"errors"
	"fmt"

	"BitcoinSentinel/internal/anomaly"
	"BitcoinSentinel/internal/calculator"
	"BitcoinSentinel/internal/model"
)

// Derived column names written next to Timestamp and Price.
const (
	ColMovingAvg   = "Moving_Avg"
	ColRollingMean = "Rolling_Mean"
	ColRollingStd  = "Rolling_Std"
	ColZScore      = "Z_Score"
	ColIQRMedian   = "IQR_Median"
	ColIQRLower    = "IQR_Lower"
	ColIQRUpper    = "IQR_Upper"
	ColAnomalyZ    = "Anomaly_Z"
	ColAnomalyIQR  = "Anomaly_IQR"
	ColAnomaly     = "Anomaly"
	ColTrend       = "Trend"
	ColSeasonal    = "Seasonal"
	ColResidual    = "Residual"
)

// Options configures one analysis.
type Options struct {
	MAWindow       int
	SeasonalPeriod int // 0 disables decomposition
	Detect         anomaly.Options
}

// DefaultOptions mirrors the exploratory scripts: 30-day average, weekly seasonality.
func DefaultOptions() Options {
	return Options{
		MAWindow:       30,
		SeasonalPeriod: calculator.DefaultSeasonalPeriod,
		Detect:         anomaly.DefaultOptions(),
	}
}

// Analysis is everything derived from one series.
type Analysis struct {
	Series        model.PriceSeries
	Frame         model.Frame
	Summary       model.Summary
	MovingAverage model.RollingStat
	Decomposition *model.Decomposition
	Anomalies     model.AnomalyReport
	Warnings      []string
}

// Analyze computes trend statistics, decomposition and anomaly flags for s.
// Steps whose window does not fit the series are skipped with a warning; invalid options fail.
func Analyze(s model.PriceSeries, opts Options) (*Analysis, error) {
	if s.Empty() {
		return nil, fmt.Errorf("%w: empty series", model.ErrInsufficientData)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if opts.MAWindow <= 0 {
		return nil, fmt.Errorf("%w: moving average window must be positive, got %d", model.ErrInvalidArgument, opts.MAWindow)
	}

	a := &Analysis{Series: s, Frame: model.NewFrame(s)}
	var err error
	if a.Summary, err = calculator.Summarize(s); err != nil {
		return nil, err
	}

	if opts.MAWindow <= s.Len() {
		if a.MovingAverage, err = calculator.MovingAverage(s, opts.MAWindow); err != nil {
			return nil, err
		}
		if err := a.addStat(a.MovingAverage); err != nil {
			return nil, err
		}
	} else {
		a.warnf("series has %d points, moving average window %d skipped", s.Len(), opts.MAWindow)
	}

	if w := opts.Detect.ZWindow; w > 0 && w <= s.Len() {
		mean, err := calculator.RollingMean(s, w)
		if err != nil {
			return nil, err
		}
		std, err := calculator.RollingStd(s, w)
		if err != nil {
			return nil, err
		}
		if err := a.addStat(mean); err != nil {
			return nil, err
		}
		if err := a.addStat(std); err != nil {
			return nil, err
		}
	}

	if opts.SeasonalPeriod > 0 {
		d, err := calculator.Decompose(s, opts.SeasonalPeriod)
		switch {
		case errors.Is(err, model.ErrInsufficientData):
			a.warnf("decomposition skipped: %v", err)
		case err != nil:
			return nil, err
		default:
			a.Decomposition = &d
		}
	}

	if a.Anomalies, err = anomaly.Detect(s, opts.Detect); err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}
	if err := a.addAnomalyColumns(); err != nil {
		return nil, err
	}

	if d := a.Decomposition; d != nil {
		for _, c := range []struct {
			name string
			stat model.RollingStat
		}{{ColTrend, d.Trend}, {ColSeasonal, d.Seasonal}, {ColResidual, d.Residual}} {
			if a.Frame, err = a.Frame.WithColumn(model.Column{Name: c.name, Values: c.stat.Values}); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *Analysis) addStat(r model.RollingStat) error {
	f, err := a.Frame.WithStat(r)
	if err != nil {
		return err
	}
	a.Frame = f
	return nil
}

func (a *Analysis) addAnomalyColumns() error {
	n := len(a.Anomalies.Flags)
	z, med, lo, hi := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	byZ, byIQR, flagged := make([]bool, n), make([]bool, n), make([]bool, n)
	for i, f := range a.Anomalies.Flags {
		z[i], med[i], lo[i], hi[i] = f.ZScore, f.Median, f.Lower, f.Upper
		byZ[i], byIQR[i], flagged[i] = f.ByZScore, f.ByIQR, f.Anomalous()
	}
	cols := []model.Column{
		{Name: ColZScore, Values: z},
		{Name: ColIQRMedian, Values: med},
		{Name: ColIQRLower, Values: lo},
		{Name: ColIQRUpper, Values: hi},
		{Name: ColAnomalyZ, Flags: byZ},
		{Name: ColAnomalyIQR, Flags: byIQR},
		{Name: ColAnomaly, Flags: flagged},
	}
	for _, c := range cols {
		f, err := a.Frame.WithColumn(c)
		if err != nil {
			return err
		}
		a.Frame = f
	}
	return nil
}

func (a *Analysis) warnf(format string, args ...interface{}) {
	a.Warnings = append(a.Warnings, fmt.Sprintf(format, args...))
}

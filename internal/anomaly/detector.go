package anomaly

import (
	"fmt"
	"math"

	"BitcoinSentinel/internal/model"
)

// Options configures both detection policies.
type Options struct {
	ZThreshold    float64
	ZMode         model.ZScoreMode
	ZWindow       int // rolling mode only
	IQRWindow     int
	IQRMultiplier float64
}

// DefaultOptions returns the conservative global z-score preset with a 7-day IQR window.
func DefaultOptions() Options {
	return Options{
		ZThreshold:    ThresholdConservative,
		ZMode:         model.ZScoreGlobal,
		ZWindow:       DefaultRollingWindow,
		IQRWindow:     DefaultIQRWindow,
		IQRMultiplier: DefaultIQRMultiplier,
	}
}

// Detect runs the z-score and IQR policies over s and reports, per timestamp,
// which of them fired. s is not modified.
func Detect(s model.PriceSeries, opts Options) (model.AnomalyReport, error) {
	if err := checkThreshold(opts.ZThreshold); err != nil {
		return model.AnomalyReport{}, err
	}

	var z model.RollingStat
	switch opts.ZMode {
	case model.ZScoreGlobal, "":
		opts.ZMode = model.ZScoreGlobal
		z = ZScores(s)
	case model.ZScoreRolling:
		var err error
		if z, err = RollingZScores(s, opts.ZWindow); err != nil {
			return model.AnomalyReport{}, fmt.Errorf("rolling z-score: %w", err)
		}
	default:
		return model.AnomalyReport{}, fmt.Errorf("%w: unknown z-score mode %q", model.ErrInvalidArgument, opts.ZMode)
	}
	byZ, err := FlagZScores(z, opts.ZThreshold)
	if err != nil {
		return model.AnomalyReport{}, err
	}

	fences, err := IQRFences(s, opts.IQRWindow, opts.IQRMultiplier)
	if err != nil {
		return model.AnomalyReport{}, fmt.Errorf("iqr fences: %w", err)
	}
	byIQR := FlagOutsideFences(s, fences)

	report := model.AnomalyReport{
		ZThreshold:    opts.ZThreshold,
		ZMode:         opts.ZMode,
		IQRWindow:     opts.IQRWindow,
		IQRMultiplier: opts.IQRMultiplier,
		Flags:         make([]model.AnomalyFlag, s.Len()),
	}
	if opts.ZMode == model.ZScoreRolling {
		report.ZWindow = opts.ZWindow
	}
	for i, p := range s.Points {
		report.Flags[i] = model.AnomalyFlag{
			Timestamp: p.Timestamp,
			Price:     p.Price,
			ZScore:    valueAt(z, i),
			ByZScore:  byZ[i],
			Median:    valueAt(fences.Median, i),
			Lower:     valueAt(fences.Lower, i),
			Upper:     valueAt(fences.Upper, i),
			ByIQR:     byIQR[i],
		}
	}
	return report, nil
}

func valueAt(r model.RollingStat, i int) float64 {
	if !r.Defined(i) {
		return math.NaN()
	}
	return r.Values[i]
}

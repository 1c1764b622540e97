// Package report renders a finished analysis run for people: a plain-text summary and an XLSX workbook.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"BitcoinSentinel/internal/model"
)

// Run collects what a report needs from one analysis run.
type Run struct {
	GeneratedAt   time.Time
	Source        string
	Summary       model.Summary
	MovingAverage model.RollingStat
	Anomalies     model.AnomalyReport
	Forecast      []model.ForecastPoint
	Missing       model.MissingReport
	Warnings      []string
}

// FormatText formats the run as a plain-text report.
func FormatText(r *Run) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString(fmt.Sprintf("BitcoinSentinel report | %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("Source: %s, %d observations", r.Source, s.Count))
	if r.Missing.Dropped() > 0 {
		b.WriteString(fmt.Sprintf(" (%d of %d raw rows dropped)", r.Missing.Dropped(), r.Missing.Rows))
	}
	b.WriteString("\n\n")

	if s.Count > 0 {
		b.WriteString(fmt.Sprintf("Period: %s .. %s\n", day(s.First.Timestamp), day(s.Last.Timestamp)))
		b.WriteString(fmt.Sprintf("Last price: %.2f (%+.2f%% over the period)\n", s.Last.Price, s.ChangePct))
		b.WriteString(fmt.Sprintf("High: %.2f on %s | Low: %.2f on %s\n",
			s.High.Price, day(s.High.Timestamp), s.Low.Price, day(s.Low.Timestamp)))
		b.WriteString(fmt.Sprintf("Position in range: %.0f%%\n", s.RangePosition*100))
	}
	if v, ok := lastDefined(r.MovingAverage); ok {
		dev := 0.0
		if v > 0 {
			dev = (s.Last.Price - v) / v * 100
		}
		b.WriteString(fmt.Sprintf("%d-day moving average: %.2f (deviation %+.1f%%)\n", r.MovingAverage.Window, v, dev))
	}

	a := r.Anomalies
	flagged := a.Anomalies()
	b.WriteString(fmt.Sprintf("\nAnomalies: %d (z-score %s |z| > %g: %d, IQR window %d x%.1f: %d)\n",
		len(flagged), a.ZMode, a.ZThreshold, a.CountZ(), a.IQRWindow, a.IQRMultiplier, a.CountIQR()))
	for _, f := range flagged {
		b.WriteString(fmt.Sprintf("  %s  %.2f  %s", day(f.Timestamp), f.Price, policies(f)))
		if !math.IsNaN(f.ZScore) {
			b.WriteString(fmt.Sprintf("  z=%+.2f", f.ZScore))
		}
		b.WriteString("\n")
	}

	if n := len(r.Forecast); n > 0 {
		first, last := r.Forecast[0], r.Forecast[n-1]
		b.WriteString(fmt.Sprintf("\nForecast (%d days): %.2f on %s .. %.2f on %s\n",
			n, first.Predicted, day(first.Timestamp), last.Predicted, day(last.Timestamp)))
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}
	return b.String()
}

// WriteText writes the text report to path.
func WriteText(path string, r *Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(FormatText(r)), 0o644)
}

func policies(f model.AnomalyFlag) string {
	ps := f.Policies()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, "+")
}

func lastDefined(r model.RollingStat) (float64, bool) {
	for i := len(r.Values) - 1; i >= 0; i-- {
		if r.Defined(i) {
			return r.Values[i], true
		}
	}
	return 0, false
}

func day(t time.Time) string { return t.UTC().Format("2006-01-02") }

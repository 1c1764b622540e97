package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"BitcoinSentinel/internal/model"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetSummary   = "Summary"
	SheetPrices    = "Prices"
	SheetAnomalies = "Anomalies"
	SheetForecast  = "Forecast"
)

// WriteWorkbook exports the analysed frame and the run results to an XLSX file.
func WriteWorkbook(path string, frame model.Frame, r *Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetPrices, SheetAnomalies, SheetForecast} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeSummary(f, r); err != nil {
		return err
	}
	if err := writePrices(f, frame); err != nil {
		return err
	}
	if err := writeAnomalies(f, r.Anomalies); err != nil {
		return err
	}
	if err := writeForecast(f, r.Forecast); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *Run) error {
	s := r.Summary
	rows := [][]interface{}{
		{"Generated", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Source", r.Source},
		{"Observations", s.Count},
		{"First", day(s.First.Timestamp), s.First.Price},
		{"Last", day(s.Last.Timestamp), s.Last.Price},
		{"High", day(s.High.Timestamp), s.High.Price},
		{"Low", day(s.Low.Timestamp), s.Low.Price},
		{"Change %", s.ChangePct},
		{"Range position", s.RangePosition},
		{"Z-score anomalies", r.Anomalies.CountZ()},
		{"IQR anomalies", r.Anomalies.CountIQR()},
		{"Forecast days", len(r.Forecast)},
	}
	return setRows(f, SheetSummary, rows)
}

func writePrices(f *excelize.File, frame model.Frame) error {
	header := frame.Header()
	rows := make([][]interface{}, 0, frame.Series.Len()+1)
	rows = append(rows, toRow(header))
	for i, p := range frame.Series.Points {
		row := make([]interface{}, 0, len(header))
		row = append(row, day(p.Timestamp), p.Price)
		for _, c := range frame.Columns {
			if c.IsFlag() {
				row = append(row, c.Flags[i])
			} else {
				row = append(row, cell(c.Values[i]))
			}
		}
		rows = append(rows, row)
	}
	return setRows(f, SheetPrices, rows)
}

func writeAnomalies(f *excelize.File, a model.AnomalyReport) error {
	rows := [][]interface{}{{"Timestamp", "Price", "Z_Score", "Anomaly_Z", "IQR_Lower", "IQR_Upper", "Anomaly_IQR"}}
	for _, fl := range a.Anomalies() {
		rows = append(rows, []interface{}{
			day(fl.Timestamp), fl.Price, cell(fl.ZScore), fl.ByZScore, cell(fl.Lower), cell(fl.Upper), fl.ByIQR,
		})
	}
	return setRows(f, SheetAnomalies, rows)
}

func writeForecast(f *excelize.File, points []model.ForecastPoint) error {
	rows := [][]interface{}{{"Timestamp", "Forecast"}}
	for _, p := range points {
		rows = append(rows, []interface{}{day(p.Timestamp), p.Predicted})
	}
	return setRows(f, SheetForecast, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toRow(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// cell leaves undefined numbers blank.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

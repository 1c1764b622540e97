package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"BitcoinSentinel/internal/model"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// WriteCSV writes the frame as Timestamp,Price followed by its derived columns.
// Undefined numbers become empty cells.
func WriteCSV(w io.Writer, f model.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header()); err != nil {
		return err
	}
	row := make([]string, 2+len(f.Columns))
	for i, p := range f.Series.Points {
		row[0] = p.Timestamp.UTC().Format(time.RFC3339)
		row[1] = formatFloat(p.Price)
		for j, c := range f.Columns {
			if c.IsFlag() {
				row[2+j] = strconv.FormatBool(c.Flags[i])
			} else {
				row[2+j] = formatFloat(c.Values[i])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV. The legacy date/price header is accepted too.
// Columns whose cells are all true/false are read back as flag columns.
func ReadCSV(r io.Reader) (model.Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: parse csv: %v", model.ErrInvalidArgument, err)
	}
	if len(records) == 0 {
		return model.Frame{}, fmt.Errorf("%w: csv has no header", model.ErrInvalidArgument)
	}

	header := records[0]
	tsCol, priceCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "date":
			tsCol = i
		case "price":
			priceCol = i
		}
	}
	if tsCol < 0 || priceCol < 0 {
		return model.Frame{}, fmt.Errorf("%w: csv header %v lacks timestamp and price columns", model.ErrInvalidArgument, header)
	}

	rows := records[1:]
	points := make([]model.PricePoint, len(rows))
	for i, rec := range rows {
		ts, err := parseTime(rec[tsCol])
		if err != nil {
			return model.Frame{}, fmt.Errorf("%w: row %d: %v", model.ErrInvalidArgument, i+2, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceCol]), 64)
		if err != nil {
			return model.Frame{}, fmt.Errorf("%w: row %d: price %q", model.ErrInvalidArgument, i+2, rec[priceCol])
		}
		points[i] = model.PricePoint{Timestamp: ts, Price: price}
	}
	series, err := model.NewPriceSeries(points)
	if err != nil {
		return model.Frame{}, err
	}

	frame := model.NewFrame(series)
	for j, name := range header {
		if j == tsCol || j == priceCol {
			continue
		}
		col, err := parseColumn(name, rows, j)
		if err != nil {
			return model.Frame{}, err
		}
		if frame, err = frame.WithColumn(col); err != nil {
			return model.Frame{}, err
		}
	}
	return frame, nil
}

// WriteForecastCSV writes forecast points as Timestamp,Forecast.
func WriteForecastCSV(w io.Writer, points []model.ForecastPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Timestamp", "Forecast"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Timestamp.UTC().Format(time.RFC3339), formatFloat(p.Predicted)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveLocal writes the frame to path, replacing any existing file.
func SaveLocal(path string, f model.Frame) error {
	return saveFile(path, func(w io.Writer) error { return WriteCSV(w, f) })
}

// SaveForecastLocal writes forecast points to path, replacing any existing file.
func SaveForecastLocal(path string, points []model.ForecastPoint) error {
	return saveFile(path, func(w io.Writer) error { return WriteForecastCSV(w, points) })
}

func saveFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", model.ErrStorageFailed, path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", model.ErrStorageFailed, path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("%w: write %s: %v", model.ErrStorageFailed, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", model.ErrStorageFailed, path, err)
	}
	return nil
}

// LoadLocal reads a frame from a CSV file.
func LoadLocal(path string) (model.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: open %s: %v", model.ErrStorageFailed, path, err)
	}
	defer file.Close()
	return ReadCSV(file)
}

func parseColumn(name string, rows [][]string, j int) (model.Column, error) {
	if isFlagColumn(rows, j) {
		flags := make([]bool, len(rows))
		for i, rec := range rows {
			flags[i], _ = strconv.ParseBool(strings.TrimSpace(rec[j]))
		}
		return model.Column{Name: name, Flags: flags}, nil
	}
	values := make([]float64, len(rows))
	for i, rec := range rows {
		cell := strings.TrimSpace(rec[j])
		if cell == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return model.Column{}, fmt.Errorf("%w: row %d column %s: %q", model.ErrInvalidArgument, i+2, name, cell)
		}
		values[i] = v
	}
	return model.Column{Name: name, Values: values}, nil
}

func isFlagColumn(rows [][]string, j int) bool {
	if len(rows) == 0 {
		return false
	}
	for _, rec := range rows {
		switch strings.ToLower(strings.TrimSpace(rec[j])) {
		case "true", "false":
		default:
			return false
		}
	}
	return true
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognised timestamp " + strconv.Quote(s))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

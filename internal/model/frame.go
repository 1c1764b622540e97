package model

import "fmt"

// Column is a derived column of a Frame. Exactly one of Values or Flags is set.
type Column struct {
	Name   string
	Values []float64 // NaN marks an undefined entry
	Flags  []bool
}

// IsFlag reports whether the column holds booleans.
func (c Column) IsFlag() bool { return c.Flags != nil }

// Len returns the number of entries in the column.
func (c Column) Len() int {
	if c.IsFlag() {
		return len(c.Flags)
	}
	return len(c.Values)
}

// Frame is the tabular view of a series: Timestamp, Price and derived columns in order.
type Frame struct {
	Series  PriceSeries
	Columns []Column
}

// NewFrame wraps a series with no derived columns.
func NewFrame(s PriceSeries) Frame {
	return Frame{Series: s}
}

// WithColumn returns a new frame with c appended. The receiver is not modified.
func (f Frame) WithColumn(c Column) (Frame, error) {
	if c.Len() != f.Series.Len() {
		return Frame{}, fmt.Errorf("%w: column %q has %d rows, frame has %d",
			ErrInvalidArgument, c.Name, c.Len(), f.Series.Len())
	}
	if _, ok := f.Column(c.Name); ok || c.Name == "Timestamp" || c.Name == "Price" {
		return Frame{}, fmt.Errorf("%w: duplicate column %q", ErrInvalidArgument, c.Name)
	}
	cols := make([]Column, len(f.Columns), len(f.Columns)+1)
	copy(cols, f.Columns)
	cols = append(cols, c)
	return Frame{Series: f.Series, Columns: cols}, nil
}

// WithStat is WithColumn for a rolling statistic.
func (f Frame) WithStat(r RollingStat) (Frame, error) {
	return f.WithColumn(Column{Name: r.Name, Values: r.Values})
}

// Column looks a derived column up by name.
func (f Frame) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Header returns the column names in write order.
func (f Frame) Header() []string {
	h := []string{"Timestamp", "Price"}
	for _, c := range f.Columns {
		h = append(h, c.Name)
	}
	return h
}

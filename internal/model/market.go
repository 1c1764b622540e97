package model

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single observed price.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// PriceSeries holds observations sorted ascending by timestamp.
type PriceSeries struct {
	Points []PricePoint
}

// NewPriceSeries builds a series from points and validates it.
func NewPriceSeries(points []PricePoint) (PriceSeries, error) {
	s := PriceSeries{Points: append([]PricePoint(nil), points...)}
	if err := s.Validate(); err != nil {
		return PriceSeries{}, err
	}
	return s, nil
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Empty reports whether the series has no observations.
func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Prices returns a fresh slice of the price column.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Timestamps returns a fresh slice of the timestamp column.
func (s PriceSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Timestamp
	}
	return out
}

// Last returns the most recent observation. ok is false for an empty series.
func (s PriceSeries) Last() (p PricePoint, ok bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Clone returns a copy that shares no memory with s.
func (s PriceSeries) Clone() PriceSeries {
	return PriceSeries{Points: append([]PricePoint(nil), s.Points...)}
}

// Validate checks that timestamps strictly increase and prices are finite and non-negative.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if p.Timestamp.IsZero() {
			return fmt.Errorf("%w: point %d has no timestamp", ErrInvalidArgument, i)
		}
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
			return fmt.Errorf("%w: point %d has invalid price %v", ErrInvalidArgument, i, p.Price)
		}
		if i > 0 && !p.Timestamp.After(s.Points[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamps not strictly increasing at point %d (%s after %s)",
				ErrInvalidArgument, i, p.Timestamp.Format(time.RFC3339), s.Points[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// MissingReport counts the values that could not be used while building a series.
type MissingReport struct {
	Rows             int
	MissingTimestamp int
	MissingPrice     int
	InvalidPrice     int
	Duplicates       int
}

// Dropped is the number of raw rows that did not make it into the series.
func (r MissingReport) Dropped() int {
	return r.MissingTimestamp + r.MissingPrice + r.InvalidPrice + r.Duplicates
}

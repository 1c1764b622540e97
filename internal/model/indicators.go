package model

import (
	"math"
	"time"
)

// RollingStat is a derived series aligned 1:1 with a PriceSeries.
// Undefined entries hold NaN.
type RollingStat struct {
	Name       string
	Window     int
	Centered   bool
	Timestamps []time.Time
	Values     []float64
}

// Len returns the number of entries, defined or not.
func (r RollingStat) Len() int { return len(r.Values) }

// Defined reports whether entry i carries a numeric value.
func (r RollingStat) Defined(i int) bool {
	return i >= 0 && i < len(r.Values) && !math.IsNaN(r.Values[i])
}

// DefinedCount returns the number of defined entries.
func (r RollingStat) DefinedCount() int {
	n := 0
	for i := range r.Values {
		if r.Defined(i) {
			n++
		}
	}
	return n
}

// Decomposition is the additive split of a series into trend, seasonal and residual parts.
type Decomposition struct {
	Period   int
	Trend    RollingStat
	Seasonal RollingStat
	Residual RollingStat
}

// Summary describes the observed window of a series.
type Summary struct {
	Count         int
	First         PricePoint
	Last          PricePoint
	High          PricePoint
	Low           PricePoint
	ChangePct     float64
	RangePosition float64 // 0.0 ~ 1.0
}

package model

import "time"

// ForecastPoint is a predicted price for a future date.
type ForecastPoint struct {
	Timestamp time.Time
	Predicted float64
}

// Order holds the (p, d, q) parameters of an ARIMA model.
type Order struct {
	P int // autoregressive terms
	D int // differencing
	Q int // moving-average terms
}

// Sum is the minimum history an estimator with this order cannot go below.
func (o Order) Sum() int { return o.P + o.D + o.Q }

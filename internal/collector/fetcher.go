package collector

import (
	"context"
	"fmt"
	"strings"

	"BitcoinSentinel/internal/model"
)

// Query selects the price history to fetch.
type Query struct {
	CoinID     string
	VsCurrency string
	Days       int
	Interval   string
}

// RawPoint is one row as delivered by a data source. Nil fields are missing values.
type RawPoint struct {
	EpochMillis *int64
	Price       *float64
}

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchPrices(ctx context.Context, q Query) ([]RawPoint, error)
	Name() string
}

// FetchError reports a failed request to a market-data source.
// It matches model.ErrFetchFailed under errors.Is.
type FetchError struct {
	Source     string
	StatusCode int // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Source, model.ErrFetchFailed)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ", body: %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{model.ErrFetchFailed}
	}
	return []error{model.ErrFetchFailed, e.Err}
}

package collector

import (
	"context"
	"fmt"
	"time"

	"BitcoinSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Points []RawPoint
	Err    error
	Start  time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPrices(_ context.Context, q Query) ([]RawPoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Points != nil {
		return m.Points, nil
	}
	start := m.Start
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -q.Days)
	}
	return generateMockPrices(m.Price, start, q.Days), nil
}

func generateMockPrices(basePrice float64, start time.Time, count int) []RawPoint {
	points := make([]RawPoint, count)
	for i := 0; i < count; i++ {
		ms := start.AddDate(0, 0, i).UnixMilli()
		p := basePrice * (1 + float64(i-count/2)*0.001)
		points[i] = RawPoint{EpochMillis: &ms, Price: &p}
	}
	return points
}

// FailurePolicy decides what Collect does when the fetch fails.
type FailurePolicy string

const (
	// FailOnError propagates the fetch error to the caller.
	FailOnError FailurePolicy = "fail"
	// EmptyOnError substitutes an empty series and records the error on the Collection.
	EmptyOnError FailurePolicy = "empty"
)

// Collection is the outcome of one Collect call.
type Collection struct {
	Source    string
	FetchedAt time.Time
	Series    model.PriceSeries
	Missing   model.MissingReport
	// Err is set when EmptyOnError replaced a failed fetch with an empty series.
	Err error
}

// Degraded reports whether the series is a substitute for a failed fetch.
func (c *Collection) Degraded() bool { return c.Err != nil }

// Collector orchestrates data fetching and preprocessing.
type Collector struct {
	Fetcher       Fetcher
	Query         Query
	OnError       FailurePolicy
	CollapseDaily bool
	logger        zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, q Query, onError FailurePolicy, collapseDaily bool) *Collector {
	if onError == "" {
		onError = FailOnError
	}
	return &Collector{
		Fetcher:       fetcher,
		Query:         q,
		OnError:       onError,
		CollapseDaily: collapseDaily,
		logger:        log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// Collect fetches the configured history and returns it as a clean series.
func (c *Collector) Collect(ctx context.Context) (*Collection, error) {
	fetchedAt := time.Now().UTC()
	raw, err := c.Fetcher.FetchPrices(ctx, c.Query)
	if err != nil {
		if c.OnError == EmptyOnError {
			c.logger.Warn().Err(err).Msg("Fetch failed, continuing with empty series")
			return &Collection{Source: c.Fetcher.Name(), FetchedAt: fetchedAt, Err: err}, nil
		}
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	series, report := Preprocess(raw)
	if c.CollapseDaily {
		series = DailyCloses(series)
	}
	if report.Dropped() > 0 {
		c.logger.Warn().
			Int("rows", report.Rows).
			Int("missing_timestamp", report.MissingTimestamp).
			Int("missing_price", report.MissingPrice).
			Int("invalid_price", report.InvalidPrice).
			Int("duplicates", report.Duplicates).
			Msg("Dropped rows during preprocessing")
	}
	c.logger.Info().Int("points", series.Len()).Msg("Collected prices")

	return &Collection{
		Source:    c.Fetcher.Name(),
		FetchedAt: fetchedAt,
		Series:    series,
		Missing:   report,
	}, nil
}

package collector

import (
	"math"
	"sort"
	"time"

	"BitcoinSentinel/internal/model"
)

// Preprocess converts raw rows into a valid series and reports what was dropped.
// Rows without a timestamp or a usable price are removed, the rest are sorted
// ascending, and for duplicate timestamps the row that arrived last wins.
func Preprocess(raw []RawPoint) (model.PriceSeries, model.MissingReport) {
	report := model.MissingReport{Rows: len(raw)}
	points := make([]model.PricePoint, 0, len(raw))
	for _, r := range raw {
		switch {
		case r.EpochMillis == nil:
			report.MissingTimestamp++
		case r.Price == nil:
			report.MissingPrice++
		case math.IsNaN(*r.Price) || math.IsInf(*r.Price, 0) || *r.Price < 0:
			report.InvalidPrice++
		default:
			points = append(points, model.PricePoint{
				Timestamp: time.UnixMilli(*r.EpochMillis).UTC(),
				Price:     *r.Price,
			})
		}
	}
	return normalize(points, &report), report
}

// DailyCloses keeps the last observation of each UTC calendar day and stamps it at midnight.
func DailyCloses(s model.PriceSeries) model.PriceSeries {
	out := make([]model.PricePoint, 0, s.Len())
	for _, p := range s.Points {
		day := p.Timestamp.UTC().Truncate(24 * time.Hour)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(day) {
			out[n-1].Price = p.Price
			continue
		}
		out = append(out, model.PricePoint{Timestamp: day, Price: p.Price})
	}
	return model.PriceSeries{Points: out}
}

// normalize sorts points by time and collapses equal timestamps, keeping the later row.
func normalize(points []model.PricePoint, report *model.MissingReport) model.PriceSeries {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(p.Timestamp) {
			out[n-1] = p
			report.Duplicates++
			continue
		}
		out = append(out, p)
	}
	return model.PriceSeries{Points: out}
}

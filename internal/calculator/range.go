package calculator

import (
	"fmt"

	"BitcoinSentinel/internal/model"
)

// Summarize scans the series and returns its high, low, endpoints and where the
// last price sits within the observed range.
func Summarize(s model.PriceSeries) (model.Summary, error) {
	if s.Empty() {
		return model.Summary{}, fmt.Errorf("%w: no observations to summarize", model.ErrInsufficientData)
	}
	first := s.Points[0]
	last := s.Points[len(s.Points)-1]
	sum := model.Summary{Count: s.Len(), First: first, Last: last, High: first, Low: first}
	for _, p := range s.Points[1:] {
		if p.Price > sum.High.Price {
			sum.High = p
		}
		if p.Price < sum.Low.Price {
			sum.Low = p
		}
	}
	if first.Price > 0 {
		sum.ChangePct = (last.Price - first.Price) / first.Price * 100
	}
	pos, err := RangePosition(last.Price, sum.High.Price, sum.Low.Price)
	if err != nil {
		return model.Summary{}, err
	}
	sum.RangePosition = pos
	return sum, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, fmt.Errorf("%w: high %v below low %v", model.ErrInvalidArgument, high, low)
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend is the 3-state price direction signal.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// TrendWindowDays is the trailing window the classifier compares against.
const TrendWindowDays = 30

var trendBand = decimal.NewFromFloat(0.01)

// Classify compares the current price against the trailing window average.
// The band is 1% of the average, inclusive: prices inside it are stable.
func Classify(current, windowAvg decimal.Decimal) Trend {
	threshold := windowAvg.Mul(trendBand)
	switch {
	case current.GreaterThan(windowAvg.Add(threshold)):
		return TrendUp
	case current.LessThan(windowAvg.Sub(threshold)):
		return TrendDown
	default:
		return TrendStable
	}
}

// ClassifySnapshot classifies from possibly-absent derived prices. Either
// input missing means the trend cannot be known; callers surface that as
// "unknown" rather than failing.
func ClassifySnapshot(current, windowAvg *decimal.Decimal) (Trend, error) {
	if current == nil || windowAvg == nil {
		return TrendUnknown, ErrInsufficientData
	}
	return Classify(*current, *windowAvg), nil
}

// TrendWindow returns the inclusive trailing window ending on the given day.
func TrendWindow(today time.Time) (from, to time.Time) {
	to = today
	from = today.AddDate(0, 0, -TrendWindowDays)
	return from, to
}

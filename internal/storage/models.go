package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop groups products by ingestion source.
type Shop struct {
	ID        int64
	Title     string
	URL       string
	CreatedAt time.Time
}

// Product is a catalog entry. Its price is never stored on the row itself;
// it is always derived from the product's price records.
type Product struct {
	ID          int64
	ExternalID  int64
	Title       string
	Description string
	ShopID      *int64
	CreatedAt   time.Time
}

// PriceRecord is the single observation of a product's price on a given day.
type PriceRecord struct {
	ID        int64
	ProductID int64
	Date      time.Time
	Price     decimal.Decimal
	CreatedAt time.Time
}

// CurrencyRate is one row of rate history for a currency code. RateDate keeps
// the feed's own date string and is never parsed; recency is insertion order.
type CurrencyRate struct {
	ID        int64
	Code      string
	Rate      decimal.Decimal
	RateDate  string
	CreatedAt time.Time
}

// PriceAlert is a subscription to a price-drop notification. At most one
// alert exists per (product, email) pair.
type PriceAlert struct {
	ID               int64
	ProductID        int64
	Email            string
	ThresholdPrice   decimal.Decimal
	LastNotifiedDate *time.Time
	CreatedAt        time.Time
}

// ProductSnapshot is a product joined with its derived prices: the latest
// recorded price and the mean over the trailing window. Either may be nil
// when no records exist in the relevant range.
type ProductSnapshot struct {
	Product
	ShopTitle   string
	ShopURL     string
	LatestPrice *decimal.Decimal
	WindowAvg   *decimal.Decimal
}

// ShopAverage is the mean of a shop's price records for a single day.
type ShopAverage struct {
	ShopID       int64
	ShopTitle    string
	AveragePrice decimal.Decimal
}

// DueAlert is an alert eligible for evaluation, joined with the product and
// shop context needed to render a notification.
type DueAlert struct {
	ID             int64
	ProductID      int64
	ProductTitle   string
	ShopTitle      string
	ShopURL        string
	Email          string
	ThresholdPrice decimal.Decimal
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

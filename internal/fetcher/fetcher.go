package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FeedProduct is one normalized product row handed back by the product feed.
type FeedProduct struct {
	ExternalID  int64
	Title       string
	Description string
	Price       decimal.Decimal
}

// FeedRate is one normalized exchange rate row. RateDate keeps the feed's own
// date string untouched.
type FeedRate struct {
	Code     string
	Rate     decimal.Decimal
	RateDate string
}

// ProductFeed retrieves the current product catalog with prices.
type ProductFeed interface {
	FetchProducts(ctx context.Context) ([]FeedProduct, error)
}

// RateFeed retrieves the current currency exchange rates.
type RateFeed interface {
	FetchRates(ctx context.Context) ([]FeedRate, error)
}

func feedHTTPError(feed string, status int, payload []byte) error {
	if len(payload) > 0 {
		return fmt.Errorf("%s feed error (%d): %s", feed, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s feed error (%d)", feed, status)
}

// Package pricing holds the pure price math: currency conversion and trend
// classification. Nothing here mutates state.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-ish currency code accepted by the query layer.
type Currency string

const (
	// CurrencyUSD is the base currency all prices are stored in.
	CurrencyUSD Currency = "USD"
	// CurrencyUAH is the only supported conversion target.
	CurrencyUAH Currency = "UAH"
)

var (
	// ErrUnsupportedCurrency rejects conversion targets other than USD/UAH.
	ErrUnsupportedCurrency = errors.New("pricing: unsupported target currency")
	// ErrInsufficientData signals there is not enough history to classify a trend.
	ErrInsufficientData = errors.New("pricing: insufficient data for trend")
)

// RateSource provides the latest known rate for a currency code.
type RateSource interface {
	LatestRate(ctx context.Context, code string) (decimal.Decimal, bool, error)
}

// Converter converts base-currency amounts using the latest stored rate.
type Converter struct {
	rates RateSource
}

// NewConverter wires a rate source into a Converter.
func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert returns the amount in the target currency, rounded half-up to two
// decimal places. USD is an identity. Conversion is best-effort: when no USD
// rate is stored yet, the unconverted amount is returned rather than an error.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, target Currency) (decimal.Decimal, error) {
	switch target {
	case CurrencyUSD:
		return amount, nil
	case CurrencyUAH:
		rate, ok, err := c.rates.LatestRate(ctx, string(CurrencyUSD))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("fetch usd rate: %w", err)
		}
		if !ok {
			return amount, nil
		}
		return roundMoney(amount.Mul(rate)), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, target)
	}
}

// roundMoney applies the single round-half-up step at two decimal places.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative amounts this system deals in.
func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

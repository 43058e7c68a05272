// Package analytics answers the read-side queries: catalog listings with
// converted prices and trends, single-product lookups, the catalog price
// range, and per-shop daily averages.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
	"pricewatch/internal/storage"
)

var (
	// ErrInvalidCurrency rejects currency query parameters other than USD/UAH.
	ErrInvalidCurrency = errors.New("analytics: currency must be USD or UAH")
	// ErrInvalidSort rejects unknown ordering parameters.
	ErrInvalidSort = errors.New("analytics: unknown sort field")
)

// SortField selects the derived field a listing is ordered by.
type SortField string

const (
	// SortDefault keeps the store order: most-recently-created first.
	SortDefault SortField = ""
	// SortPrice orders by the converted current price.
	SortPrice SortField = "price"
	// SortTrend orders by the signed difference current - windowAverage.
	SortTrend SortField = "trend"
)

// ListOptions parameterise a catalog listing.
type ListOptions struct {
	Currency   pricing.Currency
	SortBy     SortField
	Descending bool
}

// ProductView is a catalog entry with its derived fields resolved.
type ProductView struct {
	ID          int64
	ExternalID  int64
	Title       string
	Description string
	Shop        string
	ShopURL     string
	Price       *decimal.Decimal
	Currency    pricing.Currency
	Trend       pricing.Trend

	// signed current - windowAverage in base currency; nil when either side
	// is missing. Drives the trend sort.
	trendDelta *decimal.Decimal
}

// PriceRange is the min/max of latest prices across the catalog. An empty
// catalog deliberately reports 0.00/0.00 instead of an absent range so the
// response shape stays stable.
type PriceRange struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	Currency pricing.Currency
}

// ShopAverageView is the mean of a shop's price records dated today.
type ShopAverageView struct {
	Shop         string
	AveragePrice decimal.Decimal
}

// Service composes the stores and the converter into query operations.
type Service struct {
	products  storage.ProductStore
	prices    storage.PriceStore
	converter *pricing.Converter
	logger    zerolog.Logger
}

// New constructs the analytics service.
func New(products storage.ProductStore, prices storage.PriceStore, converter *pricing.Converter, logger zerolog.Logger) *Service {
	return &Service{
		products:  products,
		prices:    prices,
		converter: converter,
		logger:    logger.With().Str("component", "analytics").Logger(),
	}
}

// ParseCurrency validates a currency query parameter; empty defaults to USD.
func ParseCurrency(raw string) (pricing.Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(pricing.CurrencyUSD):
		return pricing.CurrencyUSD, nil
	case string(pricing.CurrencyUAH):
		return pricing.CurrencyUAH, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
	}
}

// ParseSort validates an ordering query parameter. A leading "-" means
// descending, mirroring the feed consumers this API replaced.
func ParseSort(raw string) (SortField, bool, error) {
	descending := strings.HasPrefix(raw, "-")
	field := strings.TrimPrefix(raw, "-")
	switch SortField(field) {
	case SortDefault, SortPrice, SortTrend:
		return SortField(field), descending, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrInvalidSort, raw)
	}
}

// ListProducts returns the catalog with converted prices and trends. A
// product with too little history gets trend "unknown"; it never fails the
// whole listing.
func (s *Service) ListProducts(ctx context.Context, opts ListOptions) ([]ProductView, error) {
	from, to := pricing.TrendWindow(storage.DateOf(time.Now()))
	snapshots, err := s.products.ListProducts(ctx, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(snapshots))
	for _, snap := range snapshots {
		view, err := s.buildView(ctx, snap, opts.Currency)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	sortViews(views, opts.SortBy, opts.Descending)
	return views, nil
}

// GetProduct returns a single product view or storage.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id int64, currency pricing.Currency) (ProductView, error) {
	from, to := pricing.TrendWindow(storage.DateOf(time.Now()))
	snap, err := s.products.GetProduct(ctx, id, from, to)
	if err != nil {
		return ProductView{}, err
	}
	return s.buildView(ctx, snap, currency)
}

// PriceRange reports min/max of the catalog's latest prices in the requested
// currency. Empty catalog yields 0.00/0.00.
func (s *Service) PriceRange(ctx context.Context, currency pricing.Currency) (PriceRange, error) {
	minPrice, maxPrice, ok, err := s.prices.CatalogPriceRange(ctx)
	if err != nil {
		return PriceRange{}, err
	}
	if !ok {
		minPrice = decimal.Zero
		maxPrice = decimal.Zero
	}

	convertedMin, err := s.converter.Convert(ctx, minPrice, currency)
	if err != nil {
		return PriceRange{}, err
	}
	convertedMax, err := s.converter.Convert(ctx, maxPrice, currency)
	if err != nil {
		return PriceRange{}, err
	}

	return PriceRange{Min: convertedMin, Max: convertedMax, Currency: currency}, nil
}

// ShopDailyAverages reports the mean of today's records per shop. Shops with
// no record dated today are omitted.
func (s *Service) ShopDailyAverages(ctx context.Context) ([]ShopAverageView, error) {
	averages, err := s.prices.ShopDailyAverages(ctx, storage.DateOf(time.Now()))
	if err != nil {
		return nil, err
	}
	views := make([]ShopAverageView, 0, len(averages))
	for _, avg := range averages {
		views = append(views, ShopAverageView{
			Shop:         avg.ShopTitle,
			AveragePrice: avg.AveragePrice.Round(2),
		})
	}
	return views, nil
}

func (s *Service) buildView(ctx context.Context, snap storage.ProductSnapshot, currency pricing.Currency) (ProductView, error) {
	view := ProductView{
		ID:          snap.ID,
		ExternalID:  snap.ExternalID,
		Title:       snap.Title,
		Description: snap.Description,
		Shop:        snap.ShopTitle,
		ShopURL:     snap.ShopURL,
		Currency:    currency,
		Trend:       pricing.TrendUnknown,
	}

	if snap.LatestPrice != nil {
		converted, err := s.converter.Convert(ctx, *snap.LatestPrice, currency)
		if err != nil {
			return ProductView{}, err
		}
		view.Price = &converted
	}

	trend, err := pricing.ClassifySnapshot(snap.LatestPrice, snap.WindowAvg)
	if err != nil && !errors.Is(err, pricing.ErrInsufficientData) {
		return ProductView{}, err
	}
	view.Trend = trend
	if snap.LatestPrice != nil && snap.WindowAvg != nil {
		delta := snap.LatestPrice.Sub(*snap.WindowAvg)
		view.trendDelta = &delta
	}

	return view, nil
}

func sortViews(views []ProductView, field SortField, descending bool) {
	var key func(v ProductView) *decimal.Decimal
	switch field {
	case SortPrice:
		key = func(v ProductView) *decimal.Decimal { return v.Price }
	case SortTrend:
		key = func(v ProductView) *decimal.Decimal { return v.trendDelta }
	default:
		return
	}

	// products missing the derived field sort last in either direction
	sort.SliceStable(views, func(i, j int) bool {
		a, b := key(views[i]), key(views[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case descending:
			return a.GreaterThan(*b)
		default:
			return a.LessThan(*b)
		}
	})
}

// Package service orchestrates the periodic pipeline: pull the external
// feeds, upsert the normalized rows, then evaluate price alerts.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/alerting"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/storage"
)

// CatalogWriter persists shops, products, and price records.
type CatalogWriter interface {
	UpsertShop(ctx context.Context, title, url string) (int64, error)
	UpsertProduct(ctx context.Context, externalID int64, title, description string, shopID *int64) (int64, error)
	UpsertPriceRecord(ctx context.Context, productID int64, date time.Time, price decimal.Decimal) error
}

// RateWriter persists currency rates.
type RateWriter interface {
	UpsertRate(ctx context.Context, code, rateDate string, rate decimal.Decimal) error
}

// Service wires the feeds, the store, and the alert evaluator.
type Service struct {
	products  fetcher.ProductFeed
	rates     fetcher.RateFeed
	catalog   CatalogWriter
	rateStore RateWriter
	evaluator *alerting.Evaluator
	shopTitle string
	shopURL   string
	logger    zerolog.Logger
}

// New constructs the ingestion service. evaluator may be nil when alerting is
// disabled.
func New(products fetcher.ProductFeed, rates fetcher.RateFeed, catalog CatalogWriter, rateStore RateWriter, evaluator *alerting.Evaluator, shopTitle, shopURL string, logger zerolog.Logger) *Service {
	return &Service{
		products:  products,
		rates:     rates,
		catalog:   catalog,
		rateStore: rateStore,
		evaluator: evaluator,
		shopTitle: shopTitle,
		shopURL:   shopURL,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// RunTick executes one scheduled cycle. Feed failures are logged and do not
// stop the rest of the cycle; alert evaluation runs against whatever data is
// stored.
func (s *Service) RunTick(ctx context.Context, bucket time.Time) error {
	if err := s.IngestProducts(ctx, bucket); err != nil {
		s.logger.Error().Err(err).Msg("product ingestion failed")
	}
	if err := s.IngestRates(ctx); err != nil {
		s.logger.Error().Err(err).Msg("rate ingestion failed")
	}

	if s.evaluator != nil {
		if _, err := s.evaluator.Run(ctx, bucket); err != nil {
			return fmt.Errorf("evaluate alerts: %w", err)
		}
	}
	return nil
}

// IngestProducts pulls the product feed and upserts each product together
// with its price record for the given day. A bad row is skipped; the batch
// continues.
func (s *Service) IngestProducts(ctx context.Context, day time.Time) error {
	items, err := s.products.FetchProducts(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}

	shopID, err := s.catalog.UpsertShop(ctx, s.shopTitle, s.shopURL)
	if err != nil {
		return fmt.Errorf("upsert shop: %w", err)
	}

	stored := 0
	for _, item := range items {
		productID, err := s.catalog.UpsertProduct(ctx, item.ExternalID, item.Title, item.Description, &shopID)
		if err != nil {
			s.logger.Error().Err(err).Int64("external_id", item.ExternalID).Msg("failed to upsert product")
			continue
		}
		if err := s.catalog.UpsertPriceRecord(ctx, productID, day, item.Price); err != nil {
			if errors.Is(err, storage.ErrInvalidPrice) {
				s.logger.Warn().Int64("external_id", item.ExternalID).Str("price", item.Price.String()).Msg("rejected negative price")
				continue
			}
			s.logger.Error().Err(err).Int64("external_id", item.ExternalID).Msg("failed to upsert price record")
			continue
		}
		stored++
	}

	s.logger.Info().Int("fetched", len(items)).Int("stored", stored).Msg("product ingestion complete")
	return nil
}

// IngestRates pulls the exchange rate feed and appends each rate row. A bad
// row is skipped; the batch continues.
func (s *Service) IngestRates(ctx context.Context) error {
	rates, err := s.rates.FetchRates(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}

	stored := 0
	for _, rate := range rates {
		if err := s.rateStore.UpsertRate(ctx, rate.Code, rate.RateDate, rate.Rate); err != nil {
			if errors.Is(err, storage.ErrInvalidRate) {
				s.logger.Warn().Str("code", rate.Code).Str("rate", rate.Rate.String()).Msg("rejected non-positive rate")
				continue
			}
			s.logger.Error().Err(err).Str("code", rate.Code).Msg("failed to upsert rate")
			continue
		}
		stored++
	}

	s.logger.Info().Int("fetched", len(rates)).Int("stored", stored).Msg("rate ingestion complete")
	return nil
}

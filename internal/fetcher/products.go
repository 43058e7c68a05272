package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultProductsURL = "https://dummyjson.com/products"

// ProductsOptions parameterise the product feed client.
type ProductsOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Products pulls the product catalog from the external JSON feed.
type Products struct {
	opts   ProductsOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewProducts constructs a product feed client.
func NewProducts(opts ProductsOptions, logger zerolog.Logger) *Products {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	url := strings.TrimRight(opts.BaseURL, "/")
	if url == "" {
		url = defaultProductsURL
	}

	return &Products{
		opts:   opts,
		logger: logger.With().Str("component", "product_feed").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// FetchProducts retrieves and normalizes the product list.
func (p *Products) FetchProducts(ctx context.Context) ([]FeedProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, feedHTTPError("products", resp.StatusCode, payload)
	}

	var body productsResponse
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode products payload: %w", err)
	}

	products := make([]FeedProduct, 0, len(body.Products))
	for _, item := range body.Products {
		price, err := decimal.NewFromString(item.Price.String())
		if err != nil {
			p.logger.Warn().Int64("external_id", item.ID).Str("price", item.Price.String()).Msg("skipping product with unparseable price")
			continue
		}
		products = append(products, FeedProduct{
			ExternalID:  item.ID,
			Title:       item.Title,
			Description: item.Description,
			Price:       price,
		})
	}

	p.logger.Debug().Int("count", len(products)).Msg("product feed fetched")
	return products, nil
}

type productsResponse struct {
	Products []struct {
		ID          int64       `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Price       json.Number `json:"price"`
	} `json:"products"`
}

var _ ProductFeed = (*Products)(nil)

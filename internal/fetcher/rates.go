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

const defaultRatesURL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange?json"

// RatesOptions parameterise the exchange rate feed client.
type RatesOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Codes filters the feed; empty means USD and EUR.
	Codes []string
}

// Rates pulls official exchange rates from the NBU JSON feed.
type Rates struct {
	opts   RatesOptions
	logger zerolog.Logger
	client *http.Client
	url    string
	codes  map[string]bool
}

// NewRates constructs a rate feed client.
func NewRates(opts RatesOptions, logger zerolog.Logger) *Rates {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	url := strings.TrimSpace(opts.BaseURL)
	if url == "" {
		url = defaultRatesURL
	}

	wanted := opts.Codes
	if len(wanted) == 0 {
		wanted = []string{"USD", "EUR"}
	}
	codes := make(map[string]bool, len(wanted))
	for _, code := range wanted {
		codes[strings.ToUpper(code)] = true
	}

	return &Rates{
		opts:   opts,
		logger: logger.With().Str("component", "rate_feed").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    url,
		codes:  codes,
	}
}

// FetchRates retrieves the rate table and keeps only the configured codes.
func (r *Rates) FetchRates(ctx context.Context) ([]FeedRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, feedHTTPError("rates", resp.StatusCode, payload)
	}

	var body []rateRow
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates payload: %w", err)
	}

	rates := make([]FeedRate, 0, len(r.codes))
	for _, row := range body {
		code := strings.ToUpper(row.Code)
		if !r.codes[code] {
			continue
		}
		rate, err := decimal.NewFromString(row.Rate.String())
		if err != nil {
			r.logger.Warn().Str("code", code).Str("rate", row.Rate.String()).Msg("skipping unparseable rate")
			continue
		}
		rates = append(rates, FeedRate{
			Code:     code,
			Rate:     rate,
			RateDate: row.ExchangeDate,
		})
	}

	r.logger.Debug().Int("count", len(rates)).Msg("rate feed fetched")
	return rates, nil
}

type rateRow struct {
	Code         string      `json:"cc"`
	Rate         json.Number `json:"rate"`
	ExchangeDate string      `json:"exchangedate"`
}

var _ RateFeed = (*Rates)(nil)

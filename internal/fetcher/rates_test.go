package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const ratesPayload = `[
	{"cc": "USD", "rate": 41.5173, "exchangedate": "27.08.2026"},
	{"cc": "EUR", "rate": 48.1201, "exchangedate": "27.08.2026"},
	{"cc": "PLN", "rate": 11.3402, "exchangedate": "27.08.2026"}
]`

func TestFetchRatesFiltersConfiguredCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(ratesPayload))
	}))
	defer srv.Close()

	feed := NewRates(RatesOptions{BaseURL: srv.URL}, zerolog.Nop())

	rates, err := feed.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates returned error: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("got %d rates, want 2 (default codes USD and EUR)", len(rates))
	}

	byCode := map[string]FeedRate{}
	for _, rate := range rates {
		byCode[rate.Code] = rate
	}

	usd, ok := byCode["USD"]
	if !ok {
		t.Fatal("USD rate missing")
	}
	if want := decimal.RequireFromString("41.5173"); !usd.Rate.Equal(want) {
		t.Errorf("USD rate = %s, want %s", usd.Rate, want)
	}
	if usd.RateDate != "27.08.2026" {
		t.Errorf("RateDate = %q, want the feed's own date string", usd.RateDate)
	}
	if _, ok := byCode["PLN"]; ok {
		t.Error("PLN must be filtered out")
	}
}

func TestFetchRatesCustomCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ratesPayload))
	}))
	defer srv.Close()

	feed := NewRates(RatesOptions{BaseURL: srv.URL, Codes: []string{"pln"}}, zerolog.Nop())

	rates, err := feed.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates returned error: %v", err)
	}
	if len(rates) != 1 || rates[0].Code != "PLN" {
		t.Fatalf("rates = %+v, want the single PLN row", rates)
	}
}

func TestFetchRatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed := NewRates(RatesOptions{BaseURL: srv.URL}, zerolog.Nop())

	if _, err := feed.FetchRates(context.Background()); err == nil {
		t.Fatal("non-200 response must surface as an error")
	}
}

func TestFetchRatesMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	feed := NewRates(RatesOptions{BaseURL: srv.URL}, zerolog.Nop())

	if _, err := feed.FetchRates(context.Background()); err == nil {
		t.Fatal("unexpected payload shape must surface as an error")
	}
}

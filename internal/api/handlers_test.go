package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/analytics"
	"pricewatch/internal/pricing"
	"pricewatch/internal/storage"
)

type fakeCatalog struct {
	snapshots []storage.ProductSnapshot
}

func (f *fakeCatalog) UpsertShop(ctx context.Context, title, url string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeCatalog) UpsertProduct(ctx context.Context, externalID int64, title, description string, shopID *int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeCatalog) ListProducts(ctx context.Context, windowFrom, windowTo time.Time) ([]storage.ProductSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64, windowFrom, windowTo time.Time) (storage.ProductSnapshot, error) {
	for _, snap := range f.snapshots {
		if snap.ID == id {
			return snap, nil
		}
	}
	return storage.ProductSnapshot{}, storage.ErrNotFound
}

type fakePriceStats struct {
	min, max decimal.Decimal
	hasRange bool
}

func (f *fakePriceStats) UpsertPriceRecord(ctx context.Context, productID int64, date time.Time, price decimal.Decimal) error {
	return errors.New("not implemented")
}

func (f *fakePriceStats) LatestPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, errors.New("not implemented")
}

func (f *fakePriceStats) WindowAverage(ctx context.Context, productID int64, from, to time.Time) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, errors.New("not implemented")
}

func (f *fakePriceStats) CatalogPriceRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, bool, error) {
	return f.min, f.max, f.hasRange, nil
}

func (f *fakePriceStats) ShopDailyAverages(ctx context.Context, day time.Time) ([]storage.ShopAverage, error) {
	return nil, nil
}

func (f *fakePriceStats) ListRecentPriceRecords(ctx context.Context, limit int) ([]storage.PriceObservation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePriceStats) ListPriceHistory(ctx context.Context, productID int64) ([]storage.PriceRecord, error) {
	return nil, errors.New("not implemented")
}

type fakeAlerts struct {
	created []storage.PriceAlert
	err     error
}

func (f *fakeAlerts) CreateAlert(ctx context.Context, productID int64, email string, threshold decimal.Decimal) (storage.PriceAlert, error) {
	if f.err != nil {
		return storage.PriceAlert{}, f.err
	}
	if !threshold.IsPositive() {
		return storage.PriceAlert{}, storage.ErrInvalidThreshold
	}
	alert := storage.PriceAlert{
		ID:             int64(len(f.created) + 1),
		ProductID:      productID,
		Email:          email,
		ThresholdPrice: threshold,
	}
	f.created = append(f.created, alert)
	return alert, nil
}

func (f *fakeAlerts) ListDueAlerts(ctx context.Context, day time.Time) ([]storage.DueAlert, error) {
	return nil, nil
}

func (f *fakeAlerts) MarkNotified(ctx context.Context, alertID int64, day time.Time) (bool, error) {
	return false, nil
}

type fakeRates struct {
	rates []storage.CurrencyRate
}

func (f *fakeRates) UpsertRate(ctx context.Context, code, rateDate string, rate decimal.Decimal) error {
	return errors.New("not implemented")
}

func (f *fakeRates) LatestRate(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	for i := len(f.rates) - 1; i >= 0; i-- {
		if f.rates[i].Code == code {
			return f.rates[i].Rate, true, nil
		}
	}
	return decimal.Zero, false, nil
}

func (f *fakeRates) ListRecentRates(ctx context.Context, limit int) ([]storage.CurrencyRate, error) {
	return f.rates, nil
}

func dec(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}

func testRouter(catalog *fakeCatalog, prices *fakePriceStats, alerts *fakeAlerts, rates *fakeRates) http.Handler {
	converter := pricing.NewConverter(rates)
	analyticsSvc := analytics.New(catalog, prices, converter, zerolog.Nop())
	return NewRouter(NewServer(analyticsSvc, alerts, rates, nil, zerolog.Nop()))
}

func defaultFixtures() (*fakeCatalog, *fakePriceStats, *fakeAlerts, *fakeRates) {
	catalog := &fakeCatalog{snapshots: []storage.ProductSnapshot{
		{
			Product:     storage.Product{ID: 1, ExternalID: 101, Title: "Widget", Description: "A widget"},
			ShopTitle:   "DummyJSON",
			ShopURL:     "https://dummyjson.com",
			LatestPrice: dec("80.00"),
			WindowAvg:   dec("90.00"),
		},
		{
			Product:   storage.Product{ID: 2, ExternalID: 102, Title: "Fresh"},
			ShopTitle: "DummyJSON",
		},
	}}
	prices := &fakePriceStats{
		min:      decimal.RequireFromString("80.00"),
		max:      decimal.RequireFromString("80.00"),
		hasRange: true,
	}
	alerts := &fakeAlerts{}
	rates := &fakeRates{rates: []storage.CurrencyRate{
		{ID: 1, Code: "USD", Rate: decimal.RequireFromString("40.0000"), RateDate: "27.08.2026"},
	}}
	return catalog, prices, alerts, rates
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListProducts(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/products", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}

	var payload []productPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("got %d products, want 2", len(payload))
	}

	widget := payload[0]
	if widget.Title == "Fresh" {
		widget = payload[1]
	}
	if widget.Price == nil || *widget.Price != "80.00" {
		t.Errorf("widget price = %v, want 80.00", widget.Price)
	}
	if widget.Trend != "down" {
		t.Errorf("widget trend = %q, want down", widget.Trend)
	}
	if widget.Currency != "USD" {
		t.Errorf("currency = %q, want USD", widget.Currency)
	}
}

func TestListProductsConvertedToUAH(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/products?currency=UAH", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload []productPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, item := range payload {
		if item.Title == "Widget" {
			if item.Price == nil || *item.Price != "3200.00" {
				t.Fatalf("converted price = %v, want 3200.00 at rate 40.0000", item.Price)
			}
			return
		}
	}
	t.Fatal("Widget missing from response")
}

func TestListProductsRejectsBadParams(t *testing.T) {
	router := testRouter(defaultFixtures())

	if rec := doRequest(t, router, http.MethodGet, "/products?currency=EUR", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("currency=EUR status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/products?ordering=title", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("ordering=title status = %d, want 400", rec.Code)
	}
}

func TestGetProduct(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/products/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload productPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || payload.Title != "Widget" {
		t.Fatalf("payload = %+v", payload)
	}

	if rec := doRequest(t, router, http.MethodGet, "/products/999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/products/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("non-integer id status = %d, want 400", rec.Code)
	}
}

func TestPriceRange(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/products/price-range", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload priceRangePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.MinPrice != "80.00" || payload.MaxPrice != "80.00" {
		t.Fatalf("range = %s/%s, want 80.00/80.00", payload.MinPrice, payload.MaxPrice)
	}
}

func TestPriceRangeEmptyCatalog(t *testing.T) {
	catalog, _, alerts, rates := defaultFixtures()
	router := testRouter(catalog, &fakePriceStats{hasRange: false}, alerts, rates)

	rec := doRequest(t, router, http.MethodGet, "/products/price-range", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload priceRangePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.MinPrice != "0.00" || payload.MaxPrice != "0.00" {
		t.Fatalf("empty range = %s/%s, want 0.00/0.00", payload.MinPrice, payload.MaxPrice)
	}
}

func TestListCurrencies(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/currencies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload []currencyRatePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload) != 1 || payload[0].Code != "USD" || payload[0].Rate != "40.0000" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestCreateAlert(t *testing.T) {
	catalog, prices, alerts, rates := defaultFixtures()
	router := testRouter(catalog, prices, alerts, rates)

	rec := doRequest(t, router, http.MethodPost, "/alerts",
		`{"product_id": 1, "email": "user@example.com", "threshold_price": 75.50}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload alertPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ProductID != 1 || payload.Email != "user@example.com" || payload.ThresholdPrice != "75.50" {
		t.Fatalf("payload = %+v", payload)
	}
	if len(alerts.created) != 1 {
		t.Fatalf("store has %d alerts, want 1", len(alerts.created))
	}
}

func TestCreateAlertValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing product", `{"email": "a@b.c", "threshold_price": 1}`, http.StatusBadRequest},
		{"bad email", `{"product_id": 1, "email": "nope", "threshold_price": 1}`, http.StatusBadRequest},
		{"zero threshold", `{"product_id": 1, "email": "a@b.c", "threshold_price": 0}`, http.StatusBadRequest},
		{"negative threshold", `{"product_id": 1, "email": "a@b.c", "threshold_price": -5}`, http.StatusBadRequest},
		{"unknown field", `{"product_id": 1, "email": "a@b.c", "threshold_price": 1, "extra": true}`, http.StatusBadRequest},
		{"broken json", `{"product_id": `, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := testRouter(defaultFixtures())
			rec := doRequest(t, router, http.MethodPost, "/alerts", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestCreateAlertRequiresJSONContentType(t *testing.T) {
	router := testRouter(defaultFixtures())

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestCreateAlertConflictAndMissingProduct(t *testing.T) {
	catalog, prices, _, rates := defaultFixtures()

	router := testRouter(catalog, prices, &fakeAlerts{err: storage.ErrDuplicateAlert}, rates)
	rec := doRequest(t, router, http.MethodPost, "/alerts",
		`{"product_id": 1, "email": "user@example.com", "threshold_price": 10}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	router = testRouter(catalog, prices, &fakeAlerts{err: storage.ErrNotFound}, rates)
	rec = doRequest(t, router, http.MethodPost, "/alerts",
		`{"product_id": 999, "email": "user@example.com", "threshold_price": 10}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing product status = %d, want 404", rec.Code)
	}
}

func TestIngestEndpointsDisabledWithoutService(t *testing.T) {
	router := testRouter(defaultFixtures())

	for _, target := range []string{"/ingest/products", "/ingest/rates"} {
		rec := doRequest(t, router, http.MethodPost, target, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", target, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(defaultFixtures())

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	router := testRouter(defaultFixtures())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "fixed-id" {
		t.Fatalf("X-Request-Id = %q, want the caller's id echoed back", got)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/analytics"
	"pricewatch/internal/service"
	"pricewatch/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	analytics *analytics.Service
	alerts    storage.AlertStore
	rates     storage.RateStore
	ingest    *service.Service
	logger    zerolog.Logger
}

// NewServer constructs the API server. ingest may be nil to disable the
// manual trigger endpoints.
func NewServer(analyticsSvc *analytics.Service, alerts storage.AlertStore, rates storage.RateStore, ingest *service.Service, logger zerolog.Logger) *Server {
	return &Server{
		analytics: analyticsSvc,
		alerts:    alerts,
		rates:     rates,
		ingest:    ingest,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

type productPayload struct {
	ID          int64   `json:"id"`
	ExternalID  int64   `json:"external_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       *string `json:"price"`
	Currency    string  `json:"currency"`
	Trend       string  `json:"trend"`
	Shop        string  `json:"shop"`
}

type priceRangePayload struct {
	MinPrice string `json:"min_price"`
	MaxPrice string `json:"max_price"`
	Currency string `json:"currency"`
}

type shopAveragePayload struct {
	Title        string `json:"title"`
	AveragePrice string `json:"average_price"`
}

type currencyRatePayload struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Rate      string    `json:"rate"`
	RateDate  string    `json:"rate_date"`
	CreatedAt time.Time `json:"created_at"`
}

type createAlertRequest struct {
	ProductID      int64       `json:"product_id"`
	Email          string      `json:"email"`
	ThresholdPrice json.Number `json:"threshold_price"`
}

type alertPayload struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	Email          string `json:"email"`
	ThresholdPrice string `json:"threshold_price"`
}

func toProductPayload(v analytics.ProductView) productPayload {
	payload := productPayload{
		ID:          v.ID,
		ExternalID:  v.ExternalID,
		Title:       v.Title,
		Description: v.Description,
		Currency:    string(v.Currency),
		Trend:       string(v.Trend),
		Shop:        v.Shop,
	}
	if v.Price != nil {
		price := v.Price.StringFixed(2)
		payload.Price = &price
	}
	return payload
}

func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	currency, err := analytics.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_currency", err.Error())
		return
	}
	sortBy, descending, err := analytics.ParseSort(r.URL.Query().Get("ordering"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_ordering", err.Error())
		return
	}

	views, err := s.analytics.ListProducts(r.Context(), analytics.ListOptions{
		Currency:   currency,
		SortBy:     sortBy,
		Descending: descending,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list products failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	payload := make([]productPayload, 0, len(views))
	for _, view := range views {
		payload = append(payload, toProductPayload(view))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id", "product id must be an integer")
		return
	}
	currency, err := analytics.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_currency", err.Error())
		return
	}

	view, err := s.analytics.GetProduct(r.Context(), id, currency)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("id", id).Msg("get product failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(view))
}

func (s *Server) priceRangeHandler(w http.ResponseWriter, r *http.Request) {
	currency, err := analytics.ParseCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_currency", err.Error())
		return
	}

	rng, err := s.analytics.PriceRange(r.Context(), currency)
	if err != nil {
		s.logger.Error().Err(err).Msg("price range failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, priceRangePayload{
		MinPrice: rng.Min.StringFixed(2),
		MaxPrice: rng.Max.StringFixed(2),
		Currency: string(rng.Currency),
	})
}

func (s *Server) shopAveragesHandler(w http.ResponseWriter, r *http.Request) {
	averages, err := s.analytics.ShopDailyAverages(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("shop averages failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	payload := make([]shopAveragePayload, 0, len(averages))
	for _, avg := range averages {
		payload = append(payload, shopAveragePayload{
			Title:        avg.Shop,
			AveragePrice: avg.AveragePrice.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) listCurrenciesHandler(w http.ResponseWriter, r *http.Request) {
	rates, err := s.rates.ListRecentRates(r.Context(), 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("list currencies failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	payload := make([]currencyRatePayload, 0, len(rates))
	for _, rate := range rates {
		payload = append(payload, currencyRatePayload{
			ID:        rate.ID,
			Code:      rate.Code,
			Rate:      rate.Rate.StringFixed(4),
			RateDate:  rate.RateDate,
			CreatedAt: rate.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) createAlertHandler(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}

	var req createAlertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "product_id is required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}
	threshold, err := decimal.NewFromString(req.ThresholdPrice.String())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "threshold_price must be a number")
		return
	}

	alert, err := s.alerts.CreateAlert(r.Context(), req.ProductID, req.Email, threshold)
	switch {
	case errors.Is(err, storage.ErrInvalidThreshold):
		writeJSONError(w, http.StatusBadRequest, "validation_error", "threshold_price must be greater than zero")
		return
	case errors.Is(err, storage.ErrDuplicateAlert):
		writeJSONError(w, http.StatusConflict, "duplicate_alert", "an alert for this product and email already exists")
		return
	case errors.Is(err, storage.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "product does not exist")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("create alert failed")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusCreated, alertPayload{
		ID:             alert.ID,
		ProductID:      alert.ProductID,
		Email:          alert.Email,
		ThresholdPrice: alert.ThresholdPrice.StringFixed(2),
	})
}

func (s *Server) ingestProductsHandler(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "ingestion_disabled", "")
		return
	}
	if err := s.ingest.IngestProducts(r.Context(), time.Now()); err != nil {
		s.logger.Error().Err(err).Msg("manual product ingestion failed")
		writeJSONError(w, http.StatusBadGateway, "ingestion_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ingestRatesHandler(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "ingestion_disabled", "")
		return
	}
	if err := s.ingest.IngestRates(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("manual rate ingestion failed")
		writeJSONError(w, http.StatusBadGateway, "ingestion_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

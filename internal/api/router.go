package api

import "net/http"

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", s.listProductsHandler)
	mux.HandleFunc("GET /products/price-range", s.priceRangeHandler)
	mux.HandleFunc("GET /products/{id}", s.getProductHandler)
	mux.HandleFunc("GET /shops/average-today-prices", s.shopAveragesHandler)
	mux.HandleFunc("GET /currencies", s.listCurrenciesHandler)
	mux.HandleFunc("POST /alerts", s.createAlertHandler)
	mux.HandleFunc("POST /ingest/products", s.ingestProductsHandler)
	mux.HandleFunc("POST /ingest/rates", s.ingestRatesHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	return WithRequestID(WithLogging(s.logger, mux))
}

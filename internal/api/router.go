package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stocklens/internal/api/handlers"
	"github.com/wonny/stocklens/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Stock       *handlers.StockHandler
	SupplyChain *handlers.SupplyChainHandler
	Crawl       *handlers.CrawlHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	log = log.Module("api")

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Stock endpoints
	stocks := api.PathPrefix("/stocks/{symbol}").Subrouter()
	stocks.HandleFunc("", h.Stock.GetSymbol).Methods("GET")
	stocks.HandleFunc("/trade", h.Stock.GetTrade).Methods("GET")
	stocks.HandleFunc("/history", h.Stock.GetHistory).Methods("GET")
	stocks.HandleFunc("/sectors", h.Stock.GetSectors).Methods("GET")
	stocks.HandleFunc("/quote", h.Stock.GetQuote).Methods("GET")
	stocks.HandleFunc("/analysis", h.Stock.GetAnalysis).Methods("GET")

	api.HandleFunc("/sectors/{kind}/{name}/analysis", h.Stock.GetSectorAnalysis).Methods("GET")

	// Supply-chain endpoints
	api.HandleFunc("/supply-chain/analyze", h.SupplyChain.Analyze).Methods("POST")
	api.HandleFunc("/supply-chain/companies", h.SupplyChain.ListCompanies).Methods("GET")
	api.HandleFunc("/supply-chain/companies/{name}", h.SupplyChain.GetCompany).Methods("GET")
	api.HandleFunc("/supply-chain/suppliers", h.SupplyChain.SearchSuppliers).Methods("GET")

	// Crawl endpoints
	api.HandleFunc("/crawl/bulk", h.Crawl.Bulk).Methods("POST")
	api.HandleFunc("/crawl/incremental", h.Crawl.Incremental).Methods("POST")
	api.HandleFunc("/crawl/trades", h.Crawl.Trades).Methods("POST")
	api.HandleFunc("/crawl/runs/{id}", h.Crawl.GetRun).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "stocklens-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(handlers.Envelope{
						Success: false,
						Error:   "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/stockdata"
	"github.com/wonny/stocklens/pkg/logger"
)

// StockService is the cache-aside read path used by StockHandler
type StockService interface {
	GetSymbolRecord(ctx context.Context, symbol string) (*stockdata.SymbolResult, error)
	GetTradeBar(ctx context.Context, symbol string, date *time.Time) (*stockdata.TradeBarResult, error)
	GetTradeHistory(ctx context.Context, symbol string, r contracts.DateRange) (*stockdata.TradeHistoryResult, error)
	GetSectorMembership(ctx context.Context, symbol string) (*stockdata.SectorMembership, error)
	GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error)
	AnalyzeStock(ctx context.Context, symbol string) (*stockdata.StockAnalysis, error)
	AnalyzeSector(ctx context.Context, name string, kind contracts.SectorKind, limit int) (*stockdata.SectorAnalysis, error)
}

// StockHandler handles stock data API endpoints
// ⭐ SSOT: 종목 데이터 API 핸들러는 이 구조체에서만
type StockHandler struct {
	service StockService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(service StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  log.Module("api"),
	}
}

// GetSymbol returns the reference record of a stock
// GET /api/stocks/{symbol}
func (h *StockHandler) GetSymbol(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetSymbolRecord(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetTrade returns one daily bar, the latest when no date is given
// GET /api/stocks/{symbol}/trade?date=2024-03-08
func (h *StockHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := contracts.ParseDate("date", raw)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		date = &d
	}

	res, err := h.service.GetTradeBar(r.Context(), mux.Vars(r)["symbol"], date)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetHistory returns daily bars in a range, newest first
// GET /api/stocks/{symbol}/history?start=2024-03-01&end=2024-03-08
func (h *StockHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := contracts.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	res, err := h.service.GetTradeHistory(r.Context(), mux.Vars(r)["symbol"], rng)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetSectors returns the industry and concept boards of a stock with member counts
// GET /api/stocks/{symbol}/sectors
func (h *StockHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetSectorMembership(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetQuote returns the live quote of a stock
// GET /api/stocks/{symbol}/quote
func (h *StockHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetQuote(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetAnalysis returns investment and risk scores of a stock
// GET /api/stocks/{symbol}/analysis
func (h *StockHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.AnalyzeStock(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// GetSectorAnalysis scores the members of an industry or concept board
// GET /api/sectors/{kind}/{name}/analysis?limit=20
func (h *StockHandler) GetSectorAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	kind := contracts.SectorKind(strings.ToLower(vars["kind"]))
	res, err := h.service.AnalyzeSector(r.Context(), vars["name"], kind, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/crawler"
	"github.com/wonny/stocklens/pkg/logger"
)

// CrawlService is the bulk crawler used by CrawlHandler
type CrawlService interface {
	CrawlBulk(ctx context.Context, window crawler.Window, workers int) (*crawler.BulkResult, error)
	CrawlIncremental(ctx context.Context, updateExisting bool, workers int) (*crawler.IncrementalStats, error)
	CrawlAllDailyTrade(ctx context.Context, from, to time.Time, limit int) (*crawler.TradeStats, error)
	Today() time.Time
}

// CrawlHandler starts asynchronous crawls and reports their status
// ⭐ SSOT: 수집 트리거 API는 이 구조체에서만
type CrawlHandler struct {
	crawler    CrawlService
	runs       *crawler.Runs
	workers    int
	maxWorkers int
	logger     *logger.Logger
}

// NewCrawlHandler creates a new crawl handler. workers is the default pool size;
// requested sizes are clamped to maxWorkers.
func NewCrawlHandler(c CrawlService, runs *crawler.Runs, workers, maxWorkers int, log *logger.Logger) *CrawlHandler {
	if workers < 1 {
		workers = crawler.DefaultWorkers
	}
	if maxWorkers < workers {
		maxWorkers = workers
	}
	return &CrawlHandler{
		crawler:    c,
		runs:       runs,
		workers:    workers,
		maxWorkers: maxWorkers,
		logger:     log.Module("api"),
	}
}

// BulkRequest is the body of a bulk crawl
type BulkRequest struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Workers int `json:"workers"`
}

// IncrementalRequest is the body of an incremental crawl
type IncrementalRequest struct {
	UpdateExisting bool `json:"updateExisting"`
	Workers        int  `json:"workers"`
}

// TradesRequest is the body of a trade crawl; blank dates mean today
type TradesRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Limit int    `json:"limit"`
}

// RunAccepted is returned when a crawl was started
type RunAccepted struct {
	RunID  string            `json:"run_id"`
	Kind   string            `json:"kind"`
	Status crawler.RunStatus `json:"status"`
}

// Crawl kinds
const (
	KindBulk        = "bulk"
	KindIncremental = "incremental"
	KindTrades      = "trades"
)

// Bulk crawls a window of the external universe
// POST /api/crawl/bulk
func (h *CrawlHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if req.Offset < 0 || req.Limit < 0 || req.Workers < 0 {
		respondError(w, http.StatusBadRequest, "offset, limit and workers must not be negative")
		return
	}

	window := crawler.Window{Offset: req.Offset, Limit: req.Limit}
	workers := h.poolSize(req.Workers)

	h.start(w, r, KindBulk, func(ctx context.Context) (interface{}, error) {
		return h.crawler.CrawlBulk(ctx, window, workers)
	})
}

// Incremental crawls symbols missing from the store
// POST /api/crawl/incremental
func (h *CrawlHandler) Incremental(w http.ResponseWriter, r *http.Request) {
	var req IncrementalRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if req.Workers < 0 {
		respondError(w, http.StatusBadRequest, "workers must not be negative")
		return
	}

	update := req.UpdateExisting
	workers := h.poolSize(req.Workers)

	h.start(w, r, KindIncremental, func(ctx context.Context) (interface{}, error) {
		return h.crawler.CrawlIncremental(ctx, update, workers)
	})
}

// Trades crawls daily bars of every stored symbol
// POST /api/crawl/trades
func (h *CrawlHandler) Trades(w http.ResponseWriter, r *http.Request) {
	var req TradesRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if req.Limit < 0 {
		respondError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	rng, err := contracts.ParseDateRange(req.Start, req.End)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	today := h.crawler.Today()
	if rng.From.IsZero() {
		rng.From = today
	}
	if rng.To.IsZero() {
		rng.To = today
	}
	if rng.From.After(rng.To) {
		respondServiceError(w, h.logger, &contracts.ValidationError{Field: "start", Reason: "must not be after end"})
		return
	}

	limit := req.Limit
	h.start(w, r, KindTrades, func(ctx context.Context) (interface{}, error) {
		return h.crawler.CrawlAllDailyTrade(ctx, rng.From, rng.To, limit)
	})
}

// GetRun returns the status of a crawl run; null for unknown ids
// GET /api/crawl/runs/{id}
func (h *CrawlHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(mux.Vars(r)["id"])
	if !ok {
		respondData(w, http.StatusOK, nil)
		return
	}
	respondData(w, http.StatusOK, run)
}

func (h *CrawlHandler) poolSize(requested int) int {
	switch {
	case requested < 1:
		return h.workers
	case requested > h.maxWorkers:
		return h.maxWorkers
	default:
		return requested
	}
}

// start runs fn in the background under a registered run id.
// The crawl outlives the request; request-scoped values are kept.
func (h *CrawlHandler) start(w http.ResponseWriter, r *http.Request, kind string, fn func(ctx context.Context) (interface{}, error)) {
	id := h.runs.Start(kind)
	ctx := crawler.WithRunID(context.WithoutCancel(r.Context()), id)

	h.logger.WithFields(map[string]interface{}{
		"run_id": id,
		"kind":   kind,
	}).Info("Crawl triggered")

	go func() {
		result, err := fn(ctx)
		if err != nil {
			h.logger.WithError(err).WithField("run_id", id).Error("Crawl run failed")
			result = nil
		}
		h.runs.Finish(id, result, err)
	}()

	respondData(w, http.StatusAccepted, RunAccepted{RunID: id, Kind: kind, Status: crawler.RunRunning})
}

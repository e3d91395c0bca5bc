package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/logger"
)

// DefaultWorkers is the pool size when none is given
const DefaultWorkers = 5

// Crawler bulk-populates the store from the market data source
// ⭐ SSOT: 종목/시세 일괄 수집은 이 패키지에서만
type Crawler struct {
	store  contracts.Store
	source contracts.MarketDataSource
	logger *logger.Logger

	sourceTimeout time.Duration
	location      *time.Location
	now           func() time.Time
}

// Config holds crawler configuration
type Config struct {
	SourceTimeout time.Duration  // per external call, 0 = none
	Location      *time.Location // trading calendar zone for CrawlToday
}

// New creates a new Crawler instance
func New(store contracts.Store, source contracts.MarketDataSource, cfg Config, log *logger.Logger) *Crawler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Crawler{
		store:         store,
		source:        source,
		logger:        log.Module("crawler"),
		sourceTimeout: cfg.SourceTimeout,
		location:      loc,
		now:           time.Now,
	}
}

// Window selects a slice of the external universe. Limit <= 0 means no limit.
type Window struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Apply returns the windowed part of symbols
func (w Window) Apply(symbols []contracts.SymbolRecord) []contracts.SymbolRecord {
	if w.Offset < 0 {
		w.Offset = 0
	}
	if w.Offset >= len(symbols) {
		return nil
	}
	symbols = symbols[w.Offset:]
	if w.Limit > 0 && w.Limit < len(symbols) {
		symbols = symbols[:w.Limit]
	}
	return symbols
}

// BulkResult summarizes a bulk backfill
type BulkResult struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// IncrementalStats summarizes an incremental crawl
type IncrementalStats struct {
	RunID     string        `json:"run_id"`
	New       int           `json:"new"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Cancelled int           `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// job is one symbol handed to the pool
type job struct {
	symbol   string
	existing bool
}

// result is the outcome of one job
type result struct {
	job
	err error
}

// CrawlBulk fetches and upserts the SymbolRecord of every symbol in the window.
// Per-symbol failures are counted and never abort the batch.
func (c *Crawler) CrawlBulk(ctx context.Context, window Window, workers int) (*BulkResult, error) {
	start := time.Now()
	res := &BulkResult{RunID: runIDFrom(ctx)}
	log := c.logger.WithField("run_id", res.RunID)

	universe, err := c.listUniverse(ctx)
	if err != nil {
		return nil, err
	}
	selected := window.Apply(universe)
	res.Total = len(selected)

	log.WithFields(map[string]interface{}{
		"universe": len(universe),
		"offset":   window.Offset,
		"limit":    window.Limit,
		"selected": len(selected),
		"workers":  poolSize(workers),
	}).Info("Starting bulk crawl")

	jobs := make([]job, 0, len(selected))
	for _, s := range selected {
		jobs = append(jobs, job{symbol: s.Symbol})
	}

	results, cancelled := c.runPool(ctx, jobs, workers)
	res.Cancelled = cancelled
	for _, r := range results {
		if r.err != nil {
			res.Failed++
		} else {
			res.Success++
		}
	}
	res.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"success":   res.Success,
		"failed":    res.Failed,
		"cancelled": res.Cancelled,
		"duration":  res.Duration.String(),
	}).Info("Bulk crawl completed")

	return res, nil
}

// CrawlIncremental crawls symbols the store does not know yet. With updateExisting
// every stored symbol is re-crawled as well; otherwise they are counted as skipped.
func (c *Crawler) CrawlIncremental(ctx context.Context, updateExisting bool, workers int) (*IncrementalStats, error) {
	start := time.Now()
	stats := &IncrementalStats{RunID: runIDFrom(ctx)}
	log := c.logger.WithField("run_id", stats.RunID)

	existing, err := c.store.ListAllSymbolKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored symbols: %w", err)
	}
	universe, err := c.listUniverse(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[s] = struct{}{}
	}

	jobs := make([]job, 0, len(universe))
	for _, s := range universe {
		if _, ok := known[s.Symbol]; !ok {
			jobs = append(jobs, job{symbol: s.Symbol})
		}
	}
	newCount := len(jobs)

	if updateExisting {
		for _, s := range existing {
			jobs = append(jobs, job{symbol: s, existing: true})
		}
	} else {
		stats.Skipped = len(existing)
	}

	log.WithFields(map[string]interface{}{
		"universe":        len(universe),
		"stored":          len(existing),
		"new":             newCount,
		"update_existing": updateExisting,
		"workers":         poolSize(workers),
	}).Info("Starting incremental crawl")

	results, cancelled := c.runPool(ctx, jobs, workers)
	stats.Cancelled = cancelled
	for _, r := range results {
		switch {
		case r.err != nil:
			stats.Failed++
		case r.existing:
			stats.Updated++
		default:
			stats.New++
		}
	}
	stats.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"new":       stats.New,
		"updated":   stats.Updated,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
		"cancelled": stats.Cancelled,
		"duration":  stats.Duration.String(),
	}).Info("Incremental crawl completed")

	return stats, nil
}

func (c *Crawler) listUniverse(ctx context.Context) ([]contracts.SymbolRecord, error) {
	fetchCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	universe, err := c.source.ListAllSymbols(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("list symbol universe: %w", contracts.NewSourceError("list all symbols", "", err))
	}
	return universe, nil
}

func (c *Crawler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.sourceTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.sourceTimeout)
}

func poolSize(workers int) int {
	if workers < 1 {
		return DefaultWorkers
	}
	return workers
}

// runPool processes jobs with a bounded worker pool. Cancelling ctx stops scheduling;
// jobs already handed to a worker run to completion. cancelled counts unscheduled jobs.
func (c *Crawler) runPool(ctx context.Context, jobs []job, workers int) ([]result, int) {
	workers = poolSize(workers)
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan job)
	resultCh := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.symbolWorker(ctx, workerID, jobCh, resultCh)
		}(i)
	}

	sent := 0
dispatch:
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- j:
			sent++
		}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]result, 0, sent)
	for r := range resultCh {
		results = append(results, r)
	}

	if cancelled := len(jobs) - sent; cancelled > 0 {
		c.logger.WithFields(map[string]interface{}{
			"scheduled": sent,
			"cancelled": cancelled,
		}).Warn("Crawl cancelled, stopped scheduling")
		return results, cancelled
	}
	return results, 0
}

// symbolWorker fetches and upserts one record per job
func (c *Crawler) symbolWorker(ctx context.Context, workerID int, jobCh <-chan job, resultCh chan<- result) {
	// in-flight items finish even when the run is cancelled
	itemCtx := context.WithoutCancel(ctx)

	for j := range jobCh {
		resultCh <- result{job: j, err: c.crawlSymbol(itemCtx, workerID, j.symbol)}
	}
}

func (c *Crawler) crawlSymbol(ctx context.Context, workerID int, symbol string) error {
	fetchCtx, cancel := c.withTimeout(ctx)
	rec, err := c.source.FetchSymbolRecord(fetchCtx, symbol)
	cancel()
	if err != nil {
		log := c.logger.WithError(err).WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
		})
		if errors.Is(err, contracts.ErrNotFound) {
			log.Debug("Symbol not found at source")
		} else {
			log.Error("Failed to fetch symbol record")
		}
		return contracts.NewSourceError("fetch symbol record", symbol, err)
	}

	rec.Normalize()

	if err := c.store.UpsertSymbolRecord(ctx, rec); err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
		}).Warn("Failed to save symbol record")
		return err
	}

	c.logger.WithFields(map[string]interface{}{
		"worker":   workerID,
		"symbol":   symbol,
		"industry": rec.Industry,
		"concepts": len(rec.ConceptTags),
	}).Debug("Crawled symbol")

	return nil
}

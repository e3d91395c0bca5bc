package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stocklens/internal/contracts"
)

// TradeStats summarizes a trade-bar crawl
type TradeStats struct {
	RunID     string        `json:"run_id"`
	From      time.Time     `json:"from"`
	To        time.Time     `json:"to"`
	Symbols   int           `json:"symbols"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Rows      int           `json:"rows"`
	Cancelled int           `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// CrawlAllDailyTrade fetches bars in [from, to] for every stored symbol, one symbol at a time.
// limit caps the number of symbols (0 = all). A symbol with no rows counts as one failure.
// Rows are upserted one by one; a failed row fails the symbol but earlier rows stay written.
func (c *Crawler) CrawlAllDailyTrade(ctx context.Context, from, to time.Time, limit int) (*TradeStats, error) {
	if from.After(to) {
		return nil, &contracts.ValidationError{Field: "start", Reason: "must not be after end"}
	}

	start := time.Now()
	stats := &TradeStats{RunID: runIDFrom(ctx), From: contracts.Day(from), To: contracts.Day(to)}
	log := c.logger.WithField("run_id", stats.RunID)

	symbols, err := c.store.ListAllSymbolKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored symbols: %w", err)
	}
	if limit > 0 && limit < len(symbols) {
		symbols = symbols[:limit]
	}
	stats.Symbols = len(symbols)

	log.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"from":    stats.From.Format(contracts.DateLayout),
		"to":      stats.To.Format(contracts.DateLayout),
	}).Info("Starting trade crawl")

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			stats.Cancelled = len(symbols) - i
			log.WithField("cancelled", stats.Cancelled).Warn("Trade crawl cancelled")
			break
		}

		rows, err := c.crawlTrades(ctx, symbol, stats.From, stats.To)
		stats.Rows += rows
		if err != nil {
			stats.Failed++
			continue
		}
		stats.Success++
	}
	stats.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"success":   stats.Success,
		"failed":    stats.Failed,
		"rows":      stats.Rows,
		"cancelled": stats.Cancelled,
		"duration":  stats.Duration.String(),
	}).Info("Trade crawl completed")

	return stats, nil
}

// CrawlToday runs the trade crawl for today's date in the trading calendar zone
func (c *Crawler) CrawlToday(ctx context.Context) (*TradeStats, error) {
	today := c.Today()
	return c.CrawlAllDailyTrade(ctx, today, today, 0)
}

// Today returns the current calendar date in the trading zone
func (c *Crawler) Today() time.Time {
	now := c.now().In(c.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// errNoRows marks a symbol whose window came back empty
var errNoRows = errors.New("no trade rows returned")

func (c *Crawler) crawlTrades(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	itemCtx := context.WithoutCancel(ctx)

	fetchCtx, cancel := c.withTimeout(itemCtx)
	bars, err := c.source.FetchHistory(fetchCtx, symbol, from, to)
	cancel()
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch trade bars")
		return 0, contracts.NewSourceError("fetch history", symbol, err)
	}
	if len(bars) == 0 {
		c.logger.WithField("symbol", symbol).Debug("No trade rows in window")
		return 0, errNoRows
	}

	for i := range bars {
		bars[i].Symbol = symbol
	}

	written, err := c.store.UpsertTradeBars(itemCtx, bars)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol":  symbol,
			"rows":    len(bars),
			"written": written,
		}).Warn("Failed to save trade bars")
		return written, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   written,
	}).Debug("Crawled trade bars")

	return written, nil
}

package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stocklens/internal/crawler"
	"github.com/wonny/stocklens/pkg/logger"
)

// TradeCrawler crawls today's trade bars
type TradeCrawler interface {
	CrawlToday(ctx context.Context) (*crawler.TradeStats, error)
}

// DailyTradeJob crawls today's bars for every stored symbol after the close
// ⭐ SSOT: 일봉 수집 스케줄은 이 Job에서만
type DailyTradeJob struct {
	crawler TradeCrawler
	logger  *logger.Logger
}

// NewDailyTradeJob creates a new daily trade job
func NewDailyTradeJob(c TradeCrawler, log *logger.Logger) *DailyTradeJob {
	return &DailyTradeJob{
		crawler: c,
		logger:  log.Module("jobs"),
	}
}

// Name returns the job name
func (j *DailyTradeJob) Name() string {
	return "daily_trade"
}

// Schedule returns the cron schedule (every day at 4 PM, after the close)
func (j *DailyTradeJob) Schedule() string {
	return "0 0 16 * * *"
}

// Run executes the trade crawl. Per-symbol failures are counted, not returned.
func (j *DailyTradeJob) Run(ctx context.Context) error {
	stats, err := j.crawler.CrawlToday(ctx)
	if err != nil {
		return fmt.Errorf("crawl today: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"job":     j.Name(),
		"run_id":  stats.RunID,
		"date":    stats.From.Format("2006-01-02"),
		"success": stats.Success,
		"failed":  stats.Failed,
		"rows":    stats.Rows,
	}).Info("Daily trade crawl finished")

	return nil
}

package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stocklens/internal/crawler"
	"github.com/wonny/stocklens/pkg/logger"
)

// ReferenceCrawler refreshes symbol reference records
type ReferenceCrawler interface {
	CrawlIncremental(ctx context.Context, updateExisting bool, workers int) (*crawler.IncrementalStats, error)
}

// WeeklyReferenceJob re-crawls the whole universe, new and existing symbols
type WeeklyReferenceJob struct {
	crawler ReferenceCrawler
	workers int
	logger  *logger.Logger
}

// NewWeeklyReferenceJob creates a new weekly reference job
func NewWeeklyReferenceJob(c ReferenceCrawler, workers int, log *logger.Logger) *WeeklyReferenceJob {
	return &WeeklyReferenceJob{
		crawler: c,
		workers: workers,
		logger:  log.Module("jobs"),
	}
}

// Name returns the job name
func (j *WeeklyReferenceJob) Name() string {
	return "weekly_reference"
}

// Schedule returns the cron schedule (Mondays at 2 AM)
func (j *WeeklyReferenceJob) Schedule() string {
	return "0 0 2 * * 1"
}

// Run executes the incremental crawl with updateExisting
func (j *WeeklyReferenceJob) Run(ctx context.Context) error {
	stats, err := j.crawler.CrawlIncremental(ctx, true, j.workers)
	if err != nil {
		return fmt.Errorf("crawl incremental: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"job":     j.Name(),
		"run_id":  stats.RunID,
		"new":     stats.New,
		"updated": stats.Updated,
		"failed":  stats.Failed,
	}).Info("Weekly reference crawl finished")

	return nil
}

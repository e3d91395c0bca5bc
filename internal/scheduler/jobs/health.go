package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stocklens/pkg/logger"
)

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthJob pings the persistent store so outages show up in the logs
type StoreHealthJob struct {
	store  Pinger
	logger *logger.Logger
}

// NewStoreHealthJob creates a new store health job
func NewStoreHealthJob(store Pinger, log *logger.Logger) *StoreHealthJob {
	return &StoreHealthJob{
		store:  store,
		logger: log.Module("jobs"),
	}
}

// Name returns the job name
func (j *StoreHealthJob) Name() string {
	return "store_health"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *StoreHealthJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run pings the store
func (j *StoreHealthJob) Run(ctx context.Context) error {
	if err := j.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}

	j.logger.Debug("Store is healthy")
	return nil
}

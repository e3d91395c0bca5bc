package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID makes the next crawl started with ctx report id as its run id
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// RunStatus is the lifecycle state of an asynchronous crawl
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run tracks one asynchronous crawl
type Run struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     RunStatus   `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Runs keeps the most recent crawl runs in memory
type Runs struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	max   int
}

// NewRuns creates a registry that remembers at most max runs
func NewRuns(max int) *Runs {
	if max < 1 {
		max = 100
	}
	return &Runs{
		runs: make(map[string]*Run),
		max:  max,
	}
}

// Start registers a running crawl and returns its id
func (r *Runs) Start(kind string) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[id] = &Run{ID: id, Kind: kind, Status: RunRunning, StartedAt: time.Now()}
	r.order = append(r.order, id)
	for len(r.order) > r.max {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return id
}

// Finish records the outcome of a run
func (r *Runs) Finish(id string, result interface{}, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}

	now := time.Now()
	run.FinishedAt = &now
	run.Result = result
	run.Status = RunCompleted
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
	}
}

// Get returns a copy of the run
func (r *Runs) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

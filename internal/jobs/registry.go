package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRetention is how long terminal jobs stay queryable before the
	// janitor evicts them.
	DefaultRetention = time.Hour

	// janitorInterval is how often the janitor sweeps for evictable jobs.
	janitorInterval = time.Minute
)

// Registry is the process-wide job table. It is safe for concurrent use by
// the running jobs' writers, status readers, and cancellation callers.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	retention time.Duration
	logger    *slog.Logger
}

// RegistryConfig configures a new registry.
type RegistryConfig struct {
	// Retention is how long terminal jobs are kept (default 1h).
	Retention time.Duration
	Logger    *slog.Logger
}

// NewRegistry creates a new job registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		jobs:      make(map[string]*Job),
		retention: cfg.Retention,
		logger:    cfg.Logger,
	}
}

// Create registers a new pending job with the given stage count and returns
// it. The id is assigned here and never changes.
func (r *Registry) Create(total int) *Job {
	now := time.Now().UTC()
	job := &Job{
		snap: Snapshot{
			ID:        uuid.New().String(),
			Status:    StatusPending,
			Total:     total,
			Partials:  make(map[string]string),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	r.mu.Lock()
	r.jobs[job.ID()] = job
	r.mu.Unlock()

	r.logger.Info("job created", "id", job.ID(), "total", total)
	return job
}

// Get returns a snapshot of the job, if present.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

// Cancel requests cooperative cancellation of the job. Cancelling a terminal
// or unknown job is a no-op; the returned bool only reports existence.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	job.requestCancel()
	r.logger.Info("job cancel requested", "id", id)
	return true
}

// Clear removes the job from the registry, requesting cancellation first if
// it is still active. The job's goroutine, if any, finishes against the
// detached record and is then garbage collected.
func (r *Registry) Clear(id string) bool {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	job.requestCancel()
	r.logger.Info("job cleared", "id", id)
	return true
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// StartJanitor launches a background sweep that evicts terminal jobs older
// than the retention window. It stops when the context is cancelled.
// Non-terminal jobs are never evicted.
func (r *Registry) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.evictExpired()
			}
		}
	}()
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().UTC().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, job := range r.jobs {
		snap := job.Snapshot()
		if snap.Status.Terminal() && snap.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			r.logger.Info("job evicted", "id", id, "status", snap.Status)
		}
	}
}

// Package poller drives a CLI session against a running server: it polls an
// analysis job until it reaches a terminal state, streaming progress as
// partials land, and remembers the last job under the home state directory.
package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/stages"
)

// Config configures a Poller.
type Config struct {
	Client   *api.Client
	Interval time.Duration // default 1.2s
	Out      io.Writer     // progress output, default os.Stdout
	Logger   *slog.Logger
}

// Poller polls one job to completion.
type Poller struct {
	client   *api.Client
	interval time.Duration
	out      io.Writer
	logger   *slog.Logger
}

// New creates a poller.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 1200 * time.Millisecond
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		client:   cfg.Client,
		interval: cfg.Interval,
		out:      cfg.Out,
		logger:   cfg.Logger,
	}
}

// Wait polls the job until it reaches a terminal status and returns the
// final snapshot. Transient fetch failures are retried; the poll only fails
// after several consecutive errors.
func (p *Poller) Wait(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	lastStep := -1
	seen := make(map[string]bool)

	for {
		snap, err := p.fetch(ctx, jobID)
		if err != nil {
			return jobs.Snapshot{}, err
		}

		if snap.Step != lastStep || snap.CurrentLabel != "" {
			p.printProgress(snap, seen)
			lastStep = snap.Step
		}

		if snap.Status.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetch gets the job snapshot, retrying transient failures.
func (p *Poller) fetch(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	var snap jobs.Snapshot
	err := retry.Do(
		func() error {
			return p.client.Get(ctx, "/api/analyses/"+jobID, &snap)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("poll retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return jobs.Snapshot{}, fmt.Errorf("failed to poll job %s: %w", jobID, err)
	}
	return snap, nil
}

func (p *Poller) printProgress(snap jobs.Snapshot, seen map[string]bool) {
	labels := make([]string, 0, len(snap.Partials))
	for label := range snap.Partials {
		if !seen[label] {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	for _, label := range labels {
		seen[label] = true
		fmt.Fprintf(p.out, "  done: %s\n", label)
	}

	switch {
	case snap.Status == jobs.StatusRunning && snap.CurrentLabel != "":
		fmt.Fprintf(p.out, "[%d/%d] %s (%s)\n", snap.Step+1, snap.Total, snap.CurrentLabel, snap.CurrentAgent)
	case snap.Status.Terminal():
		fmt.Fprintf(p.out, "job %s: %s\n", snap.ID, snap.Status)
	}
}

// FetchResult downloads the finished bundle for a done job.
func (p *Poller) FetchResult(ctx context.Context, jobID string) (*stages.Bundle, error) {
	var bundle stages.Bundle
	if err := p.client.Get(ctx, "/api/analyses/"+jobID+"/result", &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Clear removes the job from the server, requesting cancellation first so a
// running job winds down. The cancel is best effort.
func (p *Poller) Clear(ctx context.Context, jobID string) error {
	if err := p.client.Post(ctx, "/api/analyses/"+jobID+"/cancel", nil, nil); err != nil {
		p.logger.Debug("cancel before clear failed", "job", jobID, "error", err)
	}
	return p.client.Delete(ctx, "/api/analyses/"+jobID)
}

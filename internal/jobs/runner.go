package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// FinalizeLabel is the label of the trailing finalize step. It is not an
// executor-backed stage; it derives the verdict, persists the report, and
// assembles the result bundle.
const FinalizeLabel = "finalize"

// Stage is one executor-backed step of a pipeline. Run receives the raw
// outputs of all previously completed stages keyed by label.
type Stage struct {
	Label string
	Agent string
	Run   func(ctx context.Context, prior map[string]string) (string, error)
}

// Pipeline describes a job's full stage sequence plus its finalize step.
// Finalize receives every stage output and returns derived partials to
// record (e.g. the alert verdict) and the final result bundle.
type Pipeline struct {
	Stages   []Stage
	Finalize func(ctx context.Context, outputs map[string]string) (derived map[string]string, result any, err error)
}

// Total returns the job's step count: all stages plus the finalize step.
func (p Pipeline) Total() int {
	return len(p.Stages) + 1
}

// Runner launches jobs and drives them through their pipelines. One runner
// serves all jobs; each job runs in its own goroutine, stages strictly
// sequential within a job.
type Runner struct {
	registry     *Registry
	stageTimeout time.Duration
	logger       *slog.Logger
}

// RunnerConfig configures a new runner.
type RunnerConfig struct {
	Registry *Registry
	// StageTimeout bounds a single stage call. A stage that exceeds it fails
	// the job with a timeout message (default 10m).
	StageTimeout time.Duration
	Logger       *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		registry:     cfg.Registry,
		stageTimeout: cfg.StageTimeout,
		logger:       cfg.Logger,
	}
}

// Launch creates a job for the pipeline, starts it in the background, and
// returns the job id immediately.
func (r *Runner) Launch(ctx context.Context, p Pipeline) string {
	job := r.registry.Create(p.Total())
	go r.run(ctx, job, p)
	return job.ID()
}

// run executes the pipeline against the job. Cancellation is cooperative:
// the flag is checked before each stage, never mid-stage, so every recorded
// partial is a fully-completed stage output.
func (r *Runner) run(ctx context.Context, job *Job, p Pipeline) {
	log := r.logger.With("job_id", job.ID())
	outputs := make(map[string]string, len(p.Stages))

	for _, stage := range p.Stages {
		if job.cancelPending() {
			job.cancelled()
			log.Info("job cancelled", "before_stage", stage.Label)
			return
		}

		job.startStage(stage.Label, stage.Agent)
		log.Info("stage started", "stage", stage.Label, "agent", stage.Agent)

		raw, err := r.runStage(ctx, stage, outputs)
		if err != nil {
			job.fail(err.Error())
			log.Error("stage failed", "stage", stage.Label, "error", err)
			return
		}

		outputs[stage.Label] = raw
		job.completeStage(stage.Label, raw)
		log.Info("stage completed", "stage", stage.Label, "output_bytes", len(raw))
	}

	if job.cancelPending() {
		job.cancelled()
		log.Info("job cancelled", "before_stage", FinalizeLabel)
		return
	}

	job.startStage(FinalizeLabel, "")
	derived, result, err := r.runFinalize(ctx, p, outputs)
	if err != nil {
		job.fail(err.Error())
		log.Error("finalize failed", "error", err)
		return
	}
	for label, raw := range derived {
		job.recordPartial(label, raw)
	}
	job.completeStage(FinalizeLabel, "")
	job.complete(result)
	log.Info("job done", "stages", len(p.Stages))
}

// runStage invokes one stage under the per-stage timeout.
func (r *Runner) runStage(ctx context.Context, stage Stage, prior map[string]string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	raw, err := stage.Run(sctx, prior)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("stage %s timed out after %s", stage.Label, r.stageTimeout)
		}
		return "", fmt.Errorf("stage %s failed: %w", stage.Label, err)
	}
	return raw, nil
}

func (r *Runner) runFinalize(ctx context.Context, p Pipeline, outputs map[string]string) (map[string]string, any, error) {
	fctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	derived, result, err := p.Finalize(fctx, outputs)
	if err != nil {
		return nil, nil, fmt.Errorf("finalize failed: %w", err)
	}
	return derived, result, nil
}

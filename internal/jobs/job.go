// Package jobs owns the analysis job lifecycle: an in-process registry of
// jobs keyed by id, and a runner that drives one job through its stage
// pipeline while publishing partial results for pollers.
package jobs

import (
	"sync"
	"time"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is absorbing: once reached, the job
// never changes again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// Snapshot is a point-in-time copy of a job's state. Snapshots are safe to
// hold and serialize; they never alias the live job.
type Snapshot struct {
	ID           string            `json:"job_id"`
	Status       Status            `json:"status"`
	Step         int               `json:"step"`
	Total        int               `json:"total"`
	Message      string            `json:"message,omitempty"`
	CurrentLabel string            `json:"current_label,omitempty"`
	CurrentAgent string            `json:"current_agent,omitempty"`
	Partials     map[string]string `json:"partials"`
	Result       any               `json:"result,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Job is one tracked analysis job. All access goes through its mutex so a
// status read never observes a partially-written field.
type Job struct {
	mu              sync.Mutex
	snap            Snapshot
	cancelRequested bool
}

// ID returns the job's immutable identifier.
func (j *Job) ID() string {
	return j.snap.ID
}

// Snapshot returns a deep copy of the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.snap
	snap.Partials = make(map[string]string, len(j.snap.Partials))
	for k, v := range j.snap.Partials {
		snap.Partials[k] = v
	}
	return snap
}

// requestCancel marks the job for cooperative cancellation. The flag is
// observed at stage boundaries only; a stage in flight runs to completion.
// Cancelling a terminal job is a no-op.
func (j *Job) requestCancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	j.cancelRequested = true
}

// cancelPending reports whether a cancel has been requested.
func (j *Job) cancelPending() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}

// startStage records the active stage. The first call moves the job from
// pending to running.
func (j *Job) startStage(label, agent string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	j.snap.Status = StatusRunning
	j.snap.CurrentLabel = label
	j.snap.CurrentAgent = agent
	j.snap.UpdatedAt = time.Now().UTC()
}

// completeStage records a stage's raw output and advances the step counter.
// Partials are append-only: an existing entry is never overwritten. Steps
// with no output (finalize) advance the counter without recording a partial.
func (j *Job) completeStage(label, raw string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	if _, exists := j.snap.Partials[label]; raw != "" && !exists {
		j.snap.Partials[label] = raw
	}
	j.snap.Step++
	j.snap.UpdatedAt = time.Now().UTC()
}

// recordPartial adds a derived partial without advancing the step counter.
func (j *Job) recordPartial(label, raw string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	if _, exists := j.snap.Partials[label]; !exists {
		j.snap.Partials[label] = raw
	}
	j.snap.UpdatedAt = time.Now().UTC()
}

// complete moves the job to done with its final result bundle.
func (j *Job) complete(result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	j.snap.Status = StatusDone
	j.snap.Result = result
	j.snap.CurrentLabel = ""
	j.snap.CurrentAgent = ""
	j.snap.UpdatedAt = time.Now().UTC()
}

// fail moves the job to error with the failure cause.
func (j *Job) fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	j.snap.Status = StatusError
	j.snap.Message = msg
	j.snap.CurrentLabel = ""
	j.snap.CurrentAgent = ""
	j.snap.UpdatedAt = time.Now().UTC()
}

// cancelled moves the job to cancelled.
func (j *Job) cancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.snap.Status.Terminal() {
		return
	}
	j.snap.Status = StatusCancelled
	j.snap.CurrentLabel = ""
	j.snap.CurrentAgent = ""
	j.snap.UpdatedAt = time.Now().UTC()
}

// Package registry is the source of truth for job state. Every read and
// write of a job record goes through one critical section; readers only
// ever receive copies, never live references.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"instadl/internal/entity"
	"instadl/pkg/gen"
)

// Patch is a partial job update. Nil fields are left untouched; set fields
// are applied atomically under the registry lock. Last write wins for
// progress updates, which is acceptable since only recency matters.
type Patch struct {
	Status   *entity.JobStatus
	Progress *int
	Error    *string
	Result   *entity.Result
}

// Registry owns all job records for the lifetime of the process.
type Registry struct {
	log *slog.Logger

	mu   sync.Mutex
	jobs map[string]*entity.Job
}

// New creates an empty job registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:  log.With(slog.String("package", "registry")),
		jobs: make(map[string]*entity.Job),
	}
}

// Create allocates a fresh job id, inserts a queued record and returns the
// id. Safe under arbitrary concurrent callers; ids are never reused.
func (r *Registry) Create(ctx context.Context, initial entity.Job) string {
	now := time.Now()

	job := initial.Clone()
	job.ID = gen.ID()
	job.Status = entity.JobStatusQueued
	job.Progress = 0
	job.Error = ""
	job.Result = nil
	job.CreatedAt = now
	job.UpdatedAt = now

	r.mu.Lock()
	r.jobs[job.ID] = &job
	r.mu.Unlock()

	r.log.DebugContext(ctx, "job created", "job", job)

	return job.ID
}

// Update merges a patch into the record if it exists; unknown ids are a
// silent no-op. Patches against a terminal record and status moves against
// the transition order are ignored, which keeps status monotonic along
// queued -> downloading -> processing -> {completed|failed}.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}

	if job.Status.Terminal() {
		return
	}

	if patch.Status != nil {
		if job.Status.Before(*patch.Status) || *patch.Status == job.Status {
			job.Status = *patch.Status
		} else {
			r.log.WarnContext(ctx, "ignoring out-of-order status",
				slog.String("job_id", id),
				slog.String("from", string(job.Status)),
				slog.String("to", string(*patch.Status)))

			return
		}
	}

	// progress never moves backward; a stale downloading event arriving
	// after the finished signal must not undo the 95 processing mark
	if patch.Progress != nil && *patch.Progress > job.Progress {
		job.Progress = *patch.Progress
	}

	// error and result are mutually exclusive on the record
	if patch.Error != nil && patch.Result == nil {
		job.Error = *patch.Error
		job.Result = nil
	}

	if patch.Result != nil && patch.Error == nil {
		res := *patch.Result
		job.Result = &res
		job.Error = ""
	}

	job.UpdatedAt = time.Now()

	r.log.DebugContext(ctx, "job updated", "job", *job)
}

// Snapshot returns a deep copy of the record, never a live reference.
func (r *Registry) Snapshot(_ context.Context, id string) (entity.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return entity.Job{}, false
	}

	return job.Clone(), true
}

// Len reports the number of stored jobs.
func (r *Registry) Len(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.jobs)
}

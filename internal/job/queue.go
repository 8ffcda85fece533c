package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queue is the persistence contract for jobs. Implementations must make
// Claim atomic so that concurrent workers never receive the same job, and
// must deliver at least once: a job claimed by a worker that dies before
// Complete becomes claimable again via RequeueStuck.
type Queue interface {
	// Enqueue persists a new pending job.
	Enqueue(ctx context.Context, j *Job) error

	// Claim atomically claims the next ready job on any of the given
	// queues, locking it for lockFor. Jobs whose RunAt is in the future are
	// not ready. Returns ErrNoJobToClaim when nothing is available.
	Claim(ctx context.Context, workerID uuid.UUID, queues []string, lockFor time.Duration) (*Job, error)

	// Complete marks a processing job as completed and releases its lock.
	Complete(ctx context.Context, jobID uuid.UUID) error

	// Fail records the error and increments the retry count. While retries
	// remain the job returns to pending with its RunAt pushed out by
	// RetryBackoff; once retries are exhausted it is marked failed.
	Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error

	// SetProgress updates the 0-100 progress of a processing job.
	SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error

	// JobState summarizes the jobs recorded for an entity.
	JobState(ctx context.Context, entityID uuid.UUID) (*EntityState, error)

	// RequeueStuck resets processing jobs whose lock has expired back to
	// pending so another worker can claim them. Returns the number of jobs
	// requeued.
	RequeueStuck(ctx context.Context) (int, error)
}

// EntityState is the job-derived view of an entity used by status reads:
// whether work is still in flight, whether anything has permanently failed,
// and the most recently created job.
type EntityState struct {
	HasActiveJob bool
	HasFailedJob bool
	Latest       *Job
}

// Reporter lets a handler publish coarse progress while it works. Progress
// updates are best effort; a failed update never fails the job.
type Reporter interface {
	Report(ctx context.Context, percent int)
}

// Handler processes jobs from a single queue.
type Handler interface {
	// Queue returns the queue name this handler serves.
	Queue() string

	// Handle executes the job. Returning an error triggers the retry and
	// backoff cycle; returning nil completes the job.
	Handle(ctx context.Context, j *Job, progress Reporter) error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// PostgresJobQueue implements the job.Queue interface on a jobs table.
// Claiming uses FOR UPDATE SKIP LOCKED so concurrent workers never hand
// out the same job twice; a crashed worker's job comes back through
// RequeueStuck once its lock expires.
type PostgresJobQueue struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresJobQueue creates a new PostgreSQL-backed job queue. Unlike
// the stores, it owns its transactions and therefore needs the full
// connection pool rather than a DBTX.
func NewPostgresJobQueue(db *sql.DB, logger *slog.Logger) *PostgresJobQueue {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobQueue{
		db:     db,
		logger: logger.With(slog.String("component", "job_queue")),
	}
}

var _ job.Queue = (*PostgresJobQueue)(nil)

const jobColumns = `id, queue, entity_id, payload, status, progress, retry_count,
		max_retries, run_at, locked_until, locked_by, error_message, created_at, updated_at`

// Enqueue implements job.Queue.Enqueue.
func (q *PostgresJobQueue) Enqueue(ctx context.Context, j *job.Job) error {
	log := logger.FromContextOrDefault(ctx, q.logger)

	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.db.ExecContext(ctx, query,
		j.ID,
		j.Queue,
		j.EntityID,
		[]byte(j.Payload),
		j.Status,
		j.Progress,
		j.RetryCount,
		j.MaxRetries,
		j.RunAt,
		j.LockedUntil,
		j.LockedBy,
		j.Error,
		j.CreatedAt,
		j.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to enqueue job",
			slog.String("error", err.Error()),
			slog.String("job_id", j.ID.String()),
			slog.String("queue", j.Queue))
		return MapError(err)
	}

	log.Debug("job enqueued",
		slog.String("job_id", j.ID.String()),
		slog.String("queue", j.Queue),
		slog.Time("run_at", j.RunAt))
	return nil
}

// Claim implements job.Queue.Claim. It atomically moves the oldest
// runnable job in the given queues to processing and locks it for the
// worker. Returns job.ErrNoJobToClaim when nothing is runnable.
func (q *PostgresJobQueue) Claim(ctx context.Context, workerID uuid.UUID, queues []string, lockFor time.Duration) (*job.Job, error) {
	log := logger.FromContextOrDefault(ctx, q.logger)
	now := time.Now().UTC()

	selectQuery, args, err := psql.
		Select("id", "queue", "entity_id", "payload", "status", "progress",
			"retry_count", "max_retries", "run_at", "locked_until", "locked_by",
			"error_message", "created_at", "updated_at").
		From("jobs").
		Where(sq.Eq{"status": job.StatusPending}).
		Where(sq.Eq{"queue": queues}).
		Where(sq.LtOrEq{"run_at": now}).
		OrderBy("run_at ASC", "created_at ASC").
		Limit(1).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, err
	}

	var claimed *job.Job
	err = store.RunInTransaction(ctx, q.db, func(ctx context.Context, tx *sql.Tx) error {
		j, err := scanJob(tx.QueryRowContext(ctx, selectQuery, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return job.ErrNoJobToClaim
			}
			return err
		}

		lockedUntil := now.Add(lockFor)
		updateQuery := `
			UPDATE jobs
			SET status = $1, locked_by = $2, locked_until = $3, updated_at = $4
			WHERE id = $5
		`
		if _, err := tx.ExecContext(ctx, updateQuery,
			job.StatusProcessing, workerID, lockedUntil, now, j.ID); err != nil {
			return err
		}

		j.Status = job.StatusProcessing
		j.LockedBy = &workerID
		j.LockedUntil = &lockedUntil
		j.UpdatedAt = now
		claimed = j
		return nil
	})
	if err != nil {
		if errors.Is(err, job.ErrNoJobToClaim) {
			return nil, job.ErrNoJobToClaim
		}
		log.Error("failed to claim job", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("job claimed",
		slog.String("job_id", claimed.ID.String()),
		slog.String("queue", claimed.Queue),
		slog.String("worker_id", workerID.String()))
	return claimed, nil
}

// Complete implements job.Queue.Complete.
// Returns job.ErrNotProcessing if the job is not currently processing.
func (q *PostgresJobQueue) Complete(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, progress = 100, locked_by = NULL, locked_until = NULL,
			error_message = '', updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := q.db.ExecContext(ctx, query,
		job.StatusCompleted, time.Now().UTC(), jobID, job.StatusProcessing)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, job.ErrNotProcessing)
}

// Fail implements job.Queue.Fail. A job with retries left goes back to
// pending with a backoff delay; an exhausted one lands in failed.
func (q *PostgresJobQueue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	log := logger.FromContextOrDefault(ctx, q.logger)
	now := time.Now().UTC()

	err := store.RunInTransaction(ctx, q.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			SELECT ` + jobColumns + `
			FROM jobs
			WHERE id = $1
			FOR UPDATE
		`
		j, err := scanJob(tx.QueryRowContext(ctx, query, jobID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrJobNotFound
			}
			return err
		}
		if j.Status != job.StatusProcessing {
			return job.ErrNotProcessing
		}

		j.RetryCount++
		status := job.StatusPending
		runAt := now.Add(job.RetryBackoff(j.RetryCount))
		if j.RetryCount >= j.MaxRetries {
			status = job.StatusFailed
			runAt = j.RunAt
		}

		updateQuery := `
			UPDATE jobs
			SET status = $1, retry_count = $2, run_at = $3, error_message = $4,
				locked_by = NULL, locked_until = NULL, updated_at = $5
			WHERE id = $6
		`
		_, err = tx.ExecContext(ctx, updateQuery,
			status, j.RetryCount, runAt, errMsg, now, jobID)
		return err
	})
	if err != nil {
		if errors.Is(err, job.ErrNotProcessing) || errors.Is(err, store.ErrJobNotFound) {
			return err
		}
		log.Error("failed to fail job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return MapError(err)
	}
	return nil
}

// SetProgress implements job.Queue.SetProgress.
// Returns job.ErrNotProcessing if the job is not currently processing.
func (q *PostgresJobQueue) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	query := `
		UPDATE jobs
		SET progress = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := q.db.ExecContext(ctx, query,
		progress, time.Now().UTC(), jobID, job.StatusProcessing)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, job.ErrNotProcessing)
}

// JobState implements job.Queue.JobState, summarizing all jobs recorded
// against an entity.
func (q *PostgresJobQueue) JobState(ctx context.Context, entityID uuid.UUID) (*job.EntityState, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE entity_id = $1
		ORDER BY created_at DESC
	`
	rows, err := q.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	state := &job.EntityState{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, MapError(err)
		}
		if state.Latest == nil {
			state.Latest = j
		}
		if j.Active() {
			state.HasActiveJob = true
		}
		if j.Status == job.StatusFailed {
			state.HasFailedJob = true
		}
	}
	return state, rows.Err()
}

// RequeueStuck implements job.Queue.RequeueStuck, releasing processing
// jobs whose worker lock has expired back to pending.
func (q *PostgresJobQueue) RequeueStuck(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, q.logger)
	now := time.Now().UTC()

	query := `
		UPDATE jobs
		SET status = $1, locked_by = NULL, locked_until = NULL, updated_at = $2
		WHERE status = $3 AND locked_until IS NOT NULL AND locked_until < $2
	`
	result, err := q.db.ExecContext(ctx, query, job.StatusPending, now, job.StatusProcessing)
	if err != nil {
		log.Error("failed to requeue stuck jobs", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanJob(row scanner) (*job.Job, error) {
	var j job.Job
	var status string
	var payload []byte

	err := row.Scan(
		&j.ID,
		&j.Queue,
		&j.EntityID,
		&payload,
		&status,
		&j.Progress,
		&j.RetryCount,
		&j.MaxRetries,
		&j.RunAt,
		&j.LockedUntil,
		&j.LockedBy,
		&j.Error,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Payload = payload
	j.Status = job.Status(status)
	return &j, nil
}

package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

var (
	// ErrVersionNotApproved indicates an attempt to schedule a version that
	// has not passed admin review.
	ErrVersionNotApproved = errors.New("version is not approved for publishing")

	// ErrNotScheduled indicates a cancellation for a version that has no
	// active schedule.
	ErrNotScheduled = errors.New("version has no active schedule")
)

// Scheduler records publish schedules and enqueues their delayed jobs.
type Scheduler struct {
	db       *sql.DB
	queue    job.Queue
	orders   store.OrderStore
	articles store.ArticleStore
	versions store.VersionStore
	logger   *slog.Logger
}

// New creates a Scheduler.
func New(
	db *sql.DB,
	queue job.Queue,
	orders store.OrderStore,
	articles store.ArticleStore,
	versions store.VersionStore,
	logger *slog.Logger,
) (*Scheduler, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if queue == nil {
		return nil, job.ErrNilQueue
	}
	if orders == nil {
		return nil, fmt.Errorf("order store cannot be nil")
	}
	if articles == nil {
		return nil, fmt.Errorf("article store cannot be nil")
	}
	if versions == nil {
		return nil, fmt.Errorf("version store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		db:       db,
		queue:    queue,
		orders:   orders,
		articles: articles,
		versions: versions,
		logger:   logger.With(slog.String("component", "scheduler")),
	}, nil
}

// SchedulePublish marks an approved version and its order as scheduled and
// enqueues a delayed publish job for the given time. Fire-and-forget: the
// caller gets the job handle back immediately.
func (s *Scheduler) SchedulePublish(ctx context.Context, orderID, versionID uuid.UUID, at time.Time) (*job.Job, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("resolving version %s: %w", versionID, err)
	}
	if version.ReviewStatus != domain.ReviewApproved {
		return nil, fmt.Errorf("%w: version %s is %s", ErrVersionNotApproved, versionID, version.ReviewStatus)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("resolving order %s: %w", orderID, err)
	}
	article, err := s.articles.GetByID(ctx, order.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("resolving article %s: %w", order.ArticleID, err)
	}
	site, err := s.articles.GetDomain(ctx, article.DomainID)
	if err != nil {
		return nil, fmt.Errorf("resolving domain for article %s: %w", article.ID, err)
	}

	// The token ties the queue entry to this scheduling. Re-scheduling a
	// later version issues a fresh token, so a stale delivery cannot act.
	token := uuid.NewString()
	if err := version.Schedule(at, token); err != nil {
		return nil, err
	}

	scheduledAt := at.UTC()
	order.ScheduledAt = &scheduledAt
	if err := order.UpdateScheduleStatus(domain.ScheduleScheduled); err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.versions.WithTx(tx).Update(ctx, version); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Update(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("recording schedule: %w", err)
	}

	payload := processor.PublishPayload{
		OrderID:       order.ID,
		ArticleID:     article.ID,
		VersionID:     version.ID,
		DomainName:    site.Name,
		ScheduledAt:   scheduledAt,
		JobToken:      token,
		CustomerEmail: order.CustomerEmail,
	}
	j, err := job.New(job.QueueScheduledPublish, order.ID, payload, job.WithRunAt(scheduledAt))
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, j); err != nil {
		return nil, fmt.Errorf("enqueuing publish job: %w", err)
	}

	s.logger.Info("publish scheduled",
		slog.String("order_id", order.ID.String()),
		slog.String("version_id", version.ID.String()),
		slog.Time("at", scheduledAt),
		slog.String("job_id", j.ID.String()))
	return j, nil
}

// CancelScheduledPublish flips the version and order to CANCELLED. The
// queue entry stays where it is; the publish processor sees the cancelled
// status when the job eventually fires and does nothing.
func (s *Scheduler) CancelScheduledPublish(ctx context.Context, orderID, versionID uuid.UUID) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("resolving version %s: %w", versionID, err)
	}
	if version.ScheduleStatus != domain.ScheduleScheduled {
		return fmt.Errorf("%w: version %s is %s", ErrNotScheduled, versionID, version.ScheduleStatus)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("resolving order %s: %w", orderID, err)
	}

	if err := version.UpdateScheduleStatus(domain.ScheduleCancelled); err != nil {
		return err
	}
	if order.ScheduleStatus.CanTransition(domain.ScheduleCancelled) {
		if err := order.UpdateScheduleStatus(domain.ScheduleCancelled); err != nil {
			return err
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.versions.WithTx(tx).Update(ctx, version); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Update(ctx, order)
	})
	if err != nil {
		return fmt.Errorf("recording cancellation: %w", err)
	}

	s.logger.Info("scheduled publish cancelled",
		slog.String("order_id", orderID.String()),
		slog.String("version_id", versionID.String()))
	return nil
}

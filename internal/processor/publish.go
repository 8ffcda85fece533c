package processor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// exclusiveHoldDuration is how long an exclusive backlink purchase keeps
// the article slot off the market after publication.
const exclusiveHoldDuration = 30 * 24 * time.Hour

// PublishHandler executes scheduled publishes. Cancellation is cooperative:
// the scheduled job always fires, and every business check happens here, at
// execution time, against current persisted state. The handler
// short-circuits in order: token/status mismatch, post-enqueue rejection,
// idempotent replay, then the publish itself.
type PublishHandler struct {
	db        *sql.DB
	orders    store.OrderStore
	articles  store.ArticleStore
	versions  store.VersionStore
	publisher Publisher
	notifier  Notifier
	logger    *slog.Logger
}

// NewPublishHandler wires the scheduled-publish queue handler.
func NewPublishHandler(
	db *sql.DB,
	orders store.OrderStore,
	articles store.ArticleStore,
	versions store.VersionStore,
	publisher Publisher,
	notifier Notifier,
	logger *slog.Logger,
) (*PublishHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
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
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PublishHandler{
		db:        db,
		orders:    orders,
		articles:  articles,
		versions:  versions,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With(slog.String("processor", job.QueueScheduledPublish)),
	}, nil
}

// Queue implements job.Handler.
func (h *PublishHandler) Queue() string { return job.QueueScheduledPublish }

// Handle implements job.Handler.
func (h *PublishHandler) Handle(ctx context.Context, j *job.Job, progress job.Reporter) error {
	var pl PublishPayload
	if err := j.DecodePayload(&pl); err != nil {
		return err
	}

	log := h.logger.With(
		slog.String("order_id", pl.OrderID.String()),
		slog.String("version_id", pl.VersionID.String()))

	version, err := h.versions.GetByID(ctx, pl.VersionID)
	if err != nil {
		log.Error("version resolution failed", slog.String("error", err.Error()))
		notify(ctx, h.notifier, log, TemplatePublishFailed, pl.CustomerEmail, map[string]any{
			"order_id": pl.OrderID,
			"error":    "scheduled version could not be resolved",
		})
		return err
	}

	// A version rescheduled after this job was enqueued carries a fresh
	// token; the superseded delivery must not act.
	if pl.JobToken != "" && version.JobToken != pl.JobToken {
		log.Info("job token superseded, skipping")
		return nil
	}

	if version.ScheduleStatus != domain.ScheduleScheduled {
		log.Info("schedule status mismatch, skipping",
			slog.String("schedule_status", string(version.ScheduleStatus)))
		return nil
	}

	order, err := h.orders.GetByID(ctx, pl.OrderID)
	if err != nil {
		return h.abort(ctx, log, version, nil, nil, nil, pl.CustomerEmail,
			fmt.Errorf("resolving order %s: %w", pl.OrderID, err))
	}
	article, err := h.articles.GetByID(ctx, pl.ArticleID)
	if err != nil {
		return h.abort(ctx, log, version, order, nil, nil, pl.CustomerEmail,
			fmt.Errorf("resolving article %s: %w", pl.ArticleID, err))
	}
	progress.Report(ctx, 20)

	// Rejection or order failure between enqueue and execution cancels the
	// publish instead of letting stale work go live.
	if version.ReviewStatus == domain.ReviewRejected ||
		order.Status == domain.OrderFailed || order.Status == domain.OrderRefunded {
		h.cancel(ctx, log, version, order, article, pl.CustomerEmail)
		return nil
	}

	// Redelivery of an already-executed publish is a no-op beyond settling
	// statuses. The Publisher must not run twice.
	if article.Published && article.SelectedVersionID != nil && *article.SelectedVersionID == version.ID {
		log.Info("version already live, settling statuses")
		return h.settle(ctx, version, order)
	}

	prevSelected := article.SelectedVersionID
	if order.Exclusive() {
		// HoldExclusive runs before the selection swap so the rollback
		// target is the version that was live until now.
		article.HoldExclusive(time.Now().UTC().Add(exclusiveHoldDuration))
	}
	article.SelectedVersionID = &version.ID
	if err := h.articles.Update(ctx, article); err != nil {
		return h.abort(ctx, log, version, order, article, prevSelected, pl.CustomerEmail, err)
	}

	path, err := h.publisher.Publish(ctx, article.ID, pl.DomainName)
	if err != nil {
		return h.abort(ctx, log, version, order, article, prevSelected, pl.CustomerEmail, err)
	}
	progress.Report(ctx, 60)

	err = store.RunInTransaction(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		article.Published = true
		article.UpdatedAt = time.Now().UTC()
		if err := h.articles.WithTx(tx).Update(ctx, article); err != nil {
			return err
		}

		if err := version.UpdateScheduleStatus(domain.ScheduleExecuted); err != nil {
			return err
		}
		if err := h.versions.WithTx(tx).Update(ctx, version); err != nil {
			return err
		}

		if err := order.UpdateScheduleStatus(domain.ScheduleExecuted); err != nil {
			return err
		}
		if err := order.UpdateStatus(domain.OrderCompleted); err != nil {
			return err
		}
		return h.orders.WithTx(tx).Update(ctx, order)
	})
	if err != nil {
		return h.abort(ctx, log, version, order, article, prevSelected, pl.CustomerEmail, err)
	}

	notify(ctx, h.notifier, log, TemplatePublishComplete, pl.CustomerEmail, map[string]any{
		"order_id":   pl.OrderID,
		"article_id": pl.ArticleID,
		"version_id": pl.VersionID,
		"path":       path,
	})
	progress.Report(ctx, 100)

	log.Info("scheduled publish executed", slog.String("path", path))
	return nil
}

// settle finishes the bookkeeping for a publish whose side effects already
// landed: version and order move to their executed/completed states.
func (h *PublishHandler) settle(ctx context.Context, version *domain.ArticleVersion, order *domain.Order) error {
	return store.RunInTransaction(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		if version.ScheduleStatus.CanTransition(domain.ScheduleExecuted) {
			if err := version.UpdateScheduleStatus(domain.ScheduleExecuted); err != nil {
				return err
			}
			if err := h.versions.WithTx(tx).Update(ctx, version); err != nil {
				return err
			}
		}
		if order.ScheduleStatus.CanTransition(domain.ScheduleExecuted) {
			if err := order.UpdateScheduleStatus(domain.ScheduleExecuted); err != nil {
				return err
			}
		}
		if order.Status.CanTransition(domain.OrderCompleted) {
			if err := order.UpdateStatus(domain.OrderCompleted); err != nil {
				return err
			}
		}
		return h.orders.WithTx(tx).Update(ctx, order)
	})
}

// cancel compensates for a rejection or order failure discovered at
// execution time. The publish never happened, so only statuses and the
// article's availability are touched.
func (h *PublishHandler) cancel(
	ctx context.Context,
	log *slog.Logger,
	version *domain.ArticleVersion,
	order *domain.Order,
	article *domain.Article,
	email string,
) {
	log.Info("cancelling scheduled publish",
		slog.String("review_status", string(version.ReviewStatus)),
		slog.String("order_status", string(order.Status)))

	h.applyCancellation(ctx, log, version, order, article)

	notify(ctx, h.notifier, log, TemplatePublishCancelled, email, map[string]any{
		"order_id":   order.ID,
		"version_id": version.ID,
	})
}

// abort handles an unexpected failure mid-publish: cancel statuses, restore
// the article, notify, and return the error so the queue records the
// attempt. No business-level retry follows.
func (h *PublishHandler) abort(
	ctx context.Context,
	log *slog.Logger,
	version *domain.ArticleVersion,
	order *domain.Order,
	article *domain.Article,
	prevSelected *uuid.UUID,
	email string,
	err error,
) error {
	log.Error("scheduled publish failed", slog.String("error", err.Error()))

	if article != nil {
		article.SelectedVersionID = prevSelected
	}
	h.applyCancellation(ctx, log, version, order, article)

	payload := map[string]any{"error": "scheduled publish failed"}
	if order != nil {
		payload["order_id"] = order.ID
	}
	notify(ctx, h.notifier, log, TemplatePublishFailed, email, payload)
	return err
}

// applyCancellation persists the cancelled/failed terminal states. Each
// write is best effort; a partial compensation is still better than none,
// and the execution-time checks tolerate re-runs.
func (h *PublishHandler) applyCancellation(
	ctx context.Context,
	log *slog.Logger,
	version *domain.ArticleVersion,
	order *domain.Order,
	article *domain.Article,
) {
	if version != nil && version.ScheduleStatus.CanTransition(domain.ScheduleCancelled) {
		if err := version.UpdateScheduleStatus(domain.ScheduleCancelled); err == nil {
			if err := h.versions.Update(ctx, version); err != nil {
				log.Error("failed to persist cancelled version", slog.String("error", err.Error()))
			}
		}
	}

	if order != nil {
		changed := false
		if order.ScheduleStatus.CanTransition(domain.ScheduleCancelled) {
			if err := order.UpdateScheduleStatus(domain.ScheduleCancelled); err == nil {
				changed = true
			}
		}
		if !order.Status.Terminal() {
			if err := order.UpdateStatus(domain.OrderFailed); err == nil {
				changed = true
			}
		}
		if changed {
			if err := h.orders.Update(ctx, order); err != nil {
				log.Error("failed to persist cancelled order", slog.String("error", err.Error()))
			}
		}
	}

	if article != nil {
		article.ReleaseHold()
		if err := h.articles.Update(ctx, article); err != nil {
			log.Error("failed to restore article availability", slog.String("error", err.Error()))
		}
	}
}

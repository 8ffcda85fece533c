package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/platform/logger"
	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
	"github.com/Inferno2211/blog-gen-sub002/internal/qc"
	"github.com/Inferno2211/blog-gen-sub002/internal/scheduler"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// GenerationParams describes a fresh-content purchase to enqueue.
type GenerationParams struct {
	OrderID                uuid.UUID
	ArticleID              uuid.UUID
	Topic                  string
	Keywords               []string
	Backlink               domain.BacklinkRequest
	InternalLinkCandidates []string
	CustomerEmail          string
}

// IntegrationParams describes a backlink integration to enqueue.
type IntegrationParams struct {
	OrderID        uuid.UUID
	ArticleID      uuid.UUID
	Backlink       domain.BacklinkRequest
	CustomerEmail  string
	IsRegeneration bool
}

// PipelineService is the application surface of the content pipeline.
// Enqueue operations persist a job and return immediately; the runner's
// workers do the heavy lifting out of band.
type PipelineService struct {
	db        *sql.DB
	queue     job.Queue
	scheduler *scheduler.Scheduler
	loop      processor.QCRunner
	orders    store.OrderStore
	articles  store.ArticleStore
	versions  store.VersionStore
	logger    *slog.Logger
}

// NewPipelineService creates the service facade. All dependencies except
// the logger are required.
func NewPipelineService(
	db *sql.DB,
	queue job.Queue,
	sched *scheduler.Scheduler,
	loop processor.QCRunner,
	orders store.OrderStore,
	articles store.ArticleStore,
	versions store.VersionStore,
	log *slog.Logger,
) (*PipelineService, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if queue == nil {
		return nil, job.ErrNilQueue
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if loop == nil {
		return nil, fmt.Errorf("qc runner cannot be nil")
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
	if log == nil {
		log = slog.Default()
	}

	return &PipelineService{
		db:        db,
		queue:     queue,
		scheduler: sched,
		loop:      loop,
		orders:    orders,
		articles:  articles,
		versions:  versions,
		logger:    log.With(slog.String("component", "pipeline_service")),
	}, nil
}

// EnqueueGeneration queues fresh article generation for an order. The
// caller gets the job handle back without waiting for any work.
func (s *PipelineService) EnqueueGeneration(ctx context.Context, params GenerationParams) (*job.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.orders.GetByID(ctx, params.OrderID); err != nil {
		return nil, newServiceError("enqueue_generation", "order lookup failed", err)
	}

	payload := processor.GenerationPayload{
		OrderID:                params.OrderID,
		ArticleID:              params.ArticleID,
		Topic:                  params.Topic,
		Keywords:               params.Keywords,
		Backlink:               params.Backlink,
		InternalLinkCandidates: params.InternalLinkCandidates,
		CustomerEmail:          params.CustomerEmail,
	}
	j, err := job.New(job.QueueGenerateArticle, params.OrderID, payload)
	if err != nil {
		return nil, newServiceError("enqueue_generation", "building job", err)
	}
	if err := s.queue.Enqueue(ctx, j); err != nil {
		return nil, newServiceError("enqueue_generation", "enqueuing job", err)
	}

	log.Info("generation enqueued",
		slog.String("order_id", params.OrderID.String()),
		slog.String("job_id", j.ID.String()))
	return j, nil
}

// EnqueueIntegration queues a backlink integration for an order.
func (s *PipelineService) EnqueueIntegration(ctx context.Context, params IntegrationParams) (*job.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.Backlink.TargetURL == "" || params.Backlink.AnchorText == "" {
		return nil, ErrMissingBacklink
	}
	if _, err := s.orders.GetByID(ctx, params.OrderID); err != nil {
		return nil, newServiceError("enqueue_integration", "order lookup failed", err)
	}

	payload := processor.IntegrationPayload{
		OrderID:        params.OrderID,
		ArticleID:      params.ArticleID,
		Backlink:       params.Backlink,
		CustomerEmail:  params.CustomerEmail,
		IsRegeneration: params.IsRegeneration,
	}
	j, err := job.New(job.QueueIntegrateBacklink, params.OrderID, payload)
	if err != nil {
		return nil, newServiceError("enqueue_integration", "building job", err)
	}
	if err := s.queue.Enqueue(ctx, j); err != nil {
		return nil, newServiceError("enqueue_integration", "enqueuing job", err)
	}

	log.Info("integration enqueued",
		slog.String("order_id", params.OrderID.String()),
		slog.Bool("regeneration", params.IsRegeneration),
		slog.String("job_id", j.ID.String()))
	return j, nil
}

// RequestRegeneration is the customer back-edge: an order parked in
// quality check gets another integration pass against the live article.
// Repeats are unbounded.
func (s *PipelineService) RequestRegeneration(ctx context.Context, orderID uuid.UUID) (*job.Job, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, newServiceError("request_regeneration", "order lookup failed", err)
	}
	if order.Status != domain.OrderQualityCheck {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotRegenerable, orderID, order.Status)
	}

	return s.EnqueueIntegration(ctx, IntegrationParams{
		OrderID:        order.ID,
		ArticleID:      order.ArticleID,
		Backlink:       order.Backlink,
		CustomerEmail:  order.CustomerEmail,
		IsRegeneration: true,
	})
}

// EnqueueScheduledPublish schedules a publish for an approved version.
func (s *PipelineService) EnqueueScheduledPublish(ctx context.Context, orderID, versionID uuid.UUID, at time.Time) (*job.Job, error) {
	return s.scheduler.SchedulePublish(ctx, orderID, versionID, at)
}

// CancelScheduledPublish cooperatively cancels a pending publish.
func (s *PipelineService) CancelScheduledPublish(ctx context.Context, orderID, versionID uuid.UUID) error {
	return s.scheduler.CancelScheduledPublish(ctx, orderID, versionID)
}

// GetJobState reports the job-derived status of an order.
func (s *PipelineService) GetJobState(ctx context.Context, orderID uuid.UUID) (*job.EntityState, error) {
	state, err := s.queue.JobState(ctx, orderID)
	if err != nil {
		return nil, newServiceError("get_job_state", "reading job state", err)
	}
	return state, nil
}

// PerformQC runs the quality-control cycle synchronously, outside any job.
// Used for non-queued admin edits: the draft is checked on the first
// attempt and regenerated on later ones, exactly as inside processors.
func (s *PipelineService) PerformQC(
	ctx context.Context,
	articleID uuid.UUID,
	draft string,
	maxAttempts int,
	constraints qc.Constraints,
) (*qc.Result, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, newServiceError("perform_qc", "article lookup failed", err)
	}
	site, err := s.articles.GetDomain(ctx, article.DomainID)
	if err != nil {
		return nil, newServiceError("perform_qc", "domain lookup failed", err)
	}

	brief := generation.Brief{DomainName: site.Name}
	if constraints.RequiredBacklink != nil {
		brief.Backlink = *constraints.RequiredBacklink
	}
	brief.InternalLinkCandidates = constraints.InternalLinkCandidates

	return s.loop.Run(ctx, articleID, brief, qc.Options{
		MaxAttempts: maxAttempts,
		Draft:       draft,
		Constraints: constraints,
	})
}

// ApproveVersion records an admin approval. The order follows the version
// into admin review if it was still with the customer, and a non-nil
// publishAt schedules the publish in the same call.
func (s *PipelineService) ApproveVersion(
	ctx context.Context,
	orderID, versionID uuid.UUID,
	publishAt *time.Time,
) (*job.Job, error) {
	version, order, err := s.reviewPair(ctx, orderID, versionID)
	if err != nil {
		return nil, err
	}

	if err := s.decideReview(ctx, version, order, domain.ReviewApproved); err != nil {
		return nil, err
	}

	if publishAt == nil {
		return nil, nil
	}
	return s.scheduler.SchedulePublish(ctx, orderID, versionID, *publishAt)
}

// RejectVersion records an admin rejection. The order fails; the customer
// keeps the article slot only by starting over with a new order.
func (s *PipelineService) RejectVersion(ctx context.Context, orderID, versionID uuid.UUID) error {
	version, order, err := s.reviewPair(ctx, orderID, versionID)
	if err != nil {
		return err
	}
	return s.decideReview(ctx, version, order, domain.ReviewRejected)
}

func (s *PipelineService) reviewPair(ctx context.Context, orderID, versionID uuid.UUID) (*domain.ArticleVersion, *domain.Order, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, nil, newServiceError("review", "version lookup failed", err)
	}
	if version.ReviewStatus.Terminal() {
		return nil, nil, fmt.Errorf("%w: version %s is %s", ErrVersionNotReviewable, versionID, version.ReviewStatus)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, newServiceError("review", "order lookup failed", err)
	}
	return version, order, nil
}

// decideReview moves the version through pending into its decision and
// settles the order accordingly, atomically.
func (s *PipelineService) decideReview(
	ctx context.Context,
	version *domain.ArticleVersion,
	order *domain.Order,
	decision domain.ReviewStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if version.ReviewStatus == domain.ReviewNone {
		if err := version.UpdateReviewStatus(domain.ReviewPending); err != nil {
			return err
		}
	}
	if err := version.UpdateReviewStatus(decision); err != nil {
		return err
	}

	switch decision {
	case domain.ReviewApproved:
		if order.Status == domain.OrderQualityCheck {
			if err := order.UpdateStatus(domain.OrderAdminReview); err != nil {
				return err
			}
		}
	case domain.ReviewRejected:
		if !order.Status.Terminal() {
			if err := order.UpdateStatus(domain.OrderFailed); err != nil {
				return err
			}
		}
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.versions.WithTx(tx).Update(ctx, version); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Update(ctx, order)
	})
	if err != nil {
		return newServiceError("review", "recording review decision", err)
	}

	log.Info("review recorded",
		slog.String("version_id", version.ID.String()),
		slog.String("order_id", order.ID.String()),
		slog.String("decision", string(decision)))
	return nil
}

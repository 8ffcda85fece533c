package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/qc"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// GenerateHandler produces fresh article content for a new order: it moves
// the order to PROCESSING, runs the quality-control cycle against the
// order's backlink and link constraints, attaches the passing version and
// parks the order in QUALITY_CHECK for the customer.
type GenerateHandler struct {
	orders   store.OrderStore
	articles store.ArticleStore
	runner   QCRunner
	notifier Notifier
	logger   *slog.Logger
}

// NewGenerateHandler wires the generate-article queue handler.
func NewGenerateHandler(
	orders store.OrderStore,
	articles store.ArticleStore,
	runner QCRunner,
	notifier Notifier,
	logger *slog.Logger,
) (*GenerateHandler, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store cannot be nil")
	}
	if articles == nil {
		return nil, fmt.Errorf("article store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("qc runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GenerateHandler{
		orders:   orders,
		articles: articles,
		runner:   runner,
		notifier: notifier,
		logger:   logger.With(slog.String("processor", job.QueueGenerateArticle)),
	}, nil
}

// Queue implements job.Handler.
func (h *GenerateHandler) Queue() string { return job.QueueGenerateArticle }

// Handle implements job.Handler.
func (h *GenerateHandler) Handle(ctx context.Context, j *job.Job, progress job.Reporter) error {
	var pl GenerationPayload
	if err := j.DecodePayload(&pl); err != nil {
		return err
	}

	log := h.logger.With(
		slog.String("order_id", pl.OrderID.String()),
		slog.String("article_id", pl.ArticleID.String()))

	oc, err := resolveOrderContext(ctx, h.orders, h.articles, pl.OrderID, pl.ArticleID)
	if err != nil {
		log.Error("context resolution failed", slog.String("error", err.Error()))
		notify(ctx, h.notifier, log, TemplateGenerationFailed, pl.CustomerEmail, map[string]any{
			"order_id": pl.OrderID,
			"error":    "order context could not be resolved",
		})
		return err
	}

	// A redelivered job for a settled order is a no-op.
	if oc.order.Status.Terminal() {
		log.Info("order already terminal, skipping", slog.String("status", string(oc.order.Status)))
		return nil
	}

	if oc.order.Status != domain.OrderProcessing {
		if err := oc.order.UpdateStatus(domain.OrderProcessing); err != nil {
			return h.fail(ctx, log, oc, pl.CustomerEmail, err)
		}
		if err := h.orders.Update(ctx, oc.order); err != nil {
			return h.fail(ctx, log, oc, pl.CustomerEmail, err)
		}
	}
	progress.Report(ctx, 10)

	brief := generation.Brief{
		Topic:                  pl.Topic,
		DomainName:             oc.site.Name,
		Keywords:               pl.Keywords,
		Backlink:               pl.Backlink,
		InternalLinkCandidates: pl.InternalLinkCandidates,
	}
	opts := qc.Options{
		Constraints: qc.Constraints{
			InternalLinkCandidates: pl.InternalLinkCandidates,
		},
	}
	if pl.Backlink.TargetURL != "" {
		backlink := pl.Backlink
		opts.Constraints.RequiredBacklink = &backlink
	} else {
		opts.Constraints.DisallowBacklinks = true
	}
	progress.Report(ctx, 25)

	result, err := h.runner.Run(ctx, pl.ArticleID, brief, opts)
	if err != nil {
		return h.fail(ctx, log, oc, pl.CustomerEmail, err)
	}
	progress.Report(ctx, 80)

	oc.order.AttachVersion(result.VersionID)
	if err := oc.order.UpdateStatus(domain.OrderQualityCheck); err != nil {
		return h.fail(ctx, log, oc, pl.CustomerEmail, err)
	}
	if err := h.orders.Update(ctx, oc.order); err != nil {
		return h.fail(ctx, log, oc, pl.CustomerEmail, err)
	}

	notify(ctx, h.notifier, log, TemplateGenerationComplete, pl.CustomerEmail, map[string]any{
		"order_id":    pl.OrderID,
		"article_id":  pl.ArticleID,
		"version_id":  result.VersionID,
		"version_num": result.VersionNum,
	})
	progress.Report(ctx, 100)

	log.Info("generation completed",
		slog.String("version_id", result.VersionID.String()),
		slog.Int("attempts", result.Attempts))
	return nil
}

// fail settles the order as FAILED, notifies the customer, and returns the
// original error so the queue records the attempt. Quality exhaustion has
// already flagged the article inside the loop.
func (h *GenerateHandler) fail(ctx context.Context, log *slog.Logger, oc *orderContext, email string, err error) error {
	log.Error("generation failed", slog.String("error", err.Error()))

	failOrder(ctx, h.orders, log, oc.order)
	notify(ctx, h.notifier, log, TemplateGenerationFailed, email, map[string]any{
		"order_id": oc.order.ID,
		"error":    publicFailureReason(err),
	})
	return err
}

// publicFailureReason keeps provider detail out of customer-facing
// notifications; specifics stay in logs and job metadata.
func publicFailureReason(err error) string {
	if qc.IsExhausted(err) {
		return "content did not pass quality control"
	}
	return "content generation failed"
}

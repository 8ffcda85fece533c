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

// IntegrateHandler reworks an article's live content to carry a customer
// backlink. The base is always the article's currently published selected
// version, never a prior draft from the same order, so repeated
// regenerations cannot compound drift.
type IntegrateHandler struct {
	orders   store.OrderStore
	articles store.ArticleStore
	versions store.VersionStore
	runner   QCRunner
	notifier Notifier
	logger   *slog.Logger
}

// NewIntegrateHandler wires the integrate-backlink queue handler.
func NewIntegrateHandler(
	orders store.OrderStore,
	articles store.ArticleStore,
	versions store.VersionStore,
	runner QCRunner,
	notifier Notifier,
	logger *slog.Logger,
) (*IntegrateHandler, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store cannot be nil")
	}
	if articles == nil {
		return nil, fmt.Errorf("article store cannot be nil")
	}
	if versions == nil {
		return nil, fmt.Errorf("version store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("qc runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IntegrateHandler{
		orders:   orders,
		articles: articles,
		versions: versions,
		runner:   runner,
		notifier: notifier,
		logger:   logger.With(slog.String("processor", job.QueueIntegrateBacklink)),
	}, nil
}

// Queue implements job.Handler.
func (h *IntegrateHandler) Queue() string { return job.QueueIntegrateBacklink }

// Handle implements job.Handler.
func (h *IntegrateHandler) Handle(ctx context.Context, j *job.Job, progress job.Reporter) error {
	var pl IntegrationPayload
	if err := j.DecodePayload(&pl); err != nil {
		return err
	}

	log := h.logger.With(
		slog.String("order_id", pl.OrderID.String()),
		slog.String("article_id", pl.ArticleID.String()),
		slog.Bool("regeneration", pl.IsRegeneration))

	oc, err := resolveOrderContext(ctx, h.orders, h.articles, pl.OrderID, pl.ArticleID)
	if err != nil {
		log.Error("context resolution failed", slog.String("error", err.Error()))
		notify(ctx, h.notifier, log, TemplateGenerationFailed, pl.CustomerEmail, map[string]any{
			"order_id": pl.OrderID,
			"error":    "order context could not be resolved",
		})
		return err
	}

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

	// The live selected version is the only valid base. An article with
	// nothing published cannot take a backlink integration.
	if oc.article.SelectedVersionID == nil {
		err := fmt.Errorf("article %s has no published version to integrate into", pl.ArticleID)
		return h.fail(ctx, log, oc, pl.CustomerEmail, err)
	}
	base, err := h.versions.GetByID(ctx, *oc.article.SelectedVersionID)
	if err != nil {
		return h.fail(ctx, log, oc, pl.CustomerEmail,
			fmt.Errorf("resolving published version %s: %w", *oc.article.SelectedVersionID, err))
	}
	progress.Report(ctx, 25)

	regenCount := 0
	if pl.IsRegeneration {
		regenCount = h.nextRegenCount(ctx, oc.order)
	}

	backlink := pl.Backlink
	brief := generation.Brief{
		DomainName:   oc.site.Name,
		Backlink:     backlink,
		BaseContent:  base.Content,
		Regeneration: pl.IsRegeneration,
	}
	opts := qc.Options{
		Constraints: qc.Constraints{
			RequiredBacklink: &backlink,
		},
		BaseVersionID: &base.ID,
		RegenCount:    regenCount,
	}
	if pl.IsRegeneration {
		opts.Integration = domain.IntegrationRegeneration
		// The published base already carries earlier backlinks, so only
		// the verbatim customer backlink is enforced, not the link count.
		opts.Constraints.AllowMultipleBacklinks = true
	}

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

	template := TemplateGenerationComplete
	if pl.IsRegeneration {
		template = TemplateRegenerationComplete
	}
	notify(ctx, h.notifier, log, template, pl.CustomerEmail, map[string]any{
		"order_id":    pl.OrderID,
		"article_id":  pl.ArticleID,
		"version_id":  result.VersionID,
		"version_num": result.VersionNum,
	})
	progress.Report(ctx, 100)

	log.Info("backlink integration completed",
		slog.String("version_id", result.VersionID.String()),
		slog.Int("regeneration_count", regenCount))
	return nil
}

// nextRegenCount counts how many regenerations this order has been through
// by reading its current draft version. Unresolvable drafts count as the
// first regeneration rather than failing the run.
func (h *IntegrateHandler) nextRegenCount(ctx context.Context, order *domain.Order) int {
	if order.VersionID == nil {
		return 1
	}
	prior, err := h.versions.GetByID(ctx, *order.VersionID)
	if err != nil {
		return 1
	}
	return prior.RegenCount + 1
}

func (h *IntegrateHandler) fail(ctx context.Context, log *slog.Logger, oc *orderContext, email string, err error) error {
	log.Error("backlink integration failed", slog.String("error", err.Error()))

	failOrder(ctx, h.orders, log, oc.order)
	notify(ctx, h.notifier, log, TemplateGenerationFailed, email, map[string]any{
		"order_id": oc.order.ID,
		"error":    publicFailureReason(err),
	})
	return err
}

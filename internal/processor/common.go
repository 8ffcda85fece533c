package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// orderContext is the resolved entity graph a generation-side handler works
// against. A missing entity is an invariant violation, not a retryable
// condition.
type orderContext struct {
	order   *domain.Order
	article *domain.Article
	site    *domain.Domain
}

func resolveOrderContext(
	ctx context.Context,
	orders store.OrderStore,
	articles store.ArticleStore,
	orderID, articleID uuid.UUID,
) (*orderContext, error) {
	order, err := orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("resolving order %s: %w", orderID, err)
	}

	article, err := articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("resolving article %s: %w", articleID, err)
	}

	site, err := articles.GetDomain(ctx, article.DomainID)
	if err != nil {
		return nil, fmt.Errorf("resolving domain for article %s: %w", articleID, err)
	}

	return &orderContext{order: order, article: article, site: site}, nil
}

// notify sends a customer email and swallows the error. Notifications never
// block or fail the pipeline.
func notify(ctx context.Context, n Notifier, log *slog.Logger, template, email string, payload map[string]any) {
	if n == nil || email == "" {
		return
	}
	if err := n.Send(ctx, template, email, payload); err != nil {
		log.Warn("notification send failed",
			slog.String("template", template),
			slog.String("error", err.Error()))
	}
}

// failOrder moves the order to its terminal failed state and persists it.
// Already-terminal orders are left alone so redelivered jobs stay safe.
func failOrder(ctx context.Context, orders store.OrderStore, log *slog.Logger, order *domain.Order) {
	if order.Status.Terminal() {
		return
	}
	if err := order.UpdateStatus(domain.OrderFailed); err != nil {
		log.Error("cannot mark order failed", slog.String("error", err.Error()))
		return
	}
	if err := orders.Update(ctx, order); err != nil {
		log.Error("failed to persist failed order", slog.String("error", err.Error()))
	}
}

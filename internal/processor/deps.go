package processor

import (
	"context"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/qc"
)

// Notification template IDs. The Notifier maps these to provider templates.
const (
	TemplateGenerationComplete   = "generation-complete"
	TemplateRegenerationComplete = "regeneration-complete"
	TemplateGenerationFailed     = "generation-failed"
	TemplatePublishComplete      = "publish-complete"
	TemplatePublishCancelled     = "publish-cancelled"
	TemplatePublishFailed        = "publish-failed"
)

// Notifier delivers customer emails. Sends are best effort: handlers log
// failures and never let them block the pipeline.
type Notifier interface {
	Send(ctx context.Context, template string, email string, payload map[string]any) error
}

// Publisher makes a version live on its domain. Returns the path of the
// written file.
type Publisher interface {
	Publish(ctx context.Context, articleID uuid.UUID, domainName string) (string, error)
}

// QCRunner is the quality-control cycle both generation handlers invoke.
// Satisfied by *qc.Loop.
type QCRunner interface {
	Run(ctx context.Context, articleID uuid.UUID, brief generation.Brief, opts qc.Options) (*qc.Result, error)
}

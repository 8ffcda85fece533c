package processor

import (
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// GenerationPayload is the message consumed by the generate-article queue.
type GenerationPayload struct {
	OrderID                uuid.UUID              `json:"order_id"`
	ArticleID              uuid.UUID              `json:"article_id"`
	Topic                  string                 `json:"topic"`
	Keywords               []string               `json:"keywords,omitempty"`
	Backlink               domain.BacklinkRequest `json:"backlink"`
	InternalLinkCandidates []string               `json:"internal_link_candidates,omitempty"`
	CustomerEmail          string                 `json:"customer_email"`
}

// IntegrationPayload is the message consumed by the integrate-backlink
// queue, for first-time integration and customer regenerations alike.
type IntegrationPayload struct {
	OrderID        uuid.UUID              `json:"order_id"`
	ArticleID      uuid.UUID              `json:"article_id"`
	Backlink       domain.BacklinkRequest `json:"backlink"`
	CustomerEmail  string                 `json:"customer_email"`
	IsRegeneration bool                   `json:"is_regeneration"`
}

// PublishPayload is the message consumed by the scheduled-publish queue.
// JobToken ties this delivery to the scheduling that created it; a version
// rescheduled after this job was enqueued carries a different token.
type PublishPayload struct {
	OrderID       uuid.UUID `json:"order_id"`
	ArticleID     uuid.UUID `json:"article_id"`
	VersionID     uuid.UUID `json:"version_id"`
	DomainName    string    `json:"domain_name"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	JobToken      string    `json:"job_token"`
	CustomerEmail string    `json:"customer_email"`
}

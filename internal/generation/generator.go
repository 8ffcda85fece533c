package generation

import (
	"context"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
)

// Brief is the generation context handed to the Generator and the
// QualityChecker. It carries everything the model needs to produce (or
// judge) an article: the topic, the site it will live on, the backlink to
// integrate and the internal linking rules.
type Brief struct {
	// Topic is the subject the article should cover.
	Topic string

	// DomainName is the publishing site the article belongs to.
	DomainName string

	// Keywords are optional SEO terms the content should work in.
	Keywords []string

	// Backlink is the customer anchor/URL pair to integrate verbatim.
	// Zero value means no backlink is requested.
	Backlink domain.BacklinkRequest

	// BaseContent, when non-empty, is existing article content the
	// generator should rework rather than writing from scratch. Backlink
	// integration sets this to the currently published version.
	BaseContent string

	// InternalLinkCandidates are site-relative slugs the article may link
	// to. Empty means internal links are disabled.
	InternalLinkCandidates []string

	// Regeneration marks a customer-triggered re-run of backlink
	// integration against the published article.
	Regeneration bool
}

// Generator defines the interface for producing article markdown.
// This interface serves as a boundary between the application core and
// external AI/LLM services. Implementations retry transient transport
// errors internally with capped exponential backoff and raise once the
// budget is exhausted.
type Generator interface {
	// Generate produces article markdown (frontmatter optional) for the
	// given brief. Returns an error from the taxonomy in errors.go when
	// generation fails.
	Generate(ctx context.Context, brief Brief) (string, error)
}

// QualityChecker evaluates generated markdown against a brief and returns
// the AI verdict. The verdict is advisory: deterministic hard constraints
// are enforced separately and both must pass before content is persisted.
type QualityChecker interface {
	// Check evaluates the markdown and returns a pass/fail verdict with
	// issues and flags. An error means the evaluation itself failed, not
	// that the content is bad.
	Check(ctx context.Context, markdown string, brief Brief) (*domain.QCVerdict, error)
}

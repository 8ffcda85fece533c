package qc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// DefaultMaxAttempts bounds the generate-check cycle when the caller does
// not say otherwise.
const DefaultMaxAttempts = 3

// ImageResolver fills image placeholders in passing content before it is
// persisted. Image generation and upload happen outside the core.
type ImageResolver interface {
	Resolve(ctx context.Context, markdown string) (string, error)
}

// NopImageResolver leaves content untouched. Used when no image backend
// is configured and in tests.
type NopImageResolver struct{}

// Resolve returns the markdown unchanged.
func (NopImageResolver) Resolve(_ context.Context, markdown string) (string, error) {
	return markdown, nil
}

// Options tune a single quality-control run.
type Options struct {
	// MaxAttempts bounds the generate-check cycle. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int

	// Draft, when non-empty, is caller-supplied content used for the
	// first attempt instead of generating. Later attempts always
	// regenerate from scratch.
	Draft string

	// Constraints are the deterministic rules the content must satisfy.
	Constraints Constraints

	// Integration records how the backlink landed in the content.
	Integration domain.IntegrationType

	// BaseVersionID is the version the content was derived from, if any.
	BaseVersionID *uuid.UUID

	// RegenCount is the number of customer regenerations that led here.
	RegenCount int
}

// Result is the outcome of a passing quality-control run.
type Result struct {
	VersionID  uuid.UUID
	VersionNum int
	Content    string
	Verdict    *domain.QCVerdict
	Attempts   int
}

// Loop orchestrates the Generator, the QualityChecker and the hard
// constraints across bounded attempts, persisting at most one passing
// version per run.
type Loop struct {
	generator generation.Generator
	checker   generation.QualityChecker
	articles  store.ArticleStore
	versions  store.VersionStore
	images    ImageResolver
	logger    *slog.Logger
}

// NewLoop creates a quality-control loop. A nil image resolver falls back
// to NopImageResolver.
func NewLoop(
	generator generation.Generator,
	checker generation.QualityChecker,
	articles store.ArticleStore,
	versions store.VersionStore,
	images ImageResolver,
	logger *slog.Logger,
) (*Loop, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if checker == nil {
		return nil, ErrNilQualityChecker
	}
	if articles == nil {
		return nil, ErrNilArticleStore
	}
	if versions == nil {
		return nil, ErrNilVersionStore
	}
	if images == nil {
		images = NopImageResolver{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		generator: generator,
		checker:   checker,
		articles:  articles,
		versions:  versions,
		images:    images,
		logger:    logger.With("component", "qc_loop"),
	}, nil
}

// Run executes the quality-control cycle for an article. On a passing
// attempt it normalizes the content, resolves images, persists the version
// under the next version number and stops immediately. When every attempt
// fails it flags the article, persists nothing, and returns an
// ExhaustedError. Generation and checking errors abort the run as-is; only
// content-quality failures drive another attempt.
func (l *Loop) Run(
	ctx context.Context,
	articleID uuid.UUID,
	brief generation.Brief,
	opts Options,
) (*Result, error) {
	if articleID == uuid.Nil {
		return nil, ErrEmptyArticleID
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	log := l.logger.With("article_id", articleID, "max_attempts", maxAttempts)

	var lastVerdict *domain.QCVerdict
	var lastIssues []string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("quality control cancelled: %w", err)
		}

		// Version numbers burn one per attempt, so persisted numbers can
		// show gaps relative to attempt count.
		versionNum, err := l.versions.NextVersionNum(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate version number: %w", err)
		}

		content, err := l.attemptContent(ctx, attempt, brief, opts)
		if err != nil {
			return nil, err
		}

		verdict, issues, err := l.evaluate(ctx, content, brief, opts.Constraints)
		if err != nil {
			return nil, err
		}

		lastVerdict = verdict
		lastIssues = issues

		if verdict.Passed() && len(issues) == 0 {
			result, err := l.persist(ctx, articleID, versionNum, content, attempt, verdict, brief, opts)
			if err != nil {
				return nil, err
			}

			log.Info("quality control passed",
				"attempt", attempt,
				"version_num", versionNum,
				"version_id", result.VersionID)
			return result, nil
		}

		log.Info("quality control attempt failed",
			"attempt", attempt,
			"verdict", verdict.Status,
			"hard_constraint_issues", len(issues))
	}

	// Out of attempts: flag the article so an admin looks at it. Nothing
	// was persisted.
	if err := l.flagArticle(ctx, articleID); err != nil {
		log.Error("failed to flag article after exhausted attempts", "error", err)
	}

	log.Warn("quality control exhausted", "attempts", maxAttempts)

	return nil, &ExhaustedError{
		Attempts:    maxAttempts,
		LastVerdict: lastVerdict,
		LastIssues:  lastIssues,
	}
}

// attemptContent returns the content for one attempt: the caller-supplied
// draft on the first iteration when present, a fresh generation otherwise.
// No failure feedback is threaded into regeneration; each retry starts
// from the original brief.
func (l *Loop) attemptContent(
	ctx context.Context,
	attempt int,
	brief generation.Brief,
	opts Options,
) (string, error) {
	if attempt == 1 && opts.Draft != "" {
		return opts.Draft, nil
	}

	content, err := l.generator.Generate(ctx, brief)
	if err != nil {
		return "", fmt.Errorf("content generation failed: %w", err)
	}
	return content, nil
}

// evaluate runs the AI check and the hard constraints. The checker sees
// the backlink re-inferred from the generated content itself rather than
// the original request, so a drifting generator is judged against its own
// output. That indirection is intentional and preserved.
func (l *Loop) evaluate(
	ctx context.Context,
	content string,
	brief generation.Brief,
	constraints Constraints,
) (*domain.QCVerdict, []string, error) {
	checkBrief := brief
	if inferred, ok := FirstExternalLink(content); ok {
		checkBrief.Backlink = domain.BacklinkRequest{
			TargetURL:  inferred.URL,
			AnchorText: inferred.Anchor,
		}
	}

	verdict, err := l.checker.Check(ctx, content, checkBrief)
	if err != nil {
		return nil, nil, fmt.Errorf("quality check failed: %w", err)
	}

	issues := constraints.Validate(content)
	return verdict, issues, nil
}

// persist normalizes the passing content and stores it as the next
// version, with the verdict and attempt count attached.
func (l *Loop) persist(
	ctx context.Context,
	articleID uuid.UUID,
	versionNum int,
	content string,
	attempts int,
	verdict *domain.QCVerdict,
	brief generation.Brief,
	opts Options,
) (*Result, error) {
	normalized, err := NormalizeFrontmatter(content, brief)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize frontmatter: %w", err)
	}

	normalized, err = l.images.Resolve(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve images: %w", err)
	}

	version, err := domain.NewArticleVersion(articleID, versionNum, normalized, attempts, verdict)
	if err != nil {
		return nil, fmt.Errorf("failed to build article version: %w", err)
	}

	if opts.Constraints.RequiredBacklink != nil {
		version.BacklinkURL = opts.Constraints.RequiredBacklink.TargetURL
		version.BacklinkAnchor = opts.Constraints.RequiredBacklink.AnchorText
	}
	if opts.Integration != "" {
		version.Integration = opts.Integration
	}
	version.BaseVersionID = opts.BaseVersionID
	version.RegenCount = opts.RegenCount

	if err := l.versions.Create(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to persist article version: %w", err)
	}

	return &Result{
		VersionID:  version.ID,
		VersionNum: versionNum,
		Content:    normalized,
		Verdict:    verdict,
		Attempts:   attempts,
	}, nil
}

// flagArticle marks the article for admin attention after an exhausted run.
func (l *Loop) flagArticle(ctx context.Context, articleID uuid.UUID) error {
	article, err := l.articles.GetByID(ctx, articleID)
	if err != nil {
		return err
	}

	article.Flag()
	return l.articles.Update(ctx, article)
}

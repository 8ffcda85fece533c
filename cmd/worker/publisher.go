package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// filePublisher writes the selected version of an article into the content
// tree as <root>/<domain>/<slug>.md. It is the stand-in for whatever
// static-site pipeline consumes published content downstream.
type filePublisher struct {
	root     string
	articles store.ArticleStore
	versions store.VersionStore
	logger   *slog.Logger
}

var _ processor.Publisher = (*filePublisher)(nil)

func newFilePublisher(
	root string,
	articles store.ArticleStore,
	versions store.VersionStore,
	logger *slog.Logger,
) *filePublisher {
	return &filePublisher{
		root:     root,
		articles: articles,
		versions: versions,
		logger:   logger,
	}
}

// Publish implements processor.Publisher. The publish handler persists the
// selection swap before calling this, so the store is the source of truth
// for which version goes live.
func (p *filePublisher) Publish(ctx context.Context, articleID uuid.UUID, domainName string) (string, error) {
	article, err := p.articles.GetByID(ctx, articleID)
	if err != nil {
		return "", fmt.Errorf("failed to load article for publish: %w", err)
	}
	if article.SelectedVersionID == nil {
		return "", fmt.Errorf("article %s has no selected version", articleID)
	}

	version, err := p.versions.GetByID(ctx, *article.SelectedVersionID)
	if err != nil {
		return "", fmt.Errorf("failed to load selected version: %w", err)
	}

	dir := filepath.Join(p.root, domainName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create content directory: %w", err)
	}

	path := filepath.Join(dir, article.Slug+".md")
	if err := os.WriteFile(path, []byte(version.Content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write article file: %w", err)
	}

	p.logger.Info("Article written to content tree",
		slog.String("article_id", articleID.String()),
		slog.String("path", path))
	return path, nil
}

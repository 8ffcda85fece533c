package qc

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// mockGenerator returns canned content per call, cycling through outputs.
type mockGenerator struct {
	outputs []string
	err     error
	calls   int
}

func (m *mockGenerator) Generate(_ context.Context, _ generation.Brief) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	out := m.outputs[min(m.calls, len(m.outputs)-1)]
	m.calls++
	return out, nil
}

// mockChecker returns canned verdicts per call and records the briefs it saw.
type mockChecker struct {
	verdicts []*domain.QCVerdict
	err      error
	calls    int
	briefs   []generation.Brief
}

func (m *mockChecker) Check(_ context.Context, _ string, brief generation.Brief) (*domain.QCVerdict, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.briefs = append(m.briefs, brief)
	verdict := m.verdicts[min(m.calls, len(m.verdicts)-1)]
	m.calls++
	return verdict, nil
}

func passVerdict() *domain.QCVerdict {
	return &domain.QCVerdict{Status: domain.VerdictPass}
}

func failVerdict(issues ...string) *domain.QCVerdict {
	return &domain.QCVerdict{Status: domain.VerdictFail, Issues: issues}
}

// memArticleStore is an in-memory ArticleStore for loop tests.
type memArticleStore struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article
}

func newMemArticleStore(articles ...*domain.Article) *memArticleStore {
	s := &memArticleStore{articles: make(map[uuid.UUID]*domain.Article)}
	for _, a := range articles {
		copied := *a
		s.articles[a.ID] = &copied
	}
	return s
}

func (s *memArticleStore) Create(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *article
	s.articles[article.ID] = &copied
	return nil
}

func (s *memArticleStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return nil, store.ErrArticleNotFound
	}
	copied := *article
	return &copied, nil
}

func (s *memArticleStore) Update(_ context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[article.ID]; !ok {
		return store.ErrArticleNotFound
	}
	copied := *article
	s.articles[article.ID] = &copied
	return nil
}

func (s *memArticleStore) FindExpiredHolds(_ context.Context, before time.Time) ([]*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Article
	for _, a := range s.articles {
		if a.Availability == domain.ArticleSoldOut && a.SoldOutUntil != nil && a.SoldOutUntil.Before(before) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memArticleStore) GetDomain(_ context.Context, _ uuid.UUID) (*domain.Domain, error) {
	return &domain.Domain{ID: uuid.New(), Name: "example.org"}, nil
}

func (s *memArticleStore) WithTx(_ *sql.Tx) store.ArticleStore { return s }

// memVersionStore is an in-memory VersionStore with a per-article counter.
type memVersionStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*domain.ArticleVersion
	counters map[uuid.UUID]int
}

func newMemVersionStore() *memVersionStore {
	return &memVersionStore{
		versions: make(map[uuid.UUID]*domain.ArticleVersion),
		counters: make(map[uuid.UUID]int),
	}
}

func (s *memVersionStore) Create(_ context.Context, version *domain.ArticleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ArticleID == version.ArticleID && v.VersionNum == version.VersionNum {
			return store.ErrVersionNumberExists
		}
	}
	copied := *version
	s.versions[version.ID] = &copied
	return nil
}

func (s *memVersionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ArticleVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[id]
	if !ok {
		return nil, store.ErrVersionNotFound
	}
	copied := *version
	return &copied, nil
}

func (s *memVersionStore) Update(_ context.Context, version *domain.ArticleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[version.ID]; !ok {
		return store.ErrVersionNotFound
	}
	copied := *version
	s.versions[version.ID] = &copied
	return nil
}

func (s *memVersionStore) NextVersionNum(_ context.Context, articleID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[articleID]++
	return s.counters[articleID], nil
}

func (s *memVersionStore) WithTx(_ *sql.Tx) store.VersionStore { return s }

func (s *memVersionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

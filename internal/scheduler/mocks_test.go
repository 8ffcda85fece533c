package scheduler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newMemOrderStore(orders ...*domain.Order) *memOrderStore {
	s := &memOrderStore{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		copied := *o
		s.orders[o.ID] = &copied
	}
	return s
}

func (s *memOrderStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *order
	s.orders[order.ID] = &copied
	return nil
}

func (s *memOrderStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *memOrderStore) Update(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return store.ErrOrderNotFound
	}
	copied := *order
	s.orders[order.ID] = &copied
	return nil
}

func (s *memOrderStore) WithTx(_ *sql.Tx) store.OrderStore { return s }

func (s *memOrderStore) get(id uuid.UUID) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.orders[id]
	return &copied
}

type memArticleStore struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article
	site     *domain.Domain
	updates  int
}

func newMemArticleStore(articles ...*domain.Article) *memArticleStore {
	s := &memArticleStore{
		articles: make(map[uuid.UUID]*domain.Article),
		site:     &domain.Domain{ID: uuid.New(), Name: "example.org"},
	}
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
	s.updates++
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
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.site
	return &copied, nil
}

func (s *memArticleStore) WithTx(_ *sql.Tx) store.ArticleStore { return s }

func (s *memArticleStore) get(id uuid.UUID) *domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.articles[id]
	return &copied
}

type memVersionStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*domain.ArticleVersion
	counters map[uuid.UUID]int
}

func newMemVersionStore(versions ...*domain.ArticleVersion) *memVersionStore {
	s := &memVersionStore{
		versions: make(map[uuid.UUID]*domain.ArticleVersion),
		counters: make(map[uuid.UUID]int),
	}
	for _, v := range versions {
		copied := *v
		s.versions[v.ID] = &copied
	}
	return s
}

func (s *memVersionStore) Create(_ context.Context, version *domain.ArticleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *memVersionStore) get(id uuid.UUID) *domain.ArticleVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.versions[id]
	return &copied
}

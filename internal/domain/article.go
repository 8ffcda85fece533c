package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ArticleAvailability represents whether an article can be purchased.
type ArticleAvailability string

// Possible article availability values
const (
	ArticleAvailable  ArticleAvailability = "available"
	ArticleSoldOut    ArticleAvailability = "sold_out"
	ArticleProcessing ArticleAvailability = "processing"
)

// Common validation errors for Article
var (
	ErrEmptyArticleID       = errors.New("article ID cannot be empty")
	ErrEmptyArticleDomainID = errors.New("article domain ID cannot be empty")
	ErrEmptyArticleSlug     = errors.New("article slug cannot be empty")
	ErrInvalidAvailability  = errors.New("invalid article availability")
)

// Article is a sellable content slot on one of our publishing domains.
// SelectedVersionID points at the version that is (or is about to be) live;
// PreviousVersionID remembers what was live before an exclusive order took
// the slot, so the hold can be rolled back when it expires.
type Article struct {
	ID                uuid.UUID           `json:"id"`
	DomainID          uuid.UUID           `json:"domain_id"`
	Slug              string              `json:"slug"`
	Availability      ArticleAvailability `json:"availability"`
	SelectedVersionID *uuid.UUID          `json:"selected_version_id,omitempty"`
	PreviousVersionID *uuid.UUID          `json:"previous_version_id,omitempty"`
	Published         bool                `json:"published"`
	Flagged           bool                `json:"flagged"`
	SoldOutUntil      *time.Time          `json:"sold_out_until,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewArticle creates a new available, unpublished Article on the given domain.
// Returns an error if validation fails.
func NewArticle(domainID uuid.UUID, slug string) (*Article, error) {
	article := &Article{
		ID:           uuid.New(),
		DomainID:     domainID,
		Slug:         slug,
		Availability: ArticleAvailable,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := article.Validate(); err != nil {
		return nil, err
	}

	return article, nil
}

// Validate checks if the Article has valid data.
func (a *Article) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyArticleID
	}

	if a.DomainID == uuid.Nil {
		return ErrEmptyArticleDomainID
	}

	if a.Slug == "" {
		return ErrEmptyArticleSlug
	}

	if !isValidAvailability(a.Availability) {
		return ErrInvalidAvailability
	}

	return nil
}

// SetAvailability updates the article's availability and bumps UpdatedAt.
func (a *Article) SetAvailability(availability ArticleAvailability) error {
	if !isValidAvailability(availability) {
		return ErrInvalidAvailability
	}

	a.Availability = availability
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Flag marks the article as having exhausted its quality-control attempts.
// The flag is advisory for admins; availability is left untouched.
func (a *Article) Flag() {
	a.Flagged = true
	a.UpdatedAt = time.Now().UTC()
}

// HoldExclusive marks the article sold out until the given expiry,
// remembering the currently selected version for eventual rollback.
func (a *Article) HoldExclusive(until time.Time) {
	a.PreviousVersionID = a.SelectedVersionID
	a.Availability = ArticleSoldOut
	t := until.UTC()
	a.SoldOutUntil = &t
	a.UpdatedAt = time.Now().UTC()
}

// ReleaseHold restores availability after an exclusive hold ends or the
// order behind it falls through.
func (a *Article) ReleaseHold() {
	a.Availability = ArticleAvailable
	a.SoldOutUntil = nil
	a.UpdatedAt = time.Now().UTC()
}

// isValidAvailability checks if the given value is a valid ArticleAvailability.
func isValidAvailability(availability ArticleAvailability) bool {
	switch availability {
	case ArticleAvailable, ArticleSoldOut, ArticleProcessing:
		return true
	default:
		return false
	}
}

// Domain is a publishing site an article belongs to. The pipeline only
// needs its name for Publisher calls; site management lives elsewhere.
type Domain struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}

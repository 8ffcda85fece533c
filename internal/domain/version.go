package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the admin review state of a version.
type ReviewStatus string

// Possible review status values. A version starts with no review state;
// once approved or rejected the field is terminal and re-review requires a
// new version.
const (
	ReviewNone     ReviewStatus = "none"
	ReviewPending  ReviewStatus = "pending_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ScheduleStatus represents the scheduled-publish state of a version or
// the mirrored field on its order.
type ScheduleStatus string

// Possible schedule status values. EXECUTED and CANCELLED are terminal.
const (
	ScheduleNone      ScheduleStatus = "none"
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleExecuted  ScheduleStatus = "executed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// IntegrationType distinguishes how a backlink landed in a version.
type IntegrationType string

// Possible integration type values
const (
	IntegrationOriginal     IntegrationType = "original"
	IntegrationRegeneration IntegrationType = "customer_regeneration"
)

// Common validation errors for ArticleVersion
var (
	ErrEmptyVersionID        = errors.New("version ID cannot be empty")
	ErrEmptyVersionArticleID = errors.New("version article ID cannot be empty")
	ErrEmptyVersionContent   = errors.New("version content cannot be empty")
	ErrInvalidVersionNumber  = errors.New("version number must be positive")
	ErrInvalidReviewStatus   = errors.New("invalid review status")
	ErrInvalidScheduleStatus = errors.New("invalid schedule status")
	ErrVersionNotQCPassed    = errors.New("version did not pass quality control")
)

// reviewTransitions is the validated transition table for ReviewStatus.
var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewNone:     {ReviewPending},
	ReviewPending:  {ReviewApproved, ReviewRejected},
	ReviewApproved: {},
	ReviewRejected: {},
}

// scheduleTransitions is the validated transition table for ScheduleStatus.
var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleNone:      {ScheduleScheduled},
	ScheduleScheduled: {ScheduleExecuted, ScheduleCancelled},
	ScheduleExecuted:  {},
	ScheduleCancelled: {},
}

// CanTransition reports whether the review status may move to the target.
func (s ReviewStatus) CanTransition(to ReviewStatus) bool {
	for _, next := range reviewTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the review status can never change again.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// CanTransition reports whether the schedule status may move to the target.
func (s ScheduleStatus) CanTransition(to ScheduleStatus) bool {
	for _, next := range scheduleTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the schedule status can never change again.
func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleExecuted || s == ScheduleCancelled
}

// ArticleVersion is one generated rendition of an article's content.
// Versions exist only because they passed quality control (failed
// attempts are retried in memory and never persisted) and are never
// deleted afterwards. VersionNum is unique per article and monotonic,
// though gaps are normal: numbers are allocated per attempt, including
// attempts that failed.
type ArticleVersion struct {
	ID             uuid.UUID       `json:"id"`
	ArticleID      uuid.UUID       `json:"article_id"`
	VersionNum     int             `json:"version_num"`
	Content        string          `json:"content"`
	QCAttempts     int             `json:"qc_attempts"`
	QCVerdict      *QCVerdict      `json:"qc_verdict,omitempty"`
	BacklinkURL    string          `json:"backlink_url,omitempty"`
	BacklinkAnchor string          `json:"backlink_anchor,omitempty"`
	Integration    IntegrationType `json:"integration_type"`
	BaseVersionID  *uuid.UUID      `json:"base_version_id,omitempty"`
	RegenCount     int             `json:"regeneration_count"`
	ReviewStatus   ReviewStatus    `json:"review_status"`
	ScheduledAt    *time.Time      `json:"scheduled_at,omitempty"`
	ScheduleStatus ScheduleStatus  `json:"schedule_status"`
	JobToken       string          `json:"job_token,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewArticleVersion creates a version for content that passed quality
// control. The verdict must be a pass; callers never persist failures.
func NewArticleVersion(
	articleID uuid.UUID,
	versionNum int,
	content string,
	attempts int,
	verdict *QCVerdict,
) (*ArticleVersion, error) {
	if !verdict.Passed() {
		return nil, ErrVersionNotQCPassed
	}

	version := &ArticleVersion{
		ID:             uuid.New(),
		ArticleID:      articleID,
		VersionNum:     versionNum,
		Content:        content,
		QCAttempts:     attempts,
		QCVerdict:      verdict,
		Integration:    IntegrationOriginal,
		ReviewStatus:   ReviewNone,
		ScheduleStatus: ScheduleNone,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := version.Validate(); err != nil {
		return nil, err
	}

	return version, nil
}

// Validate checks if the ArticleVersion has valid data.
func (v *ArticleVersion) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyVersionID
	}

	if v.ArticleID == uuid.Nil {
		return ErrEmptyVersionArticleID
	}

	if v.VersionNum <= 0 {
		return ErrInvalidVersionNumber
	}

	if v.Content == "" {
		return ErrEmptyVersionContent
	}

	if !isValidReviewStatus(v.ReviewStatus) {
		return ErrInvalidReviewStatus
	}

	if !isValidScheduleStatus(v.ScheduleStatus) {
		return ErrInvalidScheduleStatus
	}

	return nil
}

// UpdateReviewStatus moves the version through the review state machine.
// Returns an InvalidTransitionError for illegal moves, including any
// attempt to change a terminal state.
func (v *ArticleVersion) UpdateReviewStatus(status ReviewStatus) error {
	if !isValidReviewStatus(status) {
		return ErrInvalidReviewStatus
	}

	if !v.ReviewStatus.CanTransition(status) {
		return &InvalidTransitionError{
			Entity: "article_version",
			Field:  "review_status",
			From:   string(v.ReviewStatus),
			To:     string(status),
		}
	}

	v.ReviewStatus = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateScheduleStatus moves the version through the scheduling state
// machine. Returns an InvalidTransitionError for illegal moves.
func (v *ArticleVersion) UpdateScheduleStatus(status ScheduleStatus) error {
	if !isValidScheduleStatus(status) {
		return ErrInvalidScheduleStatus
	}

	if !v.ScheduleStatus.CanTransition(status) {
		return &InvalidTransitionError{
			Entity: "article_version",
			Field:  "schedule_status",
			From:   string(v.ScheduleStatus),
			To:     string(status),
		}
	}

	v.ScheduleStatus = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// Schedule marks the version for publication at the given time with the
// queue token that will execute it.
func (v *ArticleVersion) Schedule(at time.Time, jobToken string) error {
	if err := v.UpdateScheduleStatus(ScheduleScheduled); err != nil {
		return err
	}

	t := at.UTC()
	v.ScheduledAt = &t
	v.JobToken = jobToken
	return nil
}

// isValidReviewStatus checks if the given status is a valid ReviewStatus.
func isValidReviewStatus(status ReviewStatus) bool {
	switch status {
	case ReviewNone, ReviewPending, ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}

// isValidScheduleStatus checks if the given status is a valid ScheduleStatus.
func isValidScheduleStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleNone, ScheduleScheduled, ScheduleExecuted, ScheduleCancelled:
		return true
	default:
		return false
	}
}

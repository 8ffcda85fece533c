package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Queue names for the pipeline's job types. Handlers register under these
// names and the service layer enqueues against them.
const (
	QueueGenerateArticle   = "generate-article"
	QueueIntegrateBacklink = "integrate-backlink"
	QueueScheduledPublish  = "scheduled-publish"
)

// DefaultMaxRetries is the number of delivery attempts a job gets before it
// is marked failed for good.
const DefaultMaxRetries = 3

// Job is a persisted unit of asynchronous work. EntityID is the order the
// job acts on; RunAt supports delayed execution for scheduled publishing.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Queue       string          `json:"queue"`
	EntityID    uuid.UUID       `json:"entity_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
	RunAt       time.Time       `json:"run_at"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID      `json:"locked_by,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Option customizes a job at construction time.
type Option func(*Job)

// WithRunAt delays the job until the given time.
func WithRunAt(at time.Time) Option {
	return func(j *Job) {
		j.RunAt = at
	}
}

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(j *Job) {
		j.MaxRetries = n
	}
}

// New creates a pending job for the given queue and entity. The payload is
// marshaled to JSON; pass nil for jobs that carry no payload.
func New(queue string, entityID uuid.UUID, payload any, opts ...Option) (*Job, error) {
	if queue == "" {
		return nil, ErrEmptyQueue
	}
	if entityID == uuid.Nil {
		return nil, ErrEmptyEntityID
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling job payload: %w", err)
		}
		raw = data
	}

	now := time.Now().UTC()
	j := &Job{
		ID:         uuid.New(),
		Queue:      queue,
		EntityID:   entityID,
		Payload:    raw,
		Status:     StatusPending,
		MaxRetries: DefaultMaxRetries,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// DecodePayload unmarshals the job's payload into v.
func (j *Job) DecodePayload(v any) error {
	if len(j.Payload) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decoding payload for job %s: %w", j.ID, err)
	}
	return nil
}

// Active reports whether the job is still pending or being worked on.
func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusProcessing
}

// RetryBackoff returns the delay before the next delivery attempt after the
// given number of failures: 30s, 60s, 120s, doubling up to a 15 minute cap.
func RetryBackoff(retryCount int) time.Duration {
	const (
		base       = 30 * time.Second
		maxBackoff = 15 * time.Minute
	)
	if retryCount < 1 {
		return base
	}
	d := base << (retryCount - 1)
	if d > maxBackoff || d < 0 {
		return maxBackoff
	}
	return d
}

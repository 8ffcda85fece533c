package job

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue for tests and local development. It
// mirrors the Postgres implementation's semantics: claim locking, backoff on
// failure, and expired-lock requeue.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job

	byEntity map[uuid.UUID][]uuid.UUID
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:     make(map[uuid.UUID]*Job),
		byEntity: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *MemoryQueue) Enqueue(ctx context.Context, j *Job) error {
	if j == nil {
		return fmt.Errorf("job cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.ID]; exists {
		return fmt.Errorf("job %s already enqueued", j.ID)
	}

	jobCopy := *j
	m.jobs[j.ID] = &jobCopy
	m.byEntity[j.EntityID] = append(m.byEntity[j.EntityID], j.ID)
	return nil
}

func (m *MemoryQueue) Claim(ctx context.Context, workerID uuid.UUID, queues []string, lockFor time.Duration) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var best *Job
	for _, j := range m.jobs {
		if j.Status != StatusPending {
			continue
		}
		if !slices.Contains(queues, j.Queue) {
			continue
		}
		if j.RunAt.After(now) {
			continue
		}
		if best == nil || j.RunAt.Before(best.RunAt) ||
			(j.RunAt.Equal(best.RunAt) && j.CreatedAt.Before(best.CreatedAt)) {
			best = j
		}
	}
	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockFor)
	best.Status = StatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID
	best.UpdatedAt = now

	jobCopy := *best
	return &jobCopy, nil
}

func (m *MemoryQueue) Complete(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.processing(jobID)
	if err != nil {
		return err
	}

	j.Status = StatusCompleted
	j.Progress = 100
	j.LockedUntil = nil
	j.LockedBy = nil
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryQueue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.processing(jobID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	j.RetryCount++
	j.Error = errMsg
	j.LockedUntil = nil
	j.LockedBy = nil
	j.UpdatedAt = now

	if j.RetryCount >= j.MaxRetries {
		j.Status = StatusFailed
		return nil
	}

	j.Status = StatusPending
	j.RunAt = now.Add(RetryBackoff(j.RetryCount))
	return nil
}

func (m *MemoryQueue) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, err := m.processing(jobID)
	if err != nil {
		return err
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryQueue) JobState(ctx context.Context, entityID uuid.UUID) (*EntityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &EntityState{}
	for _, id := range m.byEntity[entityID] {
		j := m.jobs[id]
		if j.Active() {
			state.HasActiveJob = true
		}
		if j.Status == StatusFailed {
			state.HasFailedJob = true
		}
		if state.Latest == nil || j.CreatedAt.After(state.Latest.CreatedAt) {
			jobCopy := *j
			state.Latest = &jobCopy
		}
	}
	return state, nil
}

func (m *MemoryQueue) RequeueStuck(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	requeued := 0
	for _, j := range m.jobs {
		if j.Status != StatusProcessing {
			continue
		}
		if j.LockedUntil == nil || j.LockedUntil.After(now) {
			continue
		}
		j.Status = StatusPending
		j.LockedUntil = nil
		j.LockedBy = nil
		j.UpdatedAt = now
		requeued++
	}
	return requeued, nil
}

// Get returns a copy of the job, for tests and local inspection.
func (m *MemoryQueue) Get(jobID uuid.UUID) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, false
	}
	jobCopy := *j
	return &jobCopy, true
}

// processing looks up a job and verifies it is currently claimed. Callers
// must hold the mutex.
func (m *MemoryQueue) processing(jobID uuid.UUID) (*Job, error) {
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if j.Status != StatusProcessing {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotProcessing)
	}
	return j, nil
}

package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Inferno2211/blog-gen-sub002/internal/redact"
)

// RunnerConfig holds the tunables for the worker pool.
type RunnerConfig struct {
	// WorkerCount is the number of concurrent claim-and-process loops.
	WorkerCount int

	// PollInterval is how often an idle worker checks for a ready job.
	PollInterval time.Duration

	// LockTimeout bounds how long a claimed job stays locked and doubles as
	// the handler execution deadline.
	LockTimeout time.Duration
}

func (c *RunnerConfig) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 5 * time.Minute
	}
}

// Runner drives a pool of workers that claim jobs from the queue and
// dispatch them to registered handlers. One handler per queue name.
type Runner struct {
	queue    Queue
	cfg      RunnerConfig
	workerID uuid.UUID
	logger   *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	queues   []string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRunner creates a runner for the given queue. Handlers are registered
// separately before Start.
func NewRunner(q Queue, cfg RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if q == nil {
		return nil, ErrNilQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Runner{
		queue:    q,
		cfg:      cfg,
		workerID: uuid.New(),
		logger:   logger.With(slog.String("component", "job_runner")),
		handlers: make(map[string]Handler),
	}, nil
}

// Register adds a handler for its queue. Registering two handlers for the
// same queue is a configuration bug and returns ErrDuplicateHandler.
func (r *Runner) Register(h Handler) error {
	if h == nil || h.Queue() == "" {
		return fmt.Errorf("handler must be non-nil with a queue name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[h.Queue()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Queue())
	}
	r.handlers[h.Queue()] = h
	r.queues = append(r.queues, h.Queue())
	return nil
}

// Start launches the worker pool. It returns immediately; call Stop to
// drain in-flight jobs and shut down.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrRunnerStarted
	}
	if len(r.handlers) == 0 {
		return ErrNoHandlers
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.workerLoop(runCtx, i)
	}

	r.logger.Info("job runner started",
		slog.String("worker_id", r.workerID.String()),
		slog.Int("workers", r.cfg.WorkerCount),
		slog.Any("queues", r.queues))
	return nil
}

// Stop cancels claiming and waits for in-flight jobs to finish. Handlers
// run under their own deadline, so a stop waits at most LockTimeout.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return ErrRunnerNotStarted
	}

	cancel()
	r.wg.Wait()

	r.logger.Info("job runner stopped", slog.String("worker_id", r.workerID.String()))
	return nil
}

func (r *Runner) workerLoop(ctx context.Context, n int) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.claimAndProcess(ctx); err != nil {
				r.logger.Error("claim cycle failed",
					slog.Int("worker", n),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Runner) claimAndProcess(ctx context.Context) error {
	r.mu.Lock()
	queues := r.queues
	r.mu.Unlock()

	j, err := r.queue.Claim(ctx, r.workerID, queues, r.cfg.LockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobToClaim) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("claiming job: %w", err)
	}

	r.process(j)
	return nil
}

func (r *Runner) process(j *Job) {
	log := r.logger.With(
		slog.String("job_id", j.ID.String()),
		slog.String("queue", j.Queue),
		slog.String("entity_id", j.EntityID.String()))

	// The handler runs against a fresh context so a graceful Stop lets the
	// in-flight job finish instead of cancelling it mid-write.
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LockTimeout)
	defer cancel()

	r.mu.Lock()
	handler, ok := r.handlers[j.Queue]
	r.mu.Unlock()
	if !ok {
		log.Error("no handler registered for queue")
		if err := r.queue.Fail(ctx, j.ID, "no handler registered for queue "+j.Queue); err != nil {
			log.Error("failed to record missing handler", slog.String("error", err.Error()))
		}
		return
	}

	start := time.Now()
	err := r.runHandler(ctx, handler, j)
	duration := time.Since(start)

	if err != nil {
		// The failure reason is persisted on the job row, so credentials
		// and customer addresses are scrubbed before it leaves the worker.
		msg := redact.Error(err)
		log.Error("job failed",
			slog.Int("retry_count", j.RetryCount),
			slog.Int("max_retries", j.MaxRetries),
			slog.Duration("duration", duration),
			slog.String("error", msg))
		if failErr := r.queue.Fail(ctx, j.ID, msg); failErr != nil {
			log.Error("failed to record job failure", slog.String("error", failErr.Error()))
		}
		return
	}

	if err := r.queue.Complete(ctx, j.ID); err != nil {
		log.Error("failed to mark job completed", slog.String("error", err.Error()))
		return
	}
	log.Info("job completed", slog.Duration("duration", duration))
}

// runHandler executes the handler with panic recovery so a bad payload
// cannot take down the worker pool.
func (r *Runner) runHandler(ctx context.Context, h Handler, j *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in handler for queue %s: %v", j.Queue, rec)
		}
	}()

	reporter := &queueReporter{queue: r.queue, jobID: j.ID, logger: r.logger}
	return h.Handle(ctx, j, reporter)
}

// queueReporter writes progress updates through the queue. Failures are
// logged and swallowed; progress is advisory.
type queueReporter struct {
	queue  Queue
	jobID  uuid.UUID
	logger *slog.Logger
}

func (p *queueReporter) Report(ctx context.Context, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := p.queue.SetProgress(ctx, p.jobID, percent); err != nil {
		p.logger.Warn("failed to update job progress",
			slog.String("job_id", p.jobID.String()),
			slog.Int("progress", percent),
			slog.String("error", err.Error()))
	}
}

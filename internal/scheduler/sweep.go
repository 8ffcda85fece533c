package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/store"
)

// Sweep schedules. Stuck jobs are requeued often; expired exclusive holds
// are released on the hour.
const (
	stuckJobSpec     = "@every 5m"
	expiredHoldsSpec = "@hourly"
)

// Sweeper runs the recurring maintenance jobs on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	queue    job.Queue
	articles store.ArticleStore
	logger   *slog.Logger
}

// NewSweeper creates the background sweeper.
func NewSweeper(queue job.Queue, articles store.ArticleStore, logger *slog.Logger) (*Sweeper, error) {
	if queue == nil {
		return nil, job.ErrNilQueue
	}
	if articles == nil {
		return nil, fmt.Errorf("article store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		cron:     cron.New(),
		queue:    queue,
		articles: articles,
		logger:   logger.With(slog.String("component", "sweeper")),
	}, nil
}

// Start registers the sweeps and starts the cron loop.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(stuckJobSpec, func() {
		s.RequeueStuckJobs(context.Background())
	}); err != nil {
		return fmt.Errorf("registering stuck-job sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(expiredHoldsSpec, func() {
		s.ReleaseExpiredHolds(context.Background())
	}); err != nil {
		return fmt.Errorf("registering expired-hold sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("sweeper started",
		slog.String("stuck_jobs", stuckJobSpec),
		slog.String("expired_holds", expiredHoldsSpec))
	return nil
}

// Stop halts the cron loop and waits for running sweeps to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sweeper stopped")
}

// RequeueStuckJobs makes jobs abandoned by dead workers claimable again.
func (s *Sweeper) RequeueStuckJobs(ctx context.Context) {
	n, err := s.queue.RequeueStuck(ctx)
	if err != nil {
		s.logger.Error("stuck-job sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Warn("requeued stuck jobs", slog.Int("count", n))
	}
}

// ReleaseExpiredHolds returns sold-out articles to the market once their
// exclusive hold has lapsed. The previous-version pointer is left intact
// for manual rollback.
func (s *Sweeper) ReleaseExpiredHolds(ctx context.Context) {
	articles, err := s.articles.FindExpiredHolds(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("expired-hold sweep failed", slog.String("error", err.Error()))
		return
	}

	for _, article := range articles {
		article.ReleaseHold()
		if err := s.articles.Update(ctx, article); err != nil {
			s.logger.Error("failed to release expired hold",
				slog.String("article_id", article.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		s.logger.Info("released expired hold", slog.String("article_id", article.ID.String()))
	}
}

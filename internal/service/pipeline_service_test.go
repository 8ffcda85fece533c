package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/job"
	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
	"github.com/Inferno2211/blog-gen-sub002/internal/qc"
	"github.com/Inferno2211/blog-gen-sub002/internal/scheduler"
)

type serviceFixture struct {
	service  *PipelineService
	mock     sqlmock.Sqlmock
	queue    *job.MemoryQueue
	runner   *mockRunner
	orders   *memOrderStore
	versions *memVersionStore
	order    *domain.Order
	article  *domain.Article
	version  *domain.ArticleVersion
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	article, err := domain.NewArticle(uuid.New(), "cold-brew-basics")
	require.NoError(t, err)

	version, err := domain.NewArticleVersion(article.ID, 1, "# Cold brew\n\nBody.", 1,
		&domain.QCVerdict{Status: domain.VerdictPass})
	require.NoError(t, err)

	order, err := domain.NewOrder(article.ID, domain.OrderTypeBacklink, "buyer@example.com", domain.BacklinkRequest{
		TargetURL:  "https://customer.example",
		AnchorText: "customer",
	})
	require.NoError(t, err)
	order.AttachVersion(version.ID)
	require.NoError(t, order.UpdateStatus(domain.OrderQualityCheck))

	queue := job.NewMemoryQueue()
	orders := newMemOrderStore(order)
	articles := newMemArticleStore(article)
	versions := newMemVersionStore(version)
	runner := &mockRunner{result: &qc.Result{VersionID: uuid.New(), VersionNum: 2, Attempts: 1}}

	sched, err := scheduler.New(db, queue, orders, articles, versions, testLogger())
	require.NoError(t, err)

	svc, err := NewPipelineService(db, queue, sched, runner, orders, articles, versions, testLogger())
	require.NoError(t, err)

	return &serviceFixture{
		service:  svc,
		mock:     mock,
		queue:    queue,
		runner:   runner,
		orders:   orders,
		versions: versions,
		order:    order,
		article:  article,
		version:  version,
	}
}

func TestPipelineService_EnqueueGeneration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	j, err := f.service.EnqueueGeneration(ctx, GenerationParams{
		OrderID:       f.order.ID,
		ArticleID:     f.article.ID,
		Topic:         "cold brew makers",
		Keywords:      []string{"cold brew"},
		Backlink:      f.order.Backlink,
		CustomerEmail: f.order.CustomerEmail,
	})
	require.NoError(t, err)

	assert.Equal(t, job.QueueGenerateArticle, j.Queue)
	assert.Equal(t, f.order.ID, j.EntityID)

	var pl processor.GenerationPayload
	require.NoError(t, j.DecodePayload(&pl))
	assert.Equal(t, "cold brew makers", pl.Topic)
	assert.Equal(t, f.order.Backlink, pl.Backlink)

	stored, ok := f.queue.Get(j.ID)
	require.True(t, ok)
	assert.Equal(t, job.StatusPending, stored.Status)
}

func TestPipelineService_EnqueueGeneration_UnknownOrder(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	_, err := f.service.EnqueueGeneration(context.Background(), GenerationParams{OrderID: uuid.New()})
	require.Error(t, err)

	var svcErr *PipelineServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "enqueue_generation", svcErr.Operation)
}

func TestPipelineService_EnqueueIntegration_RequiresBacklink(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	_, err := f.service.EnqueueIntegration(context.Background(), IntegrationParams{
		OrderID:   f.order.ID,
		ArticleID: f.article.ID,
		Backlink:  domain.BacklinkRequest{TargetURL: "https://customer.example"},
	})
	assert.ErrorIs(t, err, ErrMissingBacklink)
}

func TestPipelineService_RequestRegeneration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	j, err := f.service.RequestRegeneration(ctx, f.order.ID)
	require.NoError(t, err)

	assert.Equal(t, job.QueueIntegrateBacklink, j.Queue)

	var pl processor.IntegrationPayload
	require.NoError(t, j.DecodePayload(&pl))
	assert.True(t, pl.IsRegeneration)
	assert.Equal(t, f.order.Backlink, pl.Backlink)
	assert.Equal(t, f.order.CustomerEmail, pl.CustomerEmail)

	// Back-edge is unbounded: a second request queues again.
	_, err = f.service.RequestRegeneration(ctx, f.order.ID)
	require.NoError(t, err)
}

func TestPipelineService_RequestRegeneration_WrongState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status domain.OrderStatus
	}{
		{name: "still processing", status: domain.OrderProcessing},
		{name: "already completed", status: domain.OrderCompleted},
		{name: "refunded", status: domain.OrderRefunded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newServiceFixture(t)
			order := f.orders.get(f.order.ID)
			order.Status = tc.status
			require.NoError(t, f.orders.Update(context.Background(), order))

			_, err := f.service.RequestRegeneration(context.Background(), f.order.ID)
			assert.ErrorIs(t, err, ErrOrderNotRegenerable)
		})
	}
}

func TestPipelineService_PerformQC(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	backlink := f.order.Backlink
	res, err := f.service.PerformQC(ctx, f.article.ID, "# Edited draft", 2, qc.Constraints{
		RequiredBacklink:       &backlink,
		InternalLinkCandidates: []string{"brew-ratios"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 1, f.runner.calls)
	assert.Equal(t, f.article.ID, f.runner.lastTarget)
	assert.Equal(t, "example.org", f.runner.lastBrief.DomainName)
	assert.Equal(t, backlink, f.runner.lastBrief.Backlink)
	assert.Equal(t, "# Edited draft", f.runner.lastOpts.Draft)
	assert.Equal(t, 2, f.runner.lastOpts.MaxAttempts)
}

func TestPipelineService_ApproveVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	j, err := f.service.ApproveVersion(ctx, f.order.ID, f.version.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, j, "no publish requested")

	assert.Equal(t, domain.ReviewApproved, f.versions.get(f.version.ID).ReviewStatus)
	assert.Equal(t, domain.OrderAdminReview, f.orders.get(f.order.ID).Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPipelineService_ApproveVersion_WithSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	// One transaction for the review decision, one for the schedule.
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	at := time.Now().UTC().Add(24 * time.Hour)
	j, err := f.service.ApproveVersion(ctx, f.order.ID, f.version.ID, &at)
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, job.QueueScheduledPublish, j.Queue)
	assert.Equal(t, at, j.RunAt)
	assert.Equal(t, domain.ScheduleScheduled, f.versions.get(f.version.ID).ScheduleStatus)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPipelineService_RejectVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	require.NoError(t, f.service.RejectVersion(ctx, f.order.ID, f.version.ID))

	assert.Equal(t, domain.ReviewRejected, f.versions.get(f.version.ID).ReviewStatus)
	assert.Equal(t, domain.OrderFailed, f.orders.get(f.order.ID).Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPipelineService_Review_TerminalVersion(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	version := f.versions.get(f.version.ID)
	version.ReviewStatus = domain.ReviewRejected
	require.NoError(t, f.versions.Update(context.Background(), version))

	_, err := f.service.ApproveVersion(context.Background(), f.order.ID, f.version.ID, nil)
	assert.ErrorIs(t, err, ErrVersionNotReviewable)

	err = f.service.RejectVersion(context.Background(), f.order.ID, f.version.ID)
	assert.ErrorIs(t, err, ErrVersionNotReviewable)
}

func TestPipelineService_GetJobState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	state, err := f.service.GetJobState(ctx, f.order.ID)
	require.NoError(t, err)
	assert.False(t, state.HasActiveJob)

	_, err = f.service.RequestRegeneration(ctx, f.order.ID)
	require.NoError(t, err)

	state, err = f.service.GetJobState(ctx, f.order.ID)
	require.NoError(t, err)
	assert.True(t, state.HasActiveJob)
	require.NotNil(t, state.Latest)
	assert.Equal(t, job.QueueIntegrateBacklink, state.Latest.Queue)
}

func TestPipelineService_CancelScheduledPublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	at := time.Now().UTC().Add(time.Hour)
	_, err := f.service.ApproveVersion(ctx, f.order.ID, f.version.ID, &at)
	require.NoError(t, err)

	require.NoError(t, f.service.CancelScheduledPublish(ctx, f.order.ID, f.version.ID))
	assert.Equal(t, domain.ScheduleCancelled, f.versions.get(f.version.ID).ScheduleStatus)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestNewPipelineService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPipelineService(nil, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

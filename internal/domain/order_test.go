package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBacklink() BacklinkRequest {
	return BacklinkRequest{
		TargetURL:  "https://customer.example.com/landing",
		AnchorText: "best widgets",
	}
}

func TestNewOrder(t *testing.T) {
	articleID := uuid.New()

	order, err := NewOrder(articleID, OrderTypeBacklink, "customer@example.com", validBacklink())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, articleID, order.ArticleID)
	assert.Equal(t, OrderProcessing, order.Status)
	assert.Equal(t, ScheduleNone, order.ScheduleStatus)
	assert.Nil(t, order.VersionID)
}

func TestNewOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		articleID uuid.UUID
		orderType OrderType
		email     string
		wantErr   error
	}{
		{
			name:      "empty article ID",
			articleID: uuid.Nil,
			orderType: OrderTypeBacklink,
			email:     "customer@example.com",
			wantErr:   ErrEmptyOrderArticleID,
		},
		{
			name:      "empty email",
			articleID: uuid.New(),
			orderType: OrderTypeBacklink,
			email:     "",
			wantErr:   ErrEmptyOrderEmail,
		},
		{
			name:      "invalid order type",
			articleID: uuid.New(),
			orderType: OrderType("bulk"),
			email:     "customer@example.com",
			wantErr:   ErrInvalidOrderType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.articleID, tt.orderType, tt.email, validBacklink())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"processing to quality check", OrderProcessing, OrderQualityCheck, true},
		{"processing to failed", OrderProcessing, OrderFailed, true},
		{"processing to admin review skips QC", OrderProcessing, OrderAdminReview, false},
		{"processing to completed skips everything", OrderProcessing, OrderCompleted, false},
		{"quality check to admin review", OrderQualityCheck, OrderAdminReview, true},
		{"regenerate back-edge", OrderQualityCheck, OrderProcessing, true},
		{"quality check to failed", OrderQualityCheck, OrderFailed, true},
		{"admin review to completed", OrderAdminReview, OrderCompleted, true},
		{"admin review to failed", OrderAdminReview, OrderFailed, true},
		{"admin review back to quality check", OrderAdminReview, OrderQualityCheck, false},
		{"completed is terminal", OrderCompleted, OrderProcessing, false},
		{"failed is terminal", OrderFailed, OrderProcessing, false},
		{"refunded is terminal", OrderRefunded, OrderProcessing, false},
		{"refund from processing", OrderProcessing, OrderRefunded, true},
		{"refund from quality check", OrderQualityCheck, OrderRefunded, true},
		{"refund from admin review", OrderAdminReview, OrderRefunded, true},
		{"no refund after completion", OrderCompleted, OrderRefunded, false},
		{"no refund after failure", OrderFailed, OrderRefunded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestOrder_UpdateStatus_RegenerationCycle(t *testing.T) {
	order, err := NewOrder(uuid.New(), OrderTypeBacklink, "customer@example.com", validBacklink())
	require.NoError(t, err)

	// The regenerate cycle may repeat without bound.
	for i := 0; i < 3; i++ {
		require.NoError(t, order.UpdateStatus(OrderQualityCheck))
		require.NoError(t, order.UpdateStatus(OrderProcessing))
	}

	require.NoError(t, order.UpdateStatus(OrderQualityCheck))
	require.NoError(t, order.UpdateStatus(OrderAdminReview))
	require.NoError(t, order.UpdateStatus(OrderCompleted))

	err = order.UpdateStatus(OrderProcessing)
	assert.True(t, IsInvalidTransition(err))
}

func TestOrder_UpdateStatus_InvalidTransitionError(t *testing.T) {
	order, err := NewOrder(uuid.New(), OrderTypeStandard, "customer@example.com", validBacklink())
	require.NoError(t, err)

	err = order.UpdateStatus(OrderCompleted)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
	assert.Contains(t, err.Error(), "processing")
	assert.Contains(t, err.Error(), "completed")

	// The failed transition must not mutate the order.
	assert.Equal(t, OrderProcessing, order.Status)
}

func TestOrder_Exclusive(t *testing.T) {
	backlink, err := NewOrder(uuid.New(), OrderTypeBacklink, "a@example.com", validBacklink())
	require.NoError(t, err)
	standard, err := NewOrder(uuid.New(), OrderTypeStandard, "b@example.com", validBacklink())
	require.NoError(t, err)

	assert.True(t, backlink.Exclusive())
	assert.False(t, standard.Exclusive())
}

func TestOrder_ScheduleStatusMirror(t *testing.T) {
	order, err := NewOrder(uuid.New(), OrderTypeBacklink, "customer@example.com", validBacklink())
	require.NoError(t, err)

	require.NoError(t, order.UpdateScheduleStatus(ScheduleScheduled))
	require.NoError(t, order.UpdateScheduleStatus(ScheduleCancelled))

	// Terminal once set.
	err = order.UpdateScheduleStatus(ScheduleExecuted)
	assert.True(t, IsInvalidTransition(err))
}

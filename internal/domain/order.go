package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents where an order sits in the pipeline.
type OrderStatus string

// Possible order status values
const (
	OrderProcessing   OrderStatus = "processing"
	OrderQualityCheck OrderStatus = "quality_check"
	OrderAdminReview  OrderStatus = "admin_review"
	OrderCompleted    OrderStatus = "completed"
	OrderFailed       OrderStatus = "failed"
	OrderRefunded     OrderStatus = "refunded"
)

// OrderType distinguishes exclusive backlink purchases, which take the
// article slot off the market once published, from everything else.
type OrderType string

// Possible order type values
const (
	OrderTypeBacklink OrderType = "backlink_purchase"
	OrderTypeStandard OrderType = "standard"
)

// Common validation errors for Order
var (
	ErrEmptyOrderID        = errors.New("order ID cannot be empty")
	ErrEmptyOrderArticleID = errors.New("order article ID cannot be empty")
	ErrEmptyOrderEmail     = errors.New("order customer email cannot be empty")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrInvalidOrderType    = errors.New("invalid order type")
)

// orderTransitions is the validated transition table for OrderStatus.
// Transitions are forward-monotonic except the regenerate back-edge
// quality_check -> processing, which may repeat without bound. REFUNDED
// is handled separately: it is reachable from any non-terminal state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing:   {OrderQualityCheck, OrderFailed},
	OrderQualityCheck: {OrderProcessing, OrderAdminReview, OrderFailed},
	OrderAdminReview:  {OrderCompleted, OrderFailed},
	OrderCompleted:    {},
	OrderFailed:       {},
	OrderRefunded:     {},
}

// CanTransition reports whether the order status may move to the target.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if to == OrderRefunded {
		return !s.Terminal()
	}

	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the order status can never change again.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCompleted, OrderFailed, OrderRefunded:
		return true
	default:
		return false
	}
}

// BacklinkRequest is the customer-supplied anchor/URL pair an order asks
// to have integrated into the article.
type BacklinkRequest struct {
	TargetURL  string `json:"target_url"`
	AnchorText string `json:"anchor_text"`
}

// Order is a customer purchase flowing through the pipeline. VersionID is
// nil until quality control produces a passing version; the scheduling
// fields mirror the version's so the order can be inspected on its own.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	ArticleID      uuid.UUID       `json:"article_id"`
	VersionID      *uuid.UUID      `json:"version_id,omitempty"`
	Type           OrderType       `json:"type"`
	Status         OrderStatus     `json:"status"`
	CustomerEmail  string          `json:"customer_email"`
	Backlink       BacklinkRequest `json:"backlink"`
	ScheduledAt    *time.Time      `json:"scheduled_at,omitempty"`
	ScheduleStatus ScheduleStatus  `json:"schedule_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewOrder creates an order in processing state for a completed purchase.
// Returns an error if validation fails.
func NewOrder(
	articleID uuid.UUID,
	orderType OrderType,
	customerEmail string,
	backlink BacklinkRequest,
) (*Order, error) {
	order := &Order{
		ID:             uuid.New(),
		ArticleID:      articleID,
		Type:           orderType,
		Status:         OrderProcessing,
		CustomerEmail:  customerEmail,
		Backlink:       backlink,
		ScheduleStatus: ScheduleNone,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// Validate checks if the Order has valid data.
func (o *Order) Validate() error {
	if o.ID == uuid.Nil {
		return ErrEmptyOrderID
	}

	if o.ArticleID == uuid.Nil {
		return ErrEmptyOrderArticleID
	}

	if o.CustomerEmail == "" {
		return ErrEmptyOrderEmail
	}

	if !isValidOrderStatus(o.Status) {
		return ErrInvalidOrderStatus
	}

	if !isValidOrderType(o.Type) {
		return ErrInvalidOrderType
	}

	return nil
}

// UpdateStatus moves the order through the pipeline state machine.
// Returns an InvalidTransitionError for illegal moves.
func (o *Order) UpdateStatus(status OrderStatus) error {
	if !isValidOrderStatus(status) {
		return ErrInvalidOrderStatus
	}

	if !o.Status.CanTransition(status) {
		return &InvalidTransitionError{
			Entity: "order",
			Field:  "status",
			From:   string(o.Status),
			To:     string(status),
		}
	}

	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachVersion records the passing version quality control produced.
func (o *Order) AttachVersion(versionID uuid.UUID) {
	o.VersionID = &versionID
	o.UpdatedAt = time.Now().UTC()
}

// UpdateScheduleStatus moves the order's mirrored scheduling field.
// Returns an InvalidTransitionError for illegal moves.
func (o *Order) UpdateScheduleStatus(status ScheduleStatus) error {
	if !isValidScheduleStatus(status) {
		return ErrInvalidScheduleStatus
	}

	if !o.ScheduleStatus.CanTransition(status) {
		return &InvalidTransitionError{
			Entity: "order",
			Field:  "schedule_status",
			From:   string(o.ScheduleStatus),
			To:     string(status),
		}
	}

	o.ScheduleStatus = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Exclusive reports whether publishing this order should take the article
// off the market.
func (o *Order) Exclusive() bool {
	return o.Type == OrderTypeBacklink
}

// isValidOrderStatus checks if the given status is a valid OrderStatus.
func isValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderProcessing, OrderQualityCheck, OrderAdminReview,
		OrderCompleted, OrderFailed, OrderRefunded:
		return true
	default:
		return false
	}
}

// isValidOrderType checks if the given value is a valid OrderType.
func isValidOrderType(orderType OrderType) bool {
	switch orderType {
	case OrderTypeBacklink, OrderTypeStandard:
		return true
	default:
		return false
	}
}

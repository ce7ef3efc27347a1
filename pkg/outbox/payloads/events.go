package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCompletedEvent is emitted once payment succeeds and tickets are issued.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	EventID     uuid.UUID `json:"event_id"`
	TotalCents  int       `json:"total_cents"`
	TicketCount int       `json:"ticket_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// OrderFailedEvent is emitted when payment is declined or intent creation fails.
type OrderFailedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	EventID uuid.UUID `json:"event_id"`
	Reason  string    `json:"reason,omitempty"`
}

// OrderCancelledEvent is emitted when a pending order is cancelled or expires.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	EventID     uuid.UUID `json:"event_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderRefundedEvent is emitted after a processor refund is confirmed.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	EventID     uuid.UUID `json:"event_id"`
	AmountCents int       `json:"amount_cents"`
	RefundedAt  time.Time `json:"refunded_at"`
	Reason      string    `json:"reason,omitempty"`
}

package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// CreateOrderItem is one requested ticket type with the price the client saw.
// The unit price is re-checked against the catalog inside the order
// transaction so a stale client never locks in an outdated price.
type CreateOrderItem struct {
	TicketTypeID   uuid.UUID
	Qty            int
	UnitPriceCents int
}

// CreateOrderInput carries everything required to open an order and authorize
// its payment.
type CreateOrderInput struct {
	UserID       uuid.UUID
	EventID      uuid.UUID
	Currency     enums.Currency
	Items        []CreateOrderItem
	PaymentToken string
	Note         string
}

// CreateOrderResult is returned from Create once the payment intent exists.
type CreateOrderResult struct {
	OrderID         uuid.UUID
	PaymentIntentID uuid.UUID
	ClientToken     string
	Status          enums.OrderStatus
	Totals          Totals
	ExpiresAt       time.Time
}

// LineItemDetail is the read model for a single order line.
type LineItemDetail struct {
	TicketTypeID   uuid.UUID
	Name           string
	UnitPriceCents int
	Qty            int
	TotalCents     int
}

// PaymentDetail is the read model for the order's payment intent.
type PaymentDetail struct {
	PaymentIntentID   uuid.UUID
	ProviderPaymentID *string
	Status            enums.PaymentStatus
	FailureReason     *string
}

// OrderDetail aggregates the order read model served by the API.
type OrderDetail struct {
	OrderID     uuid.UUID
	UserID      uuid.UUID
	EventID     uuid.UUID
	Status      enums.OrderStatus
	Currency    enums.Currency
	Totals      Totals
	ExpiresAt   time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	RefundedAt  *time.Time
	Items       []LineItemDetail
	Payment     *PaymentDetail
	CreatedAt   time.Time
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a transient hold on ticket inventory tied to a pending
// order. It is consumed on payment success or deleted on failure/expiry;
// the reserved_qty counter on TicketType mirrors the sum of live rows.
type Reservation struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	TicketTypeID uuid.UUID `gorm:"column:ticket_type_id;type:uuid;not null"`
	Qty          int       `gorm:"column:qty;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

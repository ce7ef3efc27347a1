package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketType holds the inventory counters for a purchasable admission
// category. Quantity is the immutable cap; sold_qty and reserved_qty are
// mutated only through conditional updates so that
// sold_qty + reserved_qty <= quantity holds at all times.
type TicketType struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID `gorm:"column:event_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	PriceCents  int       `gorm:"column:price_cents;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	SoldQty     int       `gorm:"column:sold_qty;not null;default:0"`
	ReservedQty int       `gorm:"column:reserved_qty;not null;default:0"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

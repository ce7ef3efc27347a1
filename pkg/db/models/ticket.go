package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// Ticket is a scannable admission record issued once its order completes.
// Status is the only mutable field after issuance.
type Ticket struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	TicketTypeID uuid.UUID          `gorm:"column:ticket_type_id;type:uuid;not null"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	ScanCode     string             `gorm:"column:scan_code;not null;uniqueIndex"`
	Status       enums.TicketStatus `gorm:"column:status;type:ticket_status;not null;default:'valid'"`
	IssuedAt     time.Time          `gorm:"column:issued_at;not null"`
	ScannedAt    *time.Time         `gorm:"column:scanned_at"`
	ScannedBy    *uuid.UUID         `gorm:"column:scanned_by;type:uuid"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

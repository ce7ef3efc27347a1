package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is the parent entity for ticket types. Only the fields needed for
// ticket inventory and order fulfillment are modeled here.
type Event struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	StartsAt  time.Time `gorm:"column:starts_at;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

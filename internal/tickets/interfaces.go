package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// Repository defines persistence operations for tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	FindTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Ticket, error)
	FindTicketByScanCode(ctx context.Context, scanCode string) (*models.Ticket, error)
	RedeemTicket(ctx context.Context, scanCode string, scannerID uuid.UUID) (bool, error)
	UpdateTicketStatusByOrder(ctx context.Context, orderID uuid.UUID, from, to enums.TicketStatus) (int64, error)
}

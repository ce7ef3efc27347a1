package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tickets repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) FindTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) FindTicketByScanCode(ctx context.Context, scanCode string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("scan_code = ?", scanCode).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// RedeemTicket flips a valid ticket to used and stamps the scan. It reports
// false when the ticket was not in the valid state, in which case nothing was
// written.
func (r *repository) RedeemTicket(ctx context.Context, scanCode string, scannerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("scan_code = ? AND status = ?", scanCode, enums.TicketStatusValid).
		Updates(map[string]any{
			"status":     enums.TicketStatusUsed,
			"scanned_at": time.Now().UTC(),
			"scanned_by": scannerID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateTicketStatusByOrder(ctx context.Context, orderID uuid.UUID, from, to enums.TicketStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

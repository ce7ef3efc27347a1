package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
)

// ReservationRequest asks for a hold of Qty units on one ticket type.
type ReservationRequest struct {
	TicketTypeID uuid.UUID
	Qty          int
}

// Store owns the ticket type counters. All mutation goes through conditional
// updates so that sold_qty + reserved_qty <= quantity holds under concurrent
// callers. No other component may write these counters directly.
type Store interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, requests []ReservationRequest, expiresAt time.Time) error
	Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	RestoreSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, qty int) error
	FindTicketTypes(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]models.TicketType, error)
	FindReservations(ctx context.Context, db *gorm.DB, orderID uuid.UUID) ([]models.Reservation, error)
}

type store struct{}

// NewStore builds the inventory store.
func NewStore() Store {
	return store{}
}

// Reserve places holds for every request inside the supplied transaction.
// Each hold succeeds only if quantity - sold_qty - reserved_qty >= qty at the
// instant of the update. A failed hold aborts the transaction, which rolls
// back every prior hold for the order.
func (store) Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, requests []ReservationRequest, expiresAt time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one reservation request required")
	}

	for _, req := range requests {
		if req.TicketTypeID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "ticket type id required")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE ticket_types
			SET reserved_qty = reserved_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND is_active AND quantity - sold_qty - reserved_qty >= ?
		`, req.Qty, req.TicketTypeID, req.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
		}
		if res.RowsAffected == 0 {
			var tt models.TicketType
			err := tx.WithContext(ctx).Where("id = ?", req.TicketTypeID).First(&tt).Error
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket type not found")
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket type")
			}
			if !tt.IsActive {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "ticket type is not on sale")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for ticket type %s", req.TicketTypeID)).
				WithDetails(map[string]any{
					"ticket_type_id": req.TicketTypeID.String(),
					"requested":      req.Qty,
					"available":      tt.Quantity - tt.SoldQty - tt.ReservedQty,
				})
		}

		hold := models.Reservation{
			ID:           uuid.New(),
			OrderID:      orderID,
			TicketTypeID: req.TicketTypeID,
			Qty:          req.Qty,
			ExpiresAt:    expiresAt,
		}
		if err := tx.WithContext(ctx).Create(&hold).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reservation")
		}
	}
	return nil
}

// Commit converts the order's holds into sales and deletes the reservation
// rows. Calling it again after the rows are gone is a no-op, which makes it
// safe from a retried confirmation.
func (s store) Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory commit")
	}

	holds, err := reservationsForOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, hold := range holds {
		res := tx.WithContext(ctx).Exec(`
			UPDATE ticket_types
			SET sold_qty = sold_qty + ?,
				reserved_qty = reserved_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND reserved_qty >= ?
		`, hold.Qty, hold.Qty, hold.TicketTypeID, hold.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved counter underflow on commit")
		}
		if err := tx.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", hold.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservation")
		}
	}
	return nil
}

// Release returns the order's holds to available stock and deletes the
// reservation rows. Idempotent when the rows are already gone.
func (s store) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	holds, err := reservationsForOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, hold := range holds {
		res := tx.WithContext(ctx).Exec(`
			UPDATE ticket_types
			SET reserved_qty = reserved_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND reserved_qty >= ?
		`, hold.Qty, hold.TicketTypeID, hold.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved counter underflow on release")
		}
		if err := tx.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", hold.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservation")
		}
	}
	return nil
}

// RestoreSold gives refunded quantity back to available stock. Only the
// refund path may reduce sold_qty.
func (store) RestoreSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory restore")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE ticket_types
		SET sold_qty = sold_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND sold_qty >= ?
	`, qty, ticketTypeID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore sold inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sold counter underflow on restore")
	}
	return nil
}

// FindTicketTypes loads the requested ticket types for price validation.
func (store) FindTicketTypes(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]models.TicketType, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db handle required")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.TicketType
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket types")
	}
	return rows, nil
}

// FindReservations returns the live holds for an order.
func (store) FindReservations(ctx context.Context, db *gorm.DB, orderID uuid.UUID) ([]models.Reservation, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db handle required")
	}
	var rows []models.Reservation
	if err := db.WithContext(ctx).Where("order_id = ?", orderID).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservations")
	}
	return rows, nil
}

// reservationsForOrder loads the order's holds inside the caller's
// transaction. It takes no row lock; concurrent commit and release on the
// same order are serialized upstream by the order status transition.
func reservationsForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.Reservation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var holds []models.Reservation
	if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Find(&holds).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservations")
	}
	return holds, nil
}

package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/gatepass/gatepass-backend/pkg/db"
	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
)

// scanCodeConstraint matches the unique index on tickets.scan_code.
const scanCodeConstraint = "ux_tickets_scan_code"

// scanCodeAttempts bounds regeneration when a fresh code collides.
const scanCodeAttempts = 3

// Service issues and redeems tickets.
type Service interface {
	Issue(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.Ticket, error)
	Redeem(ctx context.Context, scanCode string, scannerID uuid.UUID) (*models.Ticket, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Ticket, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the ticket service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Issue mints one ticket per purchased unit inside the caller's transaction.
// An order that already holds tickets gets them back unchanged, so a replayed
// completion cannot double-issue.
func (s *service) Issue(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.Ticket, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no line items")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindTicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing tickets")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	issuedAt := time.Now().UTC()
	var tickets []models.Ticket
	for _, item := range order.Items {
		for i := 0; i < item.Qty; i++ {
			ticket, err := s.mintTicket(ctx, repo, order, item.TicketTypeID, issuedAt)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, *ticket)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"ticket_count": len(tickets),
	}), "tickets issued")
	return tickets, nil
}

func (s *service) mintTicket(ctx context.Context, repo Repository, order *models.Order, ticketTypeID uuid.UUID, issuedAt time.Time) (*models.Ticket, error) {
	for attempt := 0; attempt < scanCodeAttempts; attempt++ {
		code, err := newScanCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate scan code")
		}
		ticket := &models.Ticket{
			ID:           uuid.New(),
			OrderID:      order.ID,
			TicketTypeID: ticketTypeID,
			UserID:       order.UserID,
			ScanCode:     code,
			Status:       enums.TicketStatusValid,
			IssuedAt:     issuedAt,
		}
		err = repo.CreateTicket(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !dbpkg.IsUniqueViolation(err, scanCodeConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ticket")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "scan code generation kept colliding")
}

// Redeem marks a valid ticket as used. Tickets outside the valid state are
// rejected with the current state in the error details.
func (s *service) Redeem(ctx context.Context, scanCode string, scannerID uuid.UUID) (*models.Ticket, error) {
	if scanCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan code required")
	}
	if scannerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "scanner identity missing")
	}

	redeemed, err := s.repo.RedeemTicket(ctx, scanCode, scannerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem ticket")
	}
	if !redeemed {
		ticket, err := s.repo.FindTicketByScanCode(ctx, scanCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not redeemable").
			WithDetails(map[string]any{"status": ticket.Status.String()})
	}

	ticket, err := s.repo.FindTicketByScanCode(ctx, scanCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ticket")
	}
	return ticket, nil
}

func (s *service) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Ticket, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	tickets, err := s.repo.FindTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tickets")
	}
	return tickets, nil
}

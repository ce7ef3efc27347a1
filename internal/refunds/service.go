package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/internal/orders"
	"github.com/gatepass/gatepass-backend/internal/payments"
	"github.com/gatepass/gatepass-backend/internal/tickets"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/outbox"
	"github.com/gatepass/gatepass-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refundGateway interface {
	Refund(ctx context.Context, req payments.RefundRequest) (string, error)
}

type inventoryRestorer interface {
	RestoreSold(ctx context.Context, tx *gorm.DB, ticketTypeID uuid.UUID, qty int) error
}

// Result reports a settled refund.
type Result struct {
	OrderID     uuid.UUID
	RefundID    string
	AmountCents int
	Status      enums.OrderStatus
}

// Service reverses completed orders. The processor refund always runs first;
// local state only changes once the processor has accepted the refund.
type Service interface {
	Refund(ctx context.Context, orderID uuid.UUID, reason string) (*Result, error)
}

type service struct {
	orders    orders.Repository
	tickets   tickets.Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory inventoryRestorer
	gateway   refundGateway
	logg      *logger.Logger
}

// NewService builds the refund coordinator.
func NewService(ordersRepo orders.Repository, ticketsRepo tickets.Repository, tx txRunner, outboxSvc outboxPublisher, inv inventoryRestorer, gateway refundGateway, logg *logger.Logger) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ticketsRepo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory restorer required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:    ordersRepo,
		tickets:   ticketsRepo,
		tx:        tx,
		outbox:    outboxSvc,
		inventory: inv,
		gateway:   gateway,
		logg:      logg,
	}, nil
}

func (s *service) Refund(ctx context.Context, orderID uuid.UUID, reason string) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusRefunded {
		return &Result{OrderID: orderID, AmountCents: order.TotalCents, Status: order.Status}, nil
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed orders can be refunded").
			WithDetails(map[string]any{"current_status": order.Status.String()})
	}
	if order.PaymentIntent == nil || order.PaymentIntent.ProviderPaymentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no captured payment")
	}

	refundID, err := s.gateway.Refund(ctx, payments.RefundRequest{
		OrderID:           orderID,
		ProviderPaymentID: *order.PaymentIntent.ProviderPaymentID,
		AmountCents:       order.TotalCents,
		Currency:          order.Currency,
		Reason:            reason,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		moved, err := repo.UpdateOrderStatusFrom(ctx, orderID,
			[]enums.OrderStatus{enums.OrderStatusCompleted},
			enums.OrderStatusRefunded, map[string]any{"refunded_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
		}
		if !moved {
			// A concurrent refund settled first. The processor call was
			// idempotent, so there is nothing left to write.
			return nil
		}

		if _, err := s.tickets.WithTx(tx).UpdateTicketStatusByOrder(ctx, orderID, enums.TicketStatusValid, enums.TicketStatusRefunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund tickets")
		}
		for _, item := range order.Items {
			if err := s.inventory.RestoreSold(ctx, tx, item.TicketTypeID, item.Qty); err != nil {
				return err
			}
		}
		if err := repo.UpdatePaymentIntent(ctx, orderID, map[string]any{"status": enums.PaymentStatusRefunded}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: "system"},
			Data: payloads.OrderRefundedEvent{
				OrderID:     orderID,
				UserID:      order.UserID,
				EventID:     order.EventID,
				AmountCents: order.TotalCents,
				RefundedAt:  now,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "order refunded")
	return &Result{
		OrderID:     orderID,
		RefundID:    refundID,
		AmountCents: order.TotalCents,
		Status:      enums.OrderStatusRefunded,
	}, nil
}

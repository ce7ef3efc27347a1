package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/internal/inventory"
	"github.com/gatepass/gatepass-backend/internal/payments"
	"github.com/gatepass/gatepass-backend/pkg/config"
	"github.com/gatepass/gatepass-backend/pkg/db/models"
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

// inventoryStore is the slice of the inventory package the orchestrator uses.
type inventoryStore interface {
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, requests []inventory.ReservationRequest, expiresAt time.Time) error
	Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	FindTicketTypes(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]models.TicketType, error)
}

type paymentGateway interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error)
	Confirm(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error)
	Cancel(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error)
}

// ticketIssuer mints tickets inside the completing transaction.
type ticketIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.Ticket, error)
}

// Service orchestrates the order lifecycle from creation through payment
// settlement and expiry.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (enums.OrderStatus, error)
	ConfirmFromProcessor(ctx context.Context, orderID uuid.UUID, external enums.PaymentStatus, failureReason string) (enums.OrderStatus, error)
	Expire(ctx context.Context, orderID uuid.UUID) error
	ExpireOverdue(ctx context.Context, limit int) (int, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory inventoryStore
	gateway   paymentGateway
	issuer    ticketIssuer
	cfg       config.CheckoutConfig
	logg      *logger.Logger
}

// NewService builds the order orchestrator with its collaborators.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, inv inventoryStore, gateway paymentGateway, issuer ticketIssuer, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("ticket issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		inventory: inv,
		gateway:   gateway,
		issuer:    issuer,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	if input.PaymentToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.TicketTypeID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket type id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, dup := seen[item.TicketTypeID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate ticket type in order").
				WithDetails(map[string]any{"ticket_type_id": item.TicketTypeID.String()})
		}
		seen[item.TicketTypeID] = struct{}{}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  input.UserID.String(),
		"event_id": input.EventID.String(),
	})

	var (
		order  *models.Order
		totals Totals
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			ids = append(ids, item.TicketTypeID)
		}
		types, err := s.inventory.FindTicketTypes(ctx, tx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket types")
		}
		byID := make(map[uuid.UUID]models.TicketType, len(types))
		for _, tt := range types {
			byID[tt.ID] = tt
		}

		subtotal := 0
		lineNames := make(map[uuid.UUID]string, len(input.Items))
		for _, item := range input.Items {
			tt, ok := byID[item.TicketTypeID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket type not found").
					WithDetails(map[string]any{"ticket_type_id": item.TicketTypeID.String()})
			}
			if tt.EventID != input.EventID {
				return pkgerrors.New(pkgerrors.CodeValidation, "ticket type belongs to another event").
					WithDetails(map[string]any{"ticket_type_id": tt.ID.String()})
			}
			if tt.PriceCents != item.UnitPriceCents {
				return pkgerrors.New(pkgerrors.CodeConflict, "ticket type price has changed").
					WithDetails(map[string]any{
						"ticket_type_id":        tt.ID.String(),
						"submitted_price_cents": item.UnitPriceCents,
						"current_price_cents":   tt.PriceCents,
					})
			}
			subtotal += item.UnitPriceCents * item.Qty
			lineNames[tt.ID] = tt.Name
		}
		totals = ComputeTotals(subtotal, s.cfg.ServiceFeeBPS, s.cfg.TaxBPS)
		expiresAt := time.Now().UTC().Add(s.cfg.ReservationTTL)

		order = &models.Order{
			UserID:        input.UserID,
			EventID:       input.EventID,
			Status:        enums.OrderStatusPending,
			Currency:      input.Currency,
			SubtotalCents: totals.SubtotalCents,
			FeeCents:      totals.FeeCents,
			TaxCents:      totals.TaxCents,
			TotalCents:    totals.TotalCents,
			ExpiresAt:     expiresAt,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		lines := make([]models.OrderLineItem, 0, len(input.Items))
		requests := make([]inventory.ReservationRequest, 0, len(input.Items))
		for _, item := range input.Items {
			lines = append(lines, models.OrderLineItem{
				OrderID:        order.ID,
				TicketTypeID:   item.TicketTypeID,
				Name:           lineNames[item.TicketTypeID],
				UnitPriceCents: item.UnitPriceCents,
				Qty:            item.Qty,
				TotalCents:     item.UnitPriceCents * item.Qty,
			})
			requests = append(requests, inventory.ReservationRequest{
				TicketTypeID: item.TicketTypeID,
				Qty:          item.Qty,
			})
		}
		if err := repo.CreateOrderLineItems(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		return s.inventory.Reserve(ctx, tx, order.ID, requests, expiresAt)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	intent, err := s.gateway.CreateIntent(ctx, payments.IntentRequest{
		OrderID:      order.ID,
		AmountCents:  totals.TotalCents,
		Currency:     input.Currency,
		PaymentToken: input.PaymentToken,
		Note:         input.Note,
	})
	if err != nil {
		s.failUnpaidOrder(ctx, order, reasonFromError(err))
		return nil, err
	}

	record := &models.PaymentIntent{
		OrderID:           order.ID,
		ProviderPaymentID: &intent.ProviderPaymentID,
		Status:            intent.Status,
		AmountCents:       totals.TotalCents,
		Currency:          input.Currency,
	}
	if _, err := s.repo.CreatePaymentIntent(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent")
	}

	s.logg.Info(ctx, "order created with payment intent")
	return &CreateOrderResult{
		OrderID:         order.ID,
		PaymentIntentID: record.ID,
		ClientToken:     intent.ClientToken,
		Status:          order.Status,
		Totals:          totals,
		ExpiresAt:       order.ExpiresAt,
	}, nil
}

// failUnpaidOrder releases the reservation and marks the order failed after
// intent creation could not complete. Best effort; the original gateway error
// is what the caller sees.
func (s *service) failUnpaidOrder(ctx context.Context, order *models.Order, reason string) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateOrderStatusFrom(ctx, order.ID, legalSources(enums.OrderStatusFailed), enums.OrderStatusFailed, nil)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if err := s.inventory.Release(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         systemActor(order.UserID),
			Data: payloads.OrderFailedEvent{
				OrderID: order.ID,
				UserID:  order.UserID,
				EventID: order.EventID,
				Reason:  reason,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to roll back unpaid order", err)
	}
}

func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (enums.OrderStatus, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusCompleted || order.Status.IsTerminal() {
		return order.Status, nil
	}
	if order.PaymentIntent == nil || order.PaymentIntent.ProviderPaymentID == nil {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment intent")
	}

	// Mark processing before the capture call. Losing this race means a
	// webhook settled the order first, which the transition guard absorbs.
	if _, err := s.repo.UpdateOrderStatusFrom(ctx, orderID, legalSources(enums.OrderStatusProcessing), enums.OrderStatusProcessing, nil); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order processing")
	}

	status, err := s.gateway.Confirm(ctx, *order.PaymentIntent.ProviderPaymentID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentDeclined {
			if _, applyErr := s.ConfirmFromProcessor(ctx, orderID, enums.PaymentStatusFailed, typed.Message()); applyErr != nil {
				s.logg.Error(ctx, "failed to record declined payment", applyErr)
			}
		}
		return "", err
	}
	return s.ConfirmFromProcessor(ctx, orderID, status, "")
}

func (s *service) ConfirmFromProcessor(ctx context.Context, orderID uuid.UUID, external enums.PaymentStatus, failureReason string) (enums.OrderStatus, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	target, actionable := orderTargetForPayment(external)
	if !actionable {
		order, err := s.repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return order.Status, nil
	}

	var result enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == target {
			result = target
			return nil
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateOrderStatusFrom(ctx, orderID, legalSources(target), target, statusStamps(target, now))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply order transition")
		}
		if !moved {
			fresh, err := repo.FindOrder(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			result = fresh.Status
			if fresh.Status.IsTerminal() || fresh.Status == enums.OrderStatusCompleted {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order transition not allowed").
				WithDetails(map[string]any{
					"current_status": fresh.Status.String(),
					"target_status":  target.String(),
				})
		}

		switch target {
		case enums.OrderStatusCompleted:
			if err := s.inventory.Commit(ctx, tx, orderID); err != nil {
				return err
			}
			tickets, err := s.issuer.Issue(ctx, tx, order)
			if err != nil {
				return err
			}
			if err := repo.UpdatePaymentIntent(ctx, orderID, map[string]any{"status": enums.PaymentStatusSucceeded}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Actor:         systemActor(order.UserID),
				Data: payloads.OrderCompletedEvent{
					OrderID:     orderID,
					UserID:      order.UserID,
					EventID:     order.EventID,
					TotalCents:  order.TotalCents,
					TicketCount: len(tickets),
					CompletedAt: now,
				},
			}); err != nil {
				return err
			}
		case enums.OrderStatusFailed:
			if err := s.inventory.Release(ctx, tx, orderID); err != nil {
				return err
			}
			updates := map[string]any{"status": enums.PaymentStatusFailed}
			if failureReason != "" {
				updates["failure_reason"] = failureReason
			}
			if err := repo.UpdatePaymentIntent(ctx, orderID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Actor:         systemActor(order.UserID),
				Data: payloads.OrderFailedEvent{
					OrderID: orderID,
					UserID:  order.UserID,
					EventID: order.EventID,
					Reason:  failureReason,
				},
			}); err != nil {
				return err
			}
		case enums.OrderStatusCancelled:
			if err := s.inventory.Release(ctx, tx, orderID); err != nil {
				return err
			}
			if err := repo.UpdatePaymentIntent(ctx, orderID, map[string]any{"status": enums.PaymentStatusCancelled}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Actor:         systemActor(order.UserID),
				Data: payloads.OrderCancelledEvent{
					OrderID:     orderID,
					UserID:      order.UserID,
					EventID:     order.EventID,
					CancelledAt: now,
					Reason:      failureReason,
				},
			}); err != nil {
				return err
			}
		case enums.OrderStatusProcessing:
			if err := repo.UpdatePaymentIntent(ctx, orderID, map[string]any{"status": enums.PaymentStatusProcessing}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
			}
		}

		result = target
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *service) Expire(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var (
		expired  bool
		intentID *string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateOrderStatusFrom(ctx, orderID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusCancelled, map[string]any{"cancelled_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel expired order")
		}
		if !moved {
			// A confirmation landed first. Reservation handling belongs
			// to whichever transition won.
			return nil
		}
		expired = true
		if order.PaymentIntent != nil {
			intentID = order.PaymentIntent.ProviderPaymentID
		}

		if err := s.inventory.Release(ctx, tx, orderID); err != nil {
			return err
		}
		if err := repo.UpdatePaymentIntent(ctx, orderID, map[string]any{"status": enums.PaymentStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Actor:         systemActor(order.UserID),
			Data: payloads.OrderCancelledEvent{
				OrderID:     orderID,
				UserID:      order.UserID,
				EventID:     order.EventID,
				CancelledAt: now,
				Reason:      "reservation_expired",
			},
		})
	})
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	if intentID != nil {
		if _, err := s.gateway.Cancel(ctx, *intentID); err != nil {
			// The authorization lapses on its own; a failed void is not
			// worth failing the expiry over.
			s.logg.Error(ctx, "failed to void payment for expired order", err)
		}
	}
	s.logg.Info(ctx, "expired pending order cancelled")
	return nil
}

func (s *service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.repo.FindExpiredPending(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired orders")
	}

	expired := 0
	var errs []error
	for _, order := range overdue {
		if err := s.Expire(ctx, order.ID); err != nil {
			s.logg.Error(ctx, "failed to expire order", err)
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}
	return expired, multierr.Combine(errs...)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return buildOrderDetail(order), nil
}

func buildOrderDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		OrderID:  order.ID,
		UserID:   order.UserID,
		EventID:  order.EventID,
		Status:   order.Status,
		Currency: order.Currency,
		Totals: Totals{
			SubtotalCents: order.SubtotalCents,
			FeeCents:      order.FeeCents,
			TaxCents:      order.TaxCents,
			TotalCents:    order.TotalCents,
		},
		ExpiresAt:   order.ExpiresAt,
		CompletedAt: order.CompletedAt,
		CancelledAt: order.CancelledAt,
		RefundedAt:  order.RefundedAt,
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, LineItemDetail{
			TicketTypeID:   item.TicketTypeID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	if order.PaymentIntent != nil {
		detail.Payment = &PaymentDetail{
			PaymentIntentID:   order.PaymentIntent.ID,
			ProviderPaymentID: order.PaymentIntent.ProviderPaymentID,
			Status:            order.PaymentIntent.Status,
			FailureReason:     order.PaymentIntent.FailureReason,
		}
	}
	return detail
}

// orderTargetForPayment maps a normalized processor status onto the order
// state machine. Created carries no signal and is not actionable.
func orderTargetForPayment(status enums.PaymentStatus) (enums.OrderStatus, bool) {
	switch status {
	case enums.PaymentStatusSucceeded:
		return enums.OrderStatusCompleted, true
	case enums.PaymentStatusFailed:
		return enums.OrderStatusFailed, true
	case enums.PaymentStatusCancelled:
		return enums.OrderStatusCancelled, true
	case enums.PaymentStatusProcessing:
		return enums.OrderStatusProcessing, true
	default:
		return "", false
	}
}

func statusStamps(target enums.OrderStatus, now time.Time) map[string]any {
	switch target {
	case enums.OrderStatusCompleted:
		return map[string]any{"completed_at": now}
	case enums.OrderStatusCancelled:
		return map[string]any{"cancelled_at": now}
	case enums.OrderStatusRefunded:
		return map[string]any{"refunded_at": now}
	default:
		return nil
	}
}

func systemActor(userID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: "system"}
}

func reasonFromError(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

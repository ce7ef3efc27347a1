package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/internal/inventory"
	"github.com/gatepass/gatepass-backend/internal/payments"
	"github.com/gatepass/gatepass-backend/pkg/config"
	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/outbox"
)

type stubOrdersRepo struct {
	order               *models.Order
	intent              *models.PaymentIntent
	lineItems           []models.OrderLineItem
	transitions         []enums.OrderStatus
	intentUpdates       []map[string]any
	expired             []models.Order
	createOrder         func(ctx context.Context, order *models.Order) (*models.Order, error)
	createPaymentIntent func(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createOrder != nil {
		return s.createOrder(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	s.lineItems = append(s.lineItems, items...)
	return nil
}

func (s *stubOrdersRepo) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if s.createPaymentIntent != nil {
		return s.createPaymentIntent(ctx, intent)
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	s.intent = intent
	return intent, nil
}

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	order := *s.order
	order.PaymentIntent = s.intent
	order.Items = s.lineItems
	return &order, nil
}

func (s *stubOrdersRepo) FindPaymentIntentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	if s.intent == nil || s.intent.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.intent, nil
}

func (s *stubOrdersRepo) FindOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Order, error) {
	if s.intent == nil || s.intent.ProviderPaymentID == nil || *s.intent.ProviderPaymentID != providerPaymentID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.FindOrder(ctx, s.intent.OrderID)
}

func (s *stubOrdersRepo) UpdateOrderStatusFrom(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, stamps map[string]any) (bool, error) {
	if s.order == nil || s.order.ID != orderID {
		return false, nil
	}
	for _, src := range from {
		if s.order.Status == src {
			s.order.Status = to
			s.transitions = append(s.transitions, to)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubOrdersRepo) UpdatePaymentIntent(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.intentUpdates = append(s.intentUpdates, updates)
	if s.intent != nil && s.intent.OrderID == orderID {
		if status, ok := updates["status"].(enums.PaymentStatus); ok {
			s.intent.Status = status
		}
	}
	return nil
}

func (s *stubOrdersRepo) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return s.expired, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubInventory struct {
	ticketTypes []models.TicketType
	reserved    []inventory.ReservationRequest
	commits     []uuid.UUID
	releases    []uuid.UUID
	reserveErr  error
	commitErr   error
}

func (s *stubInventory) Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, requests []inventory.ReservationRequest, expiresAt time.Time) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, requests...)
	return nil
}

func (s *stubInventory) Commit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, orderID)
	return nil
}

func (s *stubInventory) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	s.releases = append(s.releases, orderID)
	return nil
}

func (s *stubInventory) FindTicketTypes(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]models.TicketType, error) {
	return s.ticketTypes, nil
}

type stubGateway struct {
	intent     *payments.Intent
	intentErr  error
	confirmed  []string
	confirm    enums.PaymentStatus
	confirmErr error
	cancelled  []string
}

func (s *stubGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	if s.intentErr != nil {
		return nil, s.intentErr
	}
	return s.intent, nil
}

func (s *stubGateway) Confirm(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error) {
	s.confirmed = append(s.confirmed, providerPaymentID)
	if s.confirmErr != nil {
		return "", s.confirmErr
	}
	return s.confirm, nil
}

func (s *stubGateway) Cancel(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error) {
	s.cancelled = append(s.cancelled, providerPaymentID)
	return enums.PaymentStatusCancelled, nil
}

type stubIssuer struct {
	tickets []models.Ticket
	err     error
	calls   int
}

func (s *stubIssuer) Issue(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.Ticket, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tickets, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ReservationTTL: 15 * time.Minute,
		ServiceFeeBPS:  350,
		TaxBPS:         0,
	}
}

func newTestService(t *testing.T, repo *stubOrdersRepo, ob *stubOutboxPublisher, inv *stubInventory, gw *stubGateway, issuer *stubIssuer) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, ob, inv, gw, issuer, testCheckoutConfig(), logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func ticketType(eventID uuid.UUID, priceCents int) models.TicketType {
	return models.TicketType{
		ID:         uuid.New(),
		EventID:    eventID,
		Name:       "General Admission",
		PriceCents: priceCents,
		Quantity:   100,
		IsActive:   true,
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	eventID := uuid.New()
	tt := ticketType(eventID, 2500)
	repo := &stubOrdersRepo{}
	inv := &stubInventory{ticketTypes: []models.TicketType{tt}}
	gw := &stubGateway{intent: &payments.Intent{
		ProviderPaymentID: "pay_1",
		ClientToken:       "pay_1",
		Status:            enums.PaymentStatusProcessing,
	}}
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob, inv, gw, &stubIssuer{})

	result, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:       uuid.New(),
		EventID:      eventID,
		Currency:     enums.CurrencyUSD,
		PaymentToken: "cnon:card-nonce",
		Items: []CreateOrderItem{
			{TicketTypeID: tt.ID, Qty: 2, UnitPriceCents: 2500},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if result.Totals.SubtotalCents != 5000 {
		t.Fatalf("unexpected subtotal %d", result.Totals.SubtotalCents)
	}
	if result.Totals.FeeCents != 175 {
		t.Fatalf("unexpected fee %d", result.Totals.FeeCents)
	}
	if result.Totals.TotalCents != 5175 {
		t.Fatalf("unexpected total %d", result.Totals.TotalCents)
	}
	if result.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if len(inv.reserved) != 1 || inv.reserved[0].Qty != 2 {
		t.Fatalf("unexpected reservations %v", inv.reserved)
	}
	if repo.intent == nil || *repo.intent.ProviderPaymentID != "pay_1" {
		t.Fatalf("payment intent not stored")
	}
	if repo.intent.AmountCents != 5175 {
		t.Fatalf("intent amount %d, want order total", repo.intent.AmountCents)
	}
	if result.ClientToken != "pay_1" {
		t.Fatalf("unexpected client token %q", result.ClientToken)
	}
}

func TestCreateOrderStalePrice(t *testing.T) {
	eventID := uuid.New()
	tt := ticketType(eventID, 3000)
	repo := &stubOrdersRepo{}
	inv := &stubInventory{ticketTypes: []models.TicketType{tt}}
	gw := &stubGateway{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, inv, gw, &stubIssuer{})

	_, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:       uuid.New(),
		EventID:      eventID,
		Currency:     enums.CurrencyUSD,
		PaymentToken: "cnon:card-nonce",
		Items: []CreateOrderItem{
			{TicketTypeID: tt.ID, Qty: 1, UnitPriceCents: 2500},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected price conflict, got %v", err)
	}
	if len(inv.reserved) != 0 {
		t.Fatalf("reservation must not happen on stale price")
	}
}

func TestCreateOrderIntentFailureRollsBack(t *testing.T) {
	eventID := uuid.New()
	tt := ticketType(eventID, 2500)
	repo := &stubOrdersRepo{}
	inv := &stubInventory{ticketTypes: []models.TicketType{tt}}
	gw := &stubGateway{intentErr: pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")}
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob, inv, gw, &stubIssuer{})

	_, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:       uuid.New(),
		EventID:      eventID,
		Currency:     enums.CurrencyUSD,
		PaymentToken: "cnon:card-nonce",
		Items: []CreateOrderItem{
			{TicketTypeID: tt.ID, Qty: 1, UnitPriceCents: 2500},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected decline surfaced, got %v", err)
	}
	if repo.order.Status != enums.OrderStatusFailed {
		t.Fatalf("order status %s, want failed", repo.order.Status)
	}
	if len(inv.releases) != 1 {
		t.Fatalf("reservation not released")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderFailed {
		t.Fatalf("missing order failed event")
	}
}

func TestConfirmFromProcessorCompletes(t *testing.T) {
	orderID := uuid.New()
	providerID := "pay_1"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:         orderID,
			UserID:     uuid.New(),
			EventID:    uuid.New(),
			Status:     enums.OrderStatusProcessing,
			TotalCents: 5175,
		},
		intent: &models.PaymentIntent{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProviderPaymentID: &providerID,
			Status:            enums.PaymentStatusProcessing,
		},
	}
	inv := &stubInventory{}
	ob := &stubOutboxPublisher{}
	issuer := &stubIssuer{tickets: []models.Ticket{{}, {}}}
	svc := newTestService(t, repo, ob, inv, &stubGateway{}, issuer)

	status, err := svc.ConfirmFromProcessor(context.Background(), orderID, enums.PaymentStatusSucceeded, "")
	if err != nil {
		t.Fatalf("ConfirmFromProcessor: %v", err)
	}
	if status != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
	if len(inv.commits) != 1 {
		t.Fatalf("inventory not committed")
	}
	if issuer.calls != 1 {
		t.Fatalf("tickets not issued")
	}
	if repo.intent.Status != enums.PaymentStatusSucceeded {
		t.Fatalf("intent status %s", repo.intent.Status)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderCompleted {
		t.Fatalf("missing order completed event")
	}
}

func TestConfirmFromProcessorRedeliveryIsNoOp(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusCompleted,
		},
	}
	inv := &stubInventory{}
	issuer := &stubIssuer{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, inv, &stubGateway{}, issuer)

	status, err := svc.ConfirmFromProcessor(context.Background(), orderID, enums.PaymentStatusSucceeded, "")
	if err != nil {
		t.Fatalf("ConfirmFromProcessor: %v", err)
	}
	if status != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
	if len(inv.commits) != 0 || issuer.calls != 0 {
		t.Fatalf("completed order must not be settled twice")
	}
}

func TestConfirmFromProcessorFailureAgainstCompletedOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusCompleted,
		},
	}
	inv := &stubInventory{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, inv, &stubGateway{}, &stubIssuer{})

	// A stale failure event after completion reports the settled state.
	status, err := svc.ConfirmFromProcessor(context.Background(), orderID, enums.PaymentStatusFailed, "late decline")
	if err != nil {
		t.Fatalf("ConfirmFromProcessor: %v", err)
	}
	if status != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
	if len(inv.releases) != 0 {
		t.Fatalf("completed order must not release inventory")
	}
}

func TestConfirmPaymentCaptures(t *testing.T) {
	orderID := uuid.New()
	providerID := "pay_1"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusPending,
		},
		intent: &models.PaymentIntent{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProviderPaymentID: &providerID,
			Status:            enums.PaymentStatusProcessing,
		},
	}
	gw := &stubGateway{confirm: enums.PaymentStatusSucceeded}
	inv := &stubInventory{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, inv, gw, &stubIssuer{})

	status, err := svc.ConfirmPayment(context.Background(), orderID)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if status != enums.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
	if len(gw.confirmed) != 1 || gw.confirmed[0] != "pay_1" {
		t.Fatalf("unexpected confirm calls %v", gw.confirmed)
	}
	if len(inv.commits) != 1 {
		t.Fatalf("inventory not committed")
	}
}

func TestConfirmPaymentDeclineMarksFailed(t *testing.T) {
	orderID := uuid.New()
	providerID := "pay_1"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusPending,
		},
		intent: &models.PaymentIntent{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProviderPaymentID: &providerID,
			Status:            enums.PaymentStatusProcessing,
		},
	}
	gw := &stubGateway{confirmErr: pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")}
	inv := &stubInventory{}
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob, inv, gw, &stubIssuer{})

	_, err := svc.ConfirmPayment(context.Background(), orderID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected decline surfaced, got %v", err)
	}
	if repo.order.Status != enums.OrderStatusFailed {
		t.Fatalf("order status %s, want failed", repo.order.Status)
	}
	if len(inv.releases) != 1 {
		t.Fatalf("reservation not released on decline")
	}
}

func TestExpireCancelsPendingOrder(t *testing.T) {
	orderID := uuid.New()
	providerID := "pay_1"
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusPending,
		},
		intent: &models.PaymentIntent{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProviderPaymentID: &providerID,
			Status:            enums.PaymentStatusProcessing,
		},
	}
	inv := &stubInventory{}
	gw := &stubGateway{}
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob, inv, gw, &stubIssuer{})

	if err := svc.Expire(context.Background(), orderID); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if repo.order.Status != enums.OrderStatusCancelled {
		t.Fatalf("order status %s, want cancelled", repo.order.Status)
	}
	if len(inv.releases) != 1 {
		t.Fatalf("reservation not released")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderCancelled {
		t.Fatalf("missing order cancelled event")
	}
	if len(gw.cancelled) != 1 || gw.cancelled[0] != "pay_1" {
		t.Fatalf("authorization not voided")
	}
}

func TestExpireLosesRaceIsNoOp(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusProcessing,
		},
	}
	inv := &stubInventory{}
	ob := &stubOutboxPublisher{}
	svc := newTestService(t, repo, ob, inv, &stubGateway{}, &stubIssuer{})

	if err := svc.Expire(context.Background(), orderID); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if repo.order.Status != enums.OrderStatusProcessing {
		t.Fatalf("order status changed to %s", repo.order.Status)
	}
	if len(inv.releases) != 0 || len(ob.events) != 0 {
		t.Fatalf("losing expiry race must not touch inventory or outbox")
	}
}

func TestExpireOverdue(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		order: &models.Order{
			ID:      orderID,
			UserID:  uuid.New(),
			EventID: uuid.New(),
			Status:  enums.OrderStatusPending,
		},
	}
	repo.expired = []models.Order{{ID: orderID}}
	inv := &stubInventory{}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, inv, &stubGateway{}, &stubIssuer{})

	count, err := svc.ExpireOverdue(context.Background(), 100)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if count != 1 {
		t.Fatalf("expired %d orders, want 1", count)
	}
	if repo.order.Status != enums.OrderStatusCancelled {
		t.Fatalf("order status %s, want cancelled", repo.order.Status)
	}
}

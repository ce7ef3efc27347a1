package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  event_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  expires_at DATETIME NOT NULL,
  completed_at DATETIME,
  cancelled_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  ticket_type_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	paymentIntents := `
CREATE TABLE IF NOT EXISTS payment_intents (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  provider_payment_id TEXT UNIQUE,
  status TEXT NOT NULL DEFAULT 'created',
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderLineItems).Error)
	require.NoError(t, db.Exec(paymentIntents).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, expiresAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		EventID:       uuid.New(),
		Status:        status,
		Currency:      enums.CurrencyUSD,
		SubtotalCents: 5000,
		FeeCents:      175,
		TotalCents:    5175,
		ExpiresAt:     expiresAt,
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.OrderLineItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		TicketTypeID:   uuid.New(),
		Name:           "General Admission",
		UnitPriceCents: 2500,
		Qty:            2,
		TotalCents:     5000,
	}
	require.NoError(t, db.Create(item).Error)
	return order
}

func seedIntent(t *testing.T, db *gorm.DB, orderID uuid.UUID, providerID string) *models.PaymentIntent {
	t.Helper()

	intent := &models.PaymentIntent{
		ID:                uuid.New(),
		OrderID:           orderID,
		ProviderPaymentID: &providerID,
		Status:            enums.PaymentStatusProcessing,
		AmountCents:       5175,
		Currency:          enums.CurrencyUSD,
	}
	require.NoError(t, db.Create(intent).Error)
	return intent
}

func TestRepositoryFindOrderPreloads(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(15*time.Minute))
	seedIntent(t, db, order.ID, "pay_123")

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.NotNil(t, found.PaymentIntent)
	assert.Equal(t, "General Admission", found.Items[0].Name)
	assert.Equal(t, "pay_123", *found.PaymentIntent.ProviderPaymentID)
}

func TestRepositoryFindOrderByProviderPaymentID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(15*time.Minute))
	seedIntent(t, db, order.ID, "pay_lookup")

	found, err := repo.FindOrderByProviderPaymentID(context.Background(), "pay_lookup")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindOrderByProviderPaymentID(context.Background(), "pay_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateOrderStatusFromGuard(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(15*time.Minute))

	now := time.Now().UTC()
	moved, err := repo.UpdateOrderStatusFrom(context.Background(), order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing},
		enums.OrderStatusCompleted, map[string]any{"completed_at": now})
	require.NoError(t, err)
	require.True(t, moved)

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, found.Status)
	require.NotNil(t, found.CompletedAt)

	// The order left the source set, so a second transition is a no-op.
	moved, err = repo.UpdateOrderStatusFrom(context.Background(), order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	found, err = repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, found.Status)
}

func TestRepositoryUpdatePaymentIntent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(15*time.Minute))
	seedIntent(t, db, order.ID, "pay_update")

	err := repo.UpdatePaymentIntent(context.Background(), order.ID, map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": "card declined",
	})
	require.NoError(t, err)

	intent, err := repo.FindPaymentIntentByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, intent.Status)
	require.NotNil(t, intent.FailureReason)
	assert.Equal(t, "card declined", *intent.FailureReason)
}

func TestRepositoryFindExpiredPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	stale := seedOrder(t, db, enums.OrderStatusPending, now.Add(-time.Minute))
	seedOrder(t, db, enums.OrderStatusPending, now.Add(15*time.Minute))
	seedOrder(t, db, enums.OrderStatusCompleted, now.Add(-time.Hour))

	overdue, err := repo.FindExpiredPending(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, stale.ID, overdue[0].ID)
}

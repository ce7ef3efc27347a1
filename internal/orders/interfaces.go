package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindPaymentIntentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	FindOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Order, error)
	UpdateOrderStatusFrom(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, stamps map[string]any) (bool, error)
	UpdatePaymentIntent(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

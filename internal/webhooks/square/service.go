package squarewebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/internal/payments"
	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/metrics"
)

// dedupeConsumer names this process in the shared idempotency ledger.
const dedupeConsumer = "square-webhook"

type orderConfirmer interface {
	ConfirmFromProcessor(ctx context.Context, orderID uuid.UUID, external enums.PaymentStatus, failureReason string) (enums.OrderStatus, error)
}

type orderLookup interface {
	FindOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.Order, error)
}

type dedupeLedger interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type ServiceParams struct {
	Orders  orderConfirmer
	Lookup  orderLookup
	Dedupe  dedupeLedger
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
}

// Service applies verified Square payment callbacks to the order lifecycle.
type Service struct {
	orders  orderConfirmer
	lookup  orderLookup
	dedupe  dedupeLedger
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order confirmer required")
	}
	if params.Lookup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order lookup required")
	}
	if params.Dedupe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dedupe ledger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:  params.Orders,
		lookup:  params.Lookup,
		dedupe:  params.Dedupe,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// PaymentWebhookEvent is the subset of Square's callback envelope this
// process reads.
type PaymentWebhookEvent struct {
	MerchantID string             `json:"merchant_id"`
	Type       string             `json:"type"`
	EventID    string             `json:"event_id"`
	CreatedAt  string             `json:"created_at"`
	Data       PaymentWebhookData `json:"data"`
}

type PaymentWebhookData struct {
	Type   string               `json:"type"`
	ID     string               `json:"id"`
	Object PaymentWebhookObject `json:"object"`
}

type PaymentWebhookObject struct {
	Payment *PaymentPayload `json:"payment"`
}

// PaymentPayload carries the payment fields used to settle an order. The
// reference id is the order id the intent was created with.
type PaymentPayload struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ReferenceID   string `json:"reference_id"`
	DelayedUntil  string `json:"delayed_until"`
	SourceType    string `json:"source_type"`
	FailureReason string `json:"failure_reason"`
}

// HandleEvent processes a signature-verified Square event. Redeliveries and
// out-of-order transitions are absorbed; only dependency failures surface so
// the processor retries them.
func (s *Service) HandleEvent(ctx context.Context, event *PaymentWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	if strings.TrimSpace(event.EventID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}

	duplicate, err := s.dedupe.CheckAndMarkProcessed(ctx, dedupeConsumer, event.EventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedupe check")
	}
	if duplicate {
		s.metrics.IncDuplicate(event.Type)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"webhook_event_id": event.EventID}), "duplicate webhook event skipped")
		return nil
	}
	s.metrics.IncReceived(event.Type)

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		if err := s.applyPaymentEvent(ctx, event); err != nil {
			// Release the dedupe marker so the processor's redelivery is
			// not mistaken for a duplicate of this failed attempt.
			_ = s.dedupe.Delete(ctx, dedupeConsumer, event.EventID)
			return err
		}
		return nil
	default:
		return nil
	}
}

func (s *Service) applyPaymentEvent(ctx context.Context, event *PaymentWebhookEvent) error {
	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}

	orderID, err := s.resolveOrderID(ctx, payment)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Payments created outside this system share the webhook
			// subscription. Nothing to settle.
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"webhook_event_id": event.EventID,
				"payment_id":       payment.ID,
			}), "webhook payment does not match any order")
			return nil
		}
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	external := payments.NormalizeStatus(payment.Status)
	status, err := s.orders.ConfirmFromProcessor(ctx, orderID, external, payment.FailureReason)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"webhook_event_id": event.EventID,
				"external_status":  payment.Status,
				"order_status":     status.String(),
			}), "webhook transition discarded")
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) resolveOrderID(ctx context.Context, payment *PaymentPayload) (uuid.UUID, error) {
	if ref := strings.TrimSpace(payment.ReferenceID); ref != "" {
		if orderID, err := uuid.Parse(ref); err == nil {
			return orderID, nil
		}
	}
	if strings.TrimSpace(payment.ID) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
	}
	order, err := s.lookup.FindOrderByProviderPaymentID(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment")
	}
	return order.ID, nil
}

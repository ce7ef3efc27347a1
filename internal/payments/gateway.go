package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/square"
)

// processorClient is the slice of the Square wrapper the gateway consumes.
type processorClient interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	CompletePayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	RefundPayment(ctx context.Context, params square.RefundCreateParams) (*sq.PaymentRefund, error)
}

// IntentRequest describes a charge to authorize for an order.
type IntentRequest struct {
	OrderID      uuid.UUID
	AmountCents  int
	Currency     enums.Currency
	PaymentToken string
	Note         string
}

// Intent is the normalized result of an authorization.
type Intent struct {
	ProviderPaymentID string
	ClientToken       string
	Status            enums.PaymentStatus
}

// RefundRequest describes a refund against a captured payment.
type RefundRequest struct {
	OrderID           uuid.UUID
	ProviderPaymentID string
	AmountCents       int
	Currency          enums.Currency
	Reason            string
}

// Gateway adapts order-level payment operations onto the processor. It holds
// no state; every mutating call carries an idempotency key derived from the
// order id, so a retried call is processor-side idempotent.
type Gateway struct {
	client processorClient
}

// NewGateway builds the payment gateway over the Square client.
func NewGateway(client processorClient) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &Gateway{client: client}, nil
}

// CreateIntent authorizes the order total without capturing it. The caller
// completes the payment later via Confirm or a processor webhook.
func (g *Gateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(req.PaymentToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token required")
	}

	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    int64(req.AmountCents),
		Currency:       req.Currency.String(),
		SourceID:       req.PaymentToken,
		IdempotencyKey: intentKey(req.OrderID),
		Note:           req.Note,
		ReferenceID:    req.OrderID.String(),
		Autocomplete:   false,
	})
	if err != nil {
		return nil, err
	}

	providerID := stringValue(payment.GetID())
	if providerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "processor returned payment without id")
	}
	return &Intent{
		ProviderPaymentID: providerID,
		ClientToken:       providerID,
		Status:            NormalizeStatus(stringValue(payment.GetStatus())),
	}, nil
}

// Confirm captures a previously authorized payment and reports its status.
func (g *Gateway) Confirm(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error) {
	if strings.TrimSpace(providerPaymentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}
	payment, err := g.client.CompletePayment(ctx, providerPaymentID)
	if err != nil {
		return "", err
	}
	return NormalizeStatus(stringValue(payment.GetStatus())), nil
}

// Cancel voids an authorized, uncaptured payment. Used when a pending order
// expires before confirmation.
func (g *Gateway) Cancel(ctx context.Context, providerPaymentID string) (enums.PaymentStatus, error) {
	if strings.TrimSpace(providerPaymentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}
	payment, err := g.client.CancelPayment(ctx, providerPaymentID)
	if err != nil {
		return "", err
	}
	return NormalizeStatus(stringValue(payment.GetStatus())), nil
}

// Refund reverses a captured payment. The refund is keyed by the order id so
// a retried call cannot double-refund.
func (g *Gateway) Refund(ctx context.Context, req RefundRequest) (string, error) {
	if req.OrderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(req.ProviderPaymentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}
	if req.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	refund, err := g.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      req.ProviderPaymentID,
		AmountCents:    int64(req.AmountCents),
		Currency:       req.Currency.String(),
		Reason:         req.Reason,
		IdempotencyKey: refundKey(req.OrderID),
	})
	if err != nil {
		return "", err
	}

	refundID := refund.GetID()
	if refundID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "processor returned refund without id")
	}
	return refundID, nil
}

// NormalizeStatus maps the processor's payment status onto the internal enum.
func NormalizeStatus(raw string) enums.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVED", "PENDING":
		return enums.PaymentStatusProcessing
	case "COMPLETED":
		return enums.PaymentStatusSucceeded
	case "CANCELED":
		return enums.PaymentStatusCancelled
	case "FAILED":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusCreated
	}
}

func intentKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order-%s-create", orderID)
}

func refundKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order-%s-refund", orderID)
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/api/responses"
	"github.com/gatepass/gatepass-backend/api/validators"
	"github.com/gatepass/gatepass-backend/internal/orders"
	"github.com/gatepass/gatepass-backend/internal/refunds"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
)

// CreatePaymentIntent opens a checkout: it reserves inventory for the
// requested ticket quantities and registers a payment intent with the
// processor.
func CreatePaymentIntent(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createPaymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orders.CreateOrderItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, orders.CreateOrderItem{
				TicketTypeID:   item.TicketTypeID,
				Qty:            item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			})
		}

		currency := enums.CurrencyUSD
		if payload.Currency != "" {
			currency = enums.Currency(payload.Currency)
		}

		result, err := svc.Create(r.Context(), orders.CreateOrderInput{
			UserID:       payload.UserID,
			EventID:      payload.EventID,
			Currency:     currency,
			Items:        items,
			PaymentToken: payload.PaymentToken,
			Note:         validators.SanitizeString(payload.Note, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCreatePaymentIntentResponse(result))
	}
}

// ConfirmPayment captures the authorized payment and finalizes the order.
func ConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.ConfirmPayment(r.Context(), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, confirmPaymentResponse{
			OrderID: payload.OrderID,
			Status:  string(status),
		})
	}
}

// RefundPayment refunds a completed order in full and voids its tickets.
func RefundPayment(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refund(r.Context(), payload.OrderID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refundResponse{
			OrderID:     result.OrderID,
			RefundID:    result.RefundID,
			AmountCents: result.AmountCents,
			Status:      string(result.Status),
		})
	}
}

type createPaymentIntentRequest struct {
	UserID       uuid.UUID                 `json:"user_id" validate:"required,uuid4"`
	EventID      uuid.UUID                 `json:"event_id" validate:"required,uuid4"`
	Currency     string                    `json:"currency" validate:"omitempty,len=3"`
	PaymentToken string                    `json:"payment_token" validate:"required"`
	Note         string                    `json:"note" validate:"omitempty,max=500"`
	Items        []createPaymentIntentItem `json:"items" validate:"required,min=1,dive"`
}

type createPaymentIntentItem struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id" validate:"required,uuid4"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int       `json:"unit_price_cents" validate:"required,min=1"`
}

type confirmPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required,uuid4"`
}

type refundRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required,uuid4"`
	Reason  string    `json:"reason" validate:"omitempty,max=500"`
}

type createPaymentIntentResponse struct {
	OrderID         uuid.UUID     `json:"order_id"`
	PaymentIntentID uuid.UUID     `json:"payment_intent_id"`
	ClientToken     string        `json:"client_token"`
	Status          string        `json:"status"`
	Totals          orders.Totals `json:"totals"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

type confirmPaymentResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

type refundResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	RefundID    string    `json:"refund_id"`
	AmountCents int       `json:"amount_cents"`
	Status      string    `json:"status"`
}

func newCreatePaymentIntentResponse(result *orders.CreateOrderResult) createPaymentIntentResponse {
	if result == nil {
		return createPaymentIntentResponse{}
	}
	return createPaymentIntentResponse{
		OrderID:         result.OrderID,
		PaymentIntentID: result.PaymentIntentID,
		ClientToken:     result.ClientToken,
		Status:          string(result.Status),
		Totals:          result.Totals,
		ExpiresAt:       result.ExpiresAt,
	}
}

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/api/responses"
	"github.com/gatepass/gatepass-backend/internal/orders"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
)

// OrderDetail serves the order read model with its line items and payment.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}

		detail, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDetailResponse(detail))
	}
}

type orderDetailResponse struct {
	OrderID     uuid.UUID             `json:"order_id"`
	UserID      uuid.UUID             `json:"user_id"`
	EventID     uuid.UUID             `json:"event_id"`
	Status      string                `json:"status"`
	Currency    string                `json:"currency"`
	Totals      orders.Totals         `json:"totals"`
	ExpiresAt   time.Time             `json:"expires_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	CancelledAt *time.Time            `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time            `json:"refunded_at,omitempty"`
	Items       []orderItemResponse   `json:"items"`
	Payment     *orderPaymentResponse `json:"payment,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

type orderItemResponse struct {
	TicketTypeID   uuid.UUID `json:"ticket_type_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

type orderPaymentResponse struct {
	PaymentIntentID   uuid.UUID `json:"payment_intent_id"`
	ProviderPaymentID *string   `json:"provider_payment_id,omitempty"`
	Status            string    `json:"status"`
	FailureReason     *string   `json:"failure_reason,omitempty"`
}

func newOrderDetailResponse(detail *orders.OrderDetail) orderDetailResponse {
	if detail == nil {
		return orderDetailResponse{}
	}
	items := make([]orderItemResponse, 0, len(detail.Items))
	for _, item := range detail.Items {
		items = append(items, orderItemResponse{
			TicketTypeID:   item.TicketTypeID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	resp := orderDetailResponse{
		OrderID:     detail.OrderID,
		UserID:      detail.UserID,
		EventID:     detail.EventID,
		Status:      string(detail.Status),
		Currency:    string(detail.Currency),
		Totals:      detail.Totals,
		ExpiresAt:   detail.ExpiresAt,
		CompletedAt: detail.CompletedAt,
		CancelledAt: detail.CancelledAt,
		RefundedAt:  detail.RefundedAt,
		Items:       items,
		CreatedAt:   detail.CreatedAt,
	}
	if detail.Payment != nil {
		resp.Payment = &orderPaymentResponse{
			PaymentIntentID:   detail.Payment.PaymentIntentID,
			ProviderPaymentID: detail.Payment.ProviderPaymentID,
			Status:            string(detail.Payment.Status),
			FailureReason:     detail.Payment.FailureReason,
		}
	}
	return resp
}

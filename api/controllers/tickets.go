package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/api/responses"
	"github.com/gatepass/gatepass-backend/api/validators"
	"github.com/gatepass/gatepass-backend/internal/tickets"
	"github.com/gatepass/gatepass-backend/pkg/db/models"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
)

// RedeemTicket marks a ticket as used at the gate. A ticket admits exactly
// once; refunded or already scanned tickets are rejected.
func RedeemTicket(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}

		scanCode := validators.SanitizeString(chi.URLParam(r, "scanCode"), 64)
		if scanCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "scan code required"))
			return
		}

		var payload redeemTicketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Redeem(r.Context(), scanCode, payload.ScannerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newRedeemTicketResponse(ticket))
	}
}

type redeemTicketRequest struct {
	ScannerID uuid.UUID `json:"scanner_id" validate:"required,uuid4"`
}

type redeemTicketResponse struct {
	TicketID     uuid.UUID  `json:"ticket_id"`
	OrderID      uuid.UUID  `json:"order_id"`
	TicketTypeID uuid.UUID  `json:"ticket_type_id"`
	Status       string     `json:"status"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	ScannedBy    *uuid.UUID `json:"scanned_by,omitempty"`
}

func newRedeemTicketResponse(ticket *models.Ticket) redeemTicketResponse {
	if ticket == nil {
		return redeemTicketResponse{}
	}
	return redeemTicketResponse{
		TicketID:     ticket.ID,
		OrderID:      ticket.OrderID,
		TicketTypeID: ticket.TicketTypeID,
		Status:       string(ticket.Status),
		ScannedAt:    ticket.ScannedAt,
		ScannedBy:    ticket.ScannedBy,
	}
}

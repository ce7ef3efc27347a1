package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gatepass/gatepass-backend/api/responses"
	squarewebhook "github.com/gatepass/gatepass-backend/internal/webhooks/square"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/metrics"
)

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.PaymentWebhookEvent) error
}

type squareClient interface {
	SigningSecret() string
}

// SquareWebhook is the intake for Square payment notifications. The signature
// is verified against the raw body before anything is decoded; unverified
// payloads never reach the processing service.
func SquareWebhook(svc SquareWebhookService, client squareClient, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "square client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Square-Signature")
		if !validateSquareSignature(payload, client.SigningSecret(), sigHeader) {
			webhookMetrics.IncInvalidSignature()
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"remote_addr": r.RemoteAddr,
					"has_header":  sigHeader != "",
				})
				logg.Warn(logCtx, "webhook signature rejected")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook signature"))
			return
		}

		var event squarewebhook.PaymentWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func validateSquareSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

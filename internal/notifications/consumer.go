package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	"github.com/gatepass/gatepass-backend/pkg/enums"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	"github.com/gatepass/gatepass-backend/pkg/outbox"
	"github.com/gatepass/gatepass-backend/pkg/outbox/idempotency"
	"github.com/gatepass/gatepass-backend/pkg/outbox/payloads"
	"github.com/gatepass/gatepass-backend/pkg/outbox/registry"
)

const (
	orderNotificationConsumer = "order-notifications"
	orderEventVersion         = 1
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches the notification topic and turns order lifecycle events
// into in-app notifications for the buyer.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newOrderEventDecoders(),
		logg:         logg,
	}, nil
}

func newOrderEventDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderCompleted, orderEventVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderCompletedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	decoders.Register(enums.EventOrderFailed, orderEventVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderFailedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	decoders.Register(enums.EventOrderCancelled, orderEventVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderCancelledEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	decoders.Register(enums.EventOrderRefunded, orderEventVersion, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderRefundedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Attributes["event_type"], msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// process applies one message. Malformed messages are acked so they do not
// clog the subscription; transient failures nack for redelivery.
func (c *Consumer) process(ctx context.Context, rawEventType, messageID string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": rawEventType,
	})

	eventType, err := enums.ParseOutboxEventType(rawEventType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unrecognized event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Error(logCtx, "envelope missing event id", nil)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, envelope.EventID)
		return processResult{ack: true}
	}

	notification := buildNotification(decoded)
	if notification == nil {
		c.logg.Info(logCtx, "event type carries no notification")
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, envelope.EventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"user_id":  notification.UserID.String(),
		"order_id": notification.OrderID.String(),
	}), "notification stored")
	return processResult{ack: true}
}

func buildNotification(decoded interface{}) *models.Notification {
	switch event := decoded.(type) {
	case *payloads.OrderCompletedEvent:
		return &models.Notification{
			UserID:  event.UserID,
			OrderID: event.OrderID,
			Type:    enums.NotificationTypeOrder,
			Title:   "Order confirmed",
			Message: fmt.Sprintf("Your order is confirmed and %d ticket(s) are ready.", event.TicketCount),
			Link:    orderLink(event.OrderID),
		}
	case *payloads.OrderFailedEvent:
		message := "Your payment could not be completed."
		if event.Reason != "" {
			message = fmt.Sprintf("Your payment could not be completed: %s", event.Reason)
		}
		return &models.Notification{
			UserID:  event.UserID,
			OrderID: event.OrderID,
			Type:    enums.NotificationTypeOrder,
			Title:   "Payment failed",
			Message: message,
			Link:    orderLink(event.OrderID),
		}
	case *payloads.OrderCancelledEvent:
		message := "Your order was cancelled and the held tickets were released."
		if event.Reason != "" {
			message = fmt.Sprintf("Your order was cancelled: %s", event.Reason)
		}
		return &models.Notification{
			UserID:  event.UserID,
			OrderID: event.OrderID,
			Type:    enums.NotificationTypeOrder,
			Title:   "Order cancelled",
			Message: message,
			Link:    orderLink(event.OrderID),
		}
	case *payloads.OrderRefundedEvent:
		return &models.Notification{
			UserID:  event.UserID,
			OrderID: event.OrderID,
			Type:    enums.NotificationTypeRefund,
			Title:   "Refund issued",
			Message: fmt.Sprintf("A refund of $%.2f is on its way back to your payment method.", float64(event.AmountCents)/100),
			Link:    orderLink(event.OrderID),
		}
	default:
		return nil
	}
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/orders/%s", orderID)
	return &link
}

package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
	"github.com/gosha22008/orders-backend/pkg/outbox/registry"
)

const notificationConsumer = "notification-consumer"

type sender interface {
	SendOrderPlacedEmail(ctx context.Context, userID uuid.UUID, orderID uint64) error
	SendRegistrationEmail(ctx context.Context, userID uuid.UUID) error
	SendPasswordResetEmail(ctx context.Context, userID uuid.UUID, tokenID uint64) error
}

type idempotencyManager interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns domain events into e-mails.
type Consumer struct {
	sender       sender
	subscription *pubsub.Subscriber
	idempotency  idempotencyManager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(s sender, subscription *pubsub.Subscriber, manager idempotencyManager, logg *logger.Logger) (*Consumer, error) {
	if s == nil {
		return nil, fmt.Errorf("notification sender required")
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
		sender:       s,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newDecoders(),
		logg:         logg,
	}, nil
}

func newDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	registry.RegisterType[payloads.OrderPlacedEvent](decoders, enums.EventOrderPlaced, outbox.CurrentVersion)
	registry.RegisterType[payloads.UserRegisteredEvent](decoders, enums.EventUserRegistered, outbox.CurrentVersion)
	registry.RegisterType[payloads.PasswordResetRequestedEvent](decoders, enums.EventPasswordResetRequested, outbox.CurrentVersion)
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process handles one delivery and reports whether it should be redelivered.
func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventOrderPlaced, enums.EventUserRegistered, enums.EventPasswordResetRequested:
	default:
		c.logg.Info(logCtx, "skipping event without notification")
		return false
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return false
	}
	eventID, err := envelope.ID()
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return false
	}
	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return false
	}

	claimed, err := c.idempotency.Claim(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	if err := c.dispatch(logCtx, decoded); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.logg.Warn(c.logg.WithField(logCtx, "reason", err.Error()), "notification target missing")
			return false
		}
		c.logg.Error(logCtx, "notification delivery failed", err)
		_ = c.idempotency.Release(ctx, notificationConsumer, eventID)
		return true
	}

	c.logg.Info(logCtx, "notification sent")
	return false
}

func (c *Consumer) dispatch(ctx context.Context, decoded any) error {
	switch payload := decoded.(type) {
	case *payloads.OrderPlacedEvent:
		ctx = c.logg.WithOrderID(ctx, payload.OrderID)
		return c.sender.SendOrderPlacedEmail(ctx, payload.UserID, payload.OrderID)
	case *payloads.UserRegisteredEvent:
		return c.sender.SendRegistrationEmail(ctx, payload.UserID)
	case *payloads.PasswordResetRequestedEvent:
		return c.sender.SendPasswordResetEmail(ctx, payload.UserID, payload.TokenID)
	default:
		return fmt.Errorf("unsupported payload %T", decoded)
	}
}

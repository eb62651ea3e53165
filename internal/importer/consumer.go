package importer

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

const catalogImportConsumer = "catalog-import"

type jobRunner interface {
	Run(ctx context.Context, jobID uuid.UUID) (*JobDTO, error)
}

type idempotencyManager interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer runs queued imports delivered on the catalog subscription.
type Consumer struct {
	runner       jobRunner
	subscription *pubsub.Subscriber
	idempotency  idempotencyManager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the catalog import consumer.
func NewConsumer(runner jobRunner, subscription *pubsub.Subscriber, manager idempotencyManager, logg *logger.Logger) (*Consumer, error) {
	if runner == nil {
		return nil, fmt.Errorf("import runner required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("catalog subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := registry.NewDecoderRegistry()
	registry.RegisterType[payloads.CatalogImportRequestedEvent](decoders, enums.EventCatalogImportRequested, outbox.CurrentVersion)
	return &Consumer{
		runner:       runner,
		subscription: subscription,
		idempotency:  manager,
		decoders:     decoders,
		logg:         logg,
	}, nil
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

	if eventType != enums.EventCatalogImportRequested {
		c.logg.Info(logCtx, "skipping non-import event")
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
	payload := decoded.(*payloads.CatalogImportRequestedEvent)
	logCtx = c.logg.WithJobID(logCtx, payload.JobID.String())

	claimed, err := c.idempotency.Claim(ctx, catalogImportConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	job, err := c.runner.Run(logCtx, payload.JobID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.logg.Warn(logCtx, "import job missing")
			return false
		}
		c.logg.Error(logCtx, "import job bookkeeping failed", err)
		_ = c.idempotency.Release(ctx, catalogImportConsumer, eventID)
		return true
	}

	c.logg.Info(c.logg.WithField(logCtx, "status", string(job.Status)), "import job processed")
	return false
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	backoffCeiling = 10 * time.Second
	pollJitter     = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type RelayParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	PubSub     topicSource
	Events     eventStore
	DLQ        deadLetters
	Registry   resolver
	Metrics    *metrics.OutboxMetrics
	Publishers func(topic string) publisher
}

// Relay moves committed outbox rows onto their Pub/Sub topics. Each batch
// runs in one transaction with the rows locked, so several relays can run
// side by side without double-publishing.
type Relay struct {
	logg       *logger.Logger
	db         txRunner
	pubsub     topicSource
	events     eventStore
	dlq        deadLetters
	registry   resolver
	metrics    *metrics.OutboxMetrics
	publishers func(topic string) publisher

	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	for name, missing := range map[string]bool{
		"logger":            p.Logger == nil,
		"database client":   p.DB == nil,
		"pubsub client":     p.PubSub == nil,
		"outbox repository": p.Events == nil,
		"dlq repository":    p.DLQ == nil,
		"event registry":    p.Registry == nil,
	} {
		if missing {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		events:      p.Events,
		dlq:         p.DLQ,
		registry:    p.Registry,
		metrics:     p.Metrics,
		publishers:  p.Publishers,
		batchSize:   positiveOr(p.Config.BatchSize, 50),
		maxAttempts: positiveOr(p.Config.MaxAttempts, 10),
		poll:        time.Duration(positiveOr(p.Config.PollIntervalMS, 500)) * time.Millisecond,
		now:         time.Now,
	}
	if r.publishers == nil {
		r.publishers = topicPublishers(p.PubSub)
	}
	return r, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	pace := newPacer(r.poll, backoffCeiling, pollJitter)
	for {
		n, err := r.drain(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox.batch_failed", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		wait := pace.next(n, r.batchSize, err)
		if wait == 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// drain handles one batch and returns how many rows it fetched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var fetched int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		fetched = len(rows)
		for _, row := range rows {
			if err := r.handle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return fetched, err
}

// handle publishes one row and records the outcome. Only bookkeeping
// failures come back as errors; they roll the whole batch back.
func (r *Relay) handle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"attempt":        row.AttemptCount + 1,
	})

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Route.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	serverID, pubErr := r.publish(ctx, row, resolved)
	switch {
	case pubErr == nil:
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.Observe(string(row.EventType), metrics.OutboxResultPublished)
		r.logg.Info(r.logg.WithField(ctx, "message_id", serverID), "outbox.published")
		return nil
	case registry.IsNonRetryable(pubErr):
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.bury(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	default:
		if err := r.events.MarkFailedTx(tx, row.ID, pubErr); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		r.metrics.Observe(string(row.EventType), metrics.OutboxResultRetried)
		r.logg.Warn(r.logg.WithField(ctx, "error", pubErr.Error()), "outbox.publish_retry")
		return nil
	}
}

// bury copies the row into the dead-letter table and stops retries.
func (r *Relay) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	r.metrics.Observe(string(row.EventType), metrics.OutboxResultDeadLettered)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":        msg,
		"error_reason": reason,
	}), "outbox.dead_lettered")
	return nil
}

// publish sends the stored envelope bytes unchanged and waits for the ack.
func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	topic := resolved.Route.Topic
	pub := r.publishers(topic)
	if pub == nil {
		return "", registry.NonRetryable(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	started := r.now()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: attributes(row, resolved.Envelope),
	})
	if result == nil {
		return "", registry.NonRetryable(errors.New("publisher returned no result"))
	}
	id, err := result.Get(ctx)
	r.metrics.ObservePublish(topic, r.now().Sub(started))
	return id, err
}

func attributes(row models.OutboxEvent, env outbox.PayloadEnvelope) map[string]string {
	version := env.Version
	if version == 0 {
		version = outbox.CurrentVersion
	}
	return map[string]string{
		"event_id":       env.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"version":        strconv.Itoa(version),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/metrics"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
	"github.com/gosha22008/orders-backend/pkg/outbox/registry"
)

func orderRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		UUIDKey:       models.UUIDKey{ID: uuid.New()},
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "42",
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type relayFixture struct {
	store  *fakeStore
	dlq    *fakeDLQ
	pub    *fakePublisher
	relay  *Relay
	params RelayParams
}

func newFixture(t *testing.T, rows ...models.OutboxEvent) *relayFixture {
	t.Helper()
	f := &relayFixture{
		store: &fakeStore{rows: rows},
		dlq:   &fakeDLQ{},
		pub:   &fakePublisher{},
	}
	f.params = RelayParams{
		Config:     config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5},
		Logger:     logger.Nop(),
		DB:         fakeTx{},
		PubSub:     fakeTopics{},
		Events:     f.store,
		DLQ:        f.dlq,
		Registry:   fakeResolver{topic: "notification-topic"},
		Publishers: func(string) publisher { return f.pub },
	}
	return f
}

func (f *relayFixture) build(t *testing.T) *Relay {
	t.Helper()
	r, err := NewRelay(f.params)
	require.NoError(t, err)
	f.relay = r
	return r
}

func TestDrainRetriesOneAndPublishesTheOther(t *testing.T) {
	f := newFixture(t, orderRow(t, 0), orderRow(t, 0))
	f.pub.errs = []error{errors.New("transient"), nil}

	n, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{f.store.rows[0].ID}, f.store.failed)
	assert.Equal(t, []uuid.UUID{f.store.rows[1].ID}, f.store.published)
	assert.Empty(t, f.dlq.entries)
}

func TestDrainEmpty(t *testing.T) {
	f := newFixture(t)
	n, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublishSendsEnvelopeWithAttributes(t *testing.T) {
	row := orderRow(t, 0)
	f := newFixture(t, row)

	_, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	require.Len(t, f.pub.messages, 1)

	msg := f.pub.messages[0]
	assert.Equal(t, []byte(row.Payload), msg.Data)
	assert.Equal(t, string(enums.EventOrderPlaced), msg.Attributes["event_type"])
	assert.Equal(t, "42", msg.Attributes["aggregate_id"])
	assert.Equal(t, "1", msg.Attributes["version"])
	assert.NotEmpty(t, msg.Attributes["event_id"])
}

func TestResolveFailureGoesToDLQ(t *testing.T) {
	row := orderRow(t, 0)
	f := newFixture(t, row)
	f.params.Registry = fakeResolver{err: registry.NonRetryable(errors.New("invalid payload"))}

	_, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	require.Len(t, f.dlq.entries, 1)
	entry := f.dlq.entries[0]
	assert.Equal(t, row.ID, entry.EventID)
	assert.Equal(t, []byte(row.Payload), []byte(entry.Payload))
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, f.store.terminal)
	assert.Empty(t, f.pub.messages)
}

func TestMissingPublisherGoesToDLQ(t *testing.T) {
	f := newFixture(t, orderRow(t, 0))
	f.params.Publishers = func(string) publisher { return nil }

	_, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	require.Len(t, f.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, f.dlq.entries[0].ErrorReason)
}

func TestLastAttemptGoesToDLQ(t *testing.T) {
	row := orderRow(t, 1)
	f := newFixture(t, row)
	f.params.Config.MaxAttempts = 2
	f.pub.errs = []error{errors.New("transient")}

	reg := prometheus.NewRegistry()
	f.params.Metrics = metrics.NewOutboxMetrics(reg)

	_, err := f.build(t).drain(context.Background())
	require.NoError(t, err)
	require.Len(t, f.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, f.dlq.entries[0].ErrorReason)
	assert.Empty(t, f.store.failed)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["orders_outbox_events_total"])
}

func TestBookkeepingFailureAbortsBatch(t *testing.T) {
	f := newFixture(t, orderRow(t, 0))
	f.store.markErr = errors.New("db gone")

	_, err := f.build(t).drain(context.Background())
	assert.ErrorContains(t, err, "db gone")
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	r := f.build(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	f := newFixture(t)
	f.params.DLQ = nil
	_, err := NewRelay(f.params)
	assert.ErrorContains(t, err, "dlq repository")
}

type fakeStore struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (f *fakeStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct{ entries []models.OutboxDLQ }

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeTx struct{}

func (fakeTx) Ping(context.Context) error { return nil }

func (fakeTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeTopics struct{}

func (fakeTopics) Ping(context.Context) error { return nil }

func (fakeTopics) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeResolver struct {
	topic string
	err   error
}

func (f fakeResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, err
	}
	return &registry.ResolvedEvent{
		Route:    registry.Route{EventType: row.EventType, AggregateType: row.AggregateType, Topic: f.topic},
		Envelope: env,
		Payload:  &payloads.OrderPlacedEvent{},
	}, nil
}

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

type fakeResult struct{ err error }

func (f fakeResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

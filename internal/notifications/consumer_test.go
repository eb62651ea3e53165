package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/enums"
	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
	"github.com/gosha22008/orders-backend/pkg/logger"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

type stubSender struct {
	orders   []uint64
	welcomes []uuid.UUID
	resets   []uint64
	err      error
}

func (s *stubSender) SendOrderPlacedEmail(_ context.Context, _ uuid.UUID, orderID uint64) error {
	s.orders = append(s.orders, orderID)
	return s.err
}

func (s *stubSender) SendRegistrationEmail(_ context.Context, userID uuid.UUID) error {
	s.welcomes = append(s.welcomes, userID)
	return s.err
}

func (s *stubSender) SendPasswordResetEmail(_ context.Context, _ uuid.UUID, tokenID uint64) error {
	s.resets = append(s.resets, tokenID)
	return s.err
}

type stubIdempotency struct {
	seen    map[uuid.UUID]bool
	deleted int
}

func (s *stubIdempotency) Claim(_ context.Context, consumer string, id uuid.UUID) (bool, error) {
	if consumer != notificationConsumer {
		return false, errors.New("unexpected consumer " + consumer)
	}
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

func (s *stubIdempotency) Release(_ context.Context, _ string, id uuid.UUID) error {
	delete(s.seen, id)
	s.deleted++
	return nil
}

func newTestConsumer(s *stubSender, idem *stubIdempotency) *Consumer {
	return &Consumer{sender: s, idempotency: idem, decoders: newDecoders(), logg: logger.Nop()}
}

func message(t *testing.T, eventType enums.OutboxEventType, data any) (map[string]string, []byte) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return map[string]string{"event_type": string(eventType)}, body
}

func TestConsumerDispatchesByEventType(t *testing.T) {
	s := &stubSender{}
	c := newTestConsumer(s, &stubIdempotency{seen: map[uuid.UUID]bool{}})
	ctx := context.Background()
	user := uuid.New()

	attrs, body := message(t, enums.EventOrderPlaced, payloads.OrderPlacedEvent{OrderID: 7, UserID: user})
	assert.False(t, c.process(ctx, "m1", attrs, body))
	attrs, body = message(t, enums.EventUserRegistered, payloads.UserRegisteredEvent{UserID: user, Email: "a@b.c"})
	assert.False(t, c.process(ctx, "m2", attrs, body))
	attrs, body = message(t, enums.EventPasswordResetRequested, payloads.PasswordResetRequestedEvent{UserID: user, TokenID: 3})
	assert.False(t, c.process(ctx, "m3", attrs, body))

	assert.Equal(t, []uint64{7}, s.orders)
	assert.Equal(t, []uuid.UUID{user}, s.welcomes)
	assert.Equal(t, []uint64{3}, s.resets)
}

func TestConsumerDeliversOnce(t *testing.T) {
	s := &stubSender{}
	c := newTestConsumer(s, &stubIdempotency{seen: map[uuid.UUID]bool{}})
	attrs, body := message(t, enums.EventOrderPlaced, payloads.OrderPlacedEvent{OrderID: 1, UserID: uuid.New()})

	assert.False(t, c.process(context.Background(), "m", attrs, body))
	assert.False(t, c.process(context.Background(), "m", attrs, body))
	assert.Len(t, s.orders, 1)
}

func TestConsumerRedeliversOnMailFailure(t *testing.T) {
	s := &stubSender{err: errors.New("smtp down")}
	idem := &stubIdempotency{seen: map[uuid.UUID]bool{}}
	c := newTestConsumer(s, idem)
	attrs, body := message(t, enums.EventOrderPlaced, payloads.OrderPlacedEvent{OrderID: 1, UserID: uuid.New()})

	assert.True(t, c.process(context.Background(), "m", attrs, body))
	assert.Equal(t, 1, idem.deleted)

	s.err = nil
	assert.False(t, c.process(context.Background(), "m", attrs, body))
	assert.Len(t, s.orders, 2)
}

func TestConsumerAcksMissingTarget(t *testing.T) {
	s := &stubSender{err: pkgerrors.New(pkgerrors.CodeNotFound, "user not found")}
	c := newTestConsumer(s, &stubIdempotency{seen: map[uuid.UUID]bool{}})
	attrs, body := message(t, enums.EventUserRegistered, payloads.UserRegisteredEvent{UserID: uuid.New()})
	assert.False(t, c.process(context.Background(), "m", attrs, body))
}

func TestConsumerSkipsOtherEvents(t *testing.T) {
	s := &stubSender{}
	c := newTestConsumer(s, &stubIdempotency{seen: map[uuid.UUID]bool{}})
	attrs, body := message(t, enums.EventCatalogImportRequested, payloads.CatalogImportRequestedEvent{JobID: uuid.New()})
	assert.False(t, c.process(context.Background(), "m", attrs, body))
	assert.False(t, c.process(context.Background(), "m", map[string]string{"event_type": string(enums.EventOrderPlaced)}, []byte("nope")))
	assert.Empty(t, s.orders)
}

func TestNewConsumerValidates(t *testing.T) {
	_, err := NewConsumer(nil, nil, nil, nil)
	assert.Error(t, err)
}

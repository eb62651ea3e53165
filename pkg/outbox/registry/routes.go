package registry

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/db/models"
	"github.com/gosha22008/orders-backend/pkg/enums"
	"github.com/gosha22008/orders-backend/pkg/outbox"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

// Route says which aggregate emits an event type and where it is published.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, with its payload
// decoded.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry validates outbox rows before the relay publishes them.
// Imports and e-mails use separate topics so an import backlog cannot delay
// account mail.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	catalog, notify := strings.TrimSpace(cfg.CatalogTopic), strings.TrimSpace(cfg.NotificationTopic)
	if catalog == "" {
		return nil, errors.New("catalog topic is required")
	}
	if notify == "" {
		return nil, errors.New("notification topic is required")
	}

	r := &EventRegistry{
		routes:   map[enums.OutboxEventType]Route{},
		decoders: NewDecoderRegistry(),
	}
	addRoute[payloads.CatalogImportRequestedEvent](r, enums.EventCatalogImportRequested, enums.AggregateImportJob, catalog)
	addRoute[payloads.OrderPlacedEvent](r, enums.EventOrderPlaced, enums.AggregateOrder, notify)
	addRoute[payloads.UserRegisteredEvent](r, enums.EventUserRegistered, enums.AggregateUser, notify)
	addRoute[payloads.PasswordResetRequestedEvent](r, enums.EventPasswordResetRequested, enums.AggregateUser, notify)
	return r, nil
}

func addRoute[T any](r *EventRegistry, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) {
	r.routes[eventType] = Route{EventType: eventType, AggregateType: aggregate, Topic: topic}
	RegisterType[T](r.decoders, eventType, outbox.CurrentVersion)
}

// Route looks up the route for eventType.
func (r *EventRegistry) Route(eventType enums.OutboxEventType) (Route, bool) {
	route, ok := r.routes[eventType]
	return route, ok
}

// Resolve checks the row against its route and decodes the payload. Every
// failure is non-retryable: the row will never get better by waiting.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, NonRetryable(fmt.Errorf("unsupported event type %s", event.EventType))
	case route.AggregateType != event.AggregateType:
		return nil, NonRetryable(fmt.Errorf("aggregate mismatch: expected %s got %s", route.AggregateType, event.AggregateType))
	case strings.TrimSpace(event.AggregateID) == "":
		return nil, NonRetryable(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NonRetryable(err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || string(data) == "null" {
		return nil, NonRetryable(fmt.Errorf("payload missing for %s", event.EventType))
	}

	version := envelope.Version
	if version == 0 {
		version = outbox.CurrentVersion
	}
	payload, err := r.decoders.Decode(event.EventType, version, envelope.Data)
	if err != nil {
		return nil, NonRetryable(err)
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Payload: payload}, nil
}

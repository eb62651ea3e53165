package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosha22008/orders-backend/pkg/enums"
)

// CurrentVersion is stamped on every envelope Emit writes.
const CurrentVersion = 1

// ActorRef is the user on whose behalf an event was emitted.
type ActorRef struct {
	UserID      uuid.UUID         `json:"userId"`
	AccountType enums.AccountType `json:"accountType,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ID parses EventID.
func (e PayloadEnvelope) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("envelope event id %q: %w", e.EventID, err)
	}
	return id, nil
}

// DecodeEnvelope parses a message body. It does not validate Data.
func DecodeEnvelope(body []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

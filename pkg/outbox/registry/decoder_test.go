package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/enums"
	"github.com/gosha22008/orders-backend/pkg/outbox/payloads"
)

func TestDecodeIsKeyedByTypeAndVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventUserRegistered, 1, func(json.RawMessage) (any, error) { return "v1", nil })
	reg.Register(enums.EventUserRegistered, 2, func(json.RawMessage) (any, error) { return "v2", nil })

	for version, want := range map[int]string{1: "v1", 2: "v2"} {
		got, err := reg.Decode(enums.EventUserRegistered, version, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := reg.Decode(enums.EventUserRegistered, 3, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNoDecoder)
	_, err = reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNoDecoder)
}

func TestRegisterTypeDecodesIntoPointer(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterType[payloads.OrderPlacedEvent](reg, enums.EventOrderPlaced, 1)

	userID := uuid.New()
	raw, err := json.Marshal(payloads.OrderPlacedEvent{OrderID: 7, UserID: userID, TotalSum: "10.00"})
	require.NoError(t, err)

	out, err := reg.Decode(enums.EventOrderPlaced, 1, raw)
	require.NoError(t, err)
	require.IsType(t, &payloads.OrderPlacedEvent{}, out)
	evt := out.(*payloads.OrderPlacedEvent)
	assert.Equal(t, uint64(7), evt.OrderID)
	assert.Equal(t, userID, evt.UserID)

	_, err = reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`{"order_id":"nope"}`))
	assert.Error(t, err)
}

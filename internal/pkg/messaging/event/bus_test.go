package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()

	var got []Event
	bus.Subscribe(KindMessageCreated, func(e Event) { got = append(got, e) })

	msg := &messaging.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"}
	bus.Publish(Event{Kind: KindMessageCreated, Message: msg, SenderID: "alice"})

	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].Message.ID)
	assert.False(t, got[0].OccurredAt.IsZero())
}

func TestMemoryBusKindIsolation(t *testing.T) {
	bus := NewMemoryBus()

	created := 0
	read := 0
	bus.Subscribe(KindMessageCreated, func(Event) { created++ })
	bus.Subscribe(KindDeliveryRead, func(Event) { read++ })

	bus.Publish(Event{Kind: KindDeliveryRead})
	bus.Publish(Event{Kind: KindDeliveryRead})

	assert.Equal(t, 0, created)
	assert.Equal(t, 2, read)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus()

	calls := 0
	unsubscribe := bus.Subscribe(KindDeliveryTombstoned, func(Event) { calls++ })

	bus.Publish(Event{Kind: KindDeliveryTombstoned})
	unsubscribe()
	bus.Publish(Event{Kind: KindDeliveryTombstoned})

	assert.Equal(t, 1, calls)
}

func TestMemoryBusNoSubscribersIsNoop(t *testing.T) {
	bus := NewMemoryBus()
	// Dropping events with no subscribers is the intended degradation when
	// realtime push is unavailable.
	assert.NotPanics(t, func() {
		bus.Publish(Event{Kind: KindMessageCreated})
	})
}

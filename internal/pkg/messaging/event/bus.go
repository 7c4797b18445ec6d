package event

import (
	"sync"
	"time"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

// Kind identifies a persistence-level state transition the bus can carry.
type Kind string

const (
	KindMessageCreated     Kind = "message.created"
	KindDeliveryRead       Kind = "delivery.read"
	KindDeliveryTombstoned Kind = "delivery.tombstoned"
)

// Event describes one committed state transition. Publishers emit events only
// after the corresponding write has been persisted, so subscribers observe
// post-commit state.
type Event struct {
	Kind       Kind
	OccurredAt time.Time

	Message  *messaging.Message        // set for KindMessageCreated
	Delivery *messaging.DeliveryRecord // set for KindDeliveryRead and KindDeliveryTombstoned
	SenderID string                    // originating user for KindMessageCreated and KindDeliveryRead
}

// Handler consumes one event. Handlers must not block for long; the realtime
// relay hands payloads to buffered per-connection writers.
type Handler func(Event)

// Bus is the narrow change-notification contract between the write path and the
// realtime relay. Subscribe returns an unsubscribe func so the relay's
// dependency stays a single swappable interface.
type Bus interface {
	Publish(Event)
	Subscribe(kind Kind, h Handler) (unsubscribe func())
}

// MemoryBus is an in-process Bus. Delivery is synchronous and in subscription
// order for a given kind; events with no subscribers are dropped, which is the
// intended degradation when realtime push is unavailable.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]Handler
}

// NewMemoryBus constructs an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[Kind]map[int]Handler)}
}

var _ Bus = (*MemoryBus)(nil)

func (b *MemoryBus) Publish(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind]))
	for _, h := range b.subs[e.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

func (b *MemoryBus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.subs[kind][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[kind], id)
		b.mu.Unlock()
	}
}

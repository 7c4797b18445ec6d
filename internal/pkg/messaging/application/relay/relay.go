package relay

import (
	"github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/realtime"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
)

// Relay bridges persistence-level change events into registry broadcasts. It
// is the only component that knows both the bus and the registry; fan-out and
// push stay independent of each other.
//
// Push is best-effort throughout: a recipient with no live connection simply
// discovers the change on their next authoritative delivery query.
type Relay struct {
	bus      event.Bus
	registry *realtime.Registry
	cancels  []func()
}

// New constructs a relay. Call Start to begin observing.
func New(bus event.Bus, registry *realtime.Registry) *Relay {
	return &Relay{bus: bus, registry: registry}
}

// Start subscribes to the three event classes. Each is independently
// triggerable; none blocks on the others.
func (r *Relay) Start() {
	r.cancels = []func(){
		r.bus.Subscribe(event.KindMessageCreated, r.onMessageCreated),
		r.bus.Subscribe(event.KindDeliveryRead, r.onDeliveryRead),
		r.bus.Subscribe(event.KindDeliveryTombstoned, r.onDeliveryTombstoned),
	}
}

// Stop releases the subscriptions.
func (r *Relay) Stop() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

// onMessageCreated announces a committed message to the conversation room,
// excluding the sender to avoid echo.
func (r *Relay) onMessageCreated(e event.Event) {
	if e.Message == nil {
		return
	}
	ev := realtime.NewEvent(realtime.EventNewMessage, map[string]interface{}{
		"message_id":      e.Message.ID,
		"conversation_id": e.Message.ConversationID,
		"sender_id":       e.Message.SenderID,
		"content_type":    e.Message.ContentType,
		"created_at":      e.Message.CreatedAt,
		"reply_to_id":     e.Message.ReplyToID,
	})
	r.registry.BroadcastToRoom(e.Message.ConversationID, ev, e.SenderID)
}

// onDeliveryRead pushes a read receipt to the message's sender.
func (r *Relay) onDeliveryRead(e event.Event) {
	if e.Delivery == nil || e.SenderID == "" {
		return
	}
	ev := realtime.NewEvent(realtime.EventReadReceipt, map[string]interface{}{
		"message_id": e.Delivery.MessageID,
		"reader_id":  e.Delivery.RecipientID,
		"read_at":    e.Delivery.ReadAt,
	})
	r.registry.SendToUser(e.SenderID, ev)
}

// onDeliveryTombstoned notifies only the affected recipient: expiry is per
// recipient, another participant's copy may still be live.
func (r *Relay) onDeliveryTombstoned(e event.Event) {
	if e.Delivery == nil {
		return
	}
	ev := realtime.NewEvent(realtime.EventMessageExpired, map[string]interface{}{
		"message_id": e.Delivery.MessageID,
		"reason":     e.Delivery.DeletionReason,
		"deleted_at": e.Delivery.DeletedAt,
	})
	r.registry.SendToUser(e.Delivery.RecipientID, ev)
}

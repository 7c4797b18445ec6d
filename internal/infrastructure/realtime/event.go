package realtime

import (
	"encoding/json"
	"time"
)

// EventType enumerates the typed frames pushed to clients.
type EventType string

const (
	EventNewMessage     EventType = "new-message"
	EventReadReceipt    EventType = "read-receipt"
	EventMessageExpired EventType = "message-expired"
	EventKeepAlive      EventType = "keep-alive"
)

// Event is the wire frame for the push stream.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, data interface{}) Event {
	return Event{Type: t, Timestamp: time.Now().UTC(), Data: data}
}

// Marshal encodes the frame for the socket. Data values are plain structs and
// maps assembled by the relay, so encoding failures are programming errors.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

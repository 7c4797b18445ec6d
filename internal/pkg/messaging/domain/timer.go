package messaging

import "time"

// ExpiryTrigger selects which lifecycle event starts a disappearing timer.
type ExpiryTrigger string

const (
	TriggerOnDelivered ExpiryTrigger = "delivered"
	TriggerOnRead      ExpiryTrigger = "read"
)

// Valid reports whether t is a known trigger.
func (t ExpiryTrigger) Valid() bool {
	return t == TriggerOnDelivered || t == TriggerOnRead
}

// TimerConfig is one participant's disappearing-message setting for one
// conversation. DisappearSeconds of zero disables the timer. Changes apply to
// messages sent after the change only.
type TimerConfig struct {
	ConversationID   string        `db:"conversation_id"`
	UserID           string        `db:"user_id"`
	DisappearSeconds int           `db:"disappear_seconds"`
	StartOn          ExpiryTrigger `db:"start_on"`
}

// Enabled reports whether the timer applies at all.
func (c TimerConfig) Enabled() bool {
	return c.DisappearSeconds > 0
}

// ComputeExpiry derives the expiry instant for a delivery record from its
// participant's timer config and the record's trigger timestamps.
//
// Returns nil when the timer is disabled, and for read-triggered timers while
// the message is unread: a read-triggered message that is never read never
// expires.
func ComputeExpiry(cfg TimerConfig, deliveredAt time.Time, readAt *time.Time) *time.Time {
	if !cfg.Enabled() {
		return nil
	}
	d := time.Duration(cfg.DisappearSeconds) * time.Second
	switch cfg.StartOn {
	case TriggerOnDelivered:
		t := deliveredAt.Add(d)
		return &t
	case TriggerOnRead:
		if readAt == nil {
			return nil
		}
		t := readAt.Add(d)
		return &t
	}
	return nil
}

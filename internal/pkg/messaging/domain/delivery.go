package messaging

import "time"

// DeletionReason records why a delivery record was tombstoned.
const (
	DeletionReasonExpired = "expired"
	DeletionReasonDeleted = "deleted"
)

// DeliveryRecord tracks one recipient's copy of one message. Keyed
// (MessageID, RecipientID).
//
// Lifecycle: created at fan-out with DeliveredAt set; ReadAt set at most once by
// mark-read; ExpiresAt immutable once computed; DeletedAt is the tombstone and is
// authoritative regardless of physical retention.
type DeliveryRecord struct {
	MessageID   string     `db:"message_id"`
	RecipientID string     `db:"recipient_id"`
	DeliveredAt time.Time  `db:"delivered_at"`
	ReadAt      *time.Time `db:"read_at"`
	ExpiresAt   *time.Time `db:"expires_at"`

	// ReadExpirySeconds is the read-trigger timer snapshot captured at
	// fan-out. Mark-read derives ExpiresAt from it, so a config change after
	// the send never governs this record. Zero means no read-triggered
	// expiry applies.
	ReadExpirySeconds int `db:"read_expiry_seconds"`

	DeletedAt      *time.Time `db:"deleted_at"`
	DeletionReason string     `db:"deletion_reason"`
}

// Active reports whether the record is still visible to its recipient.
func (d DeliveryRecord) Active() bool {
	return d.DeletedAt == nil
}

// Read reports whether the recipient has marked the record read.
func (d DeliveryRecord) Read() bool {
	return d.ReadAt != nil
}

package repository

import (
	"context"
	"time"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

// MarkReadOutcome tags the result of a conditional mark-read so idempotence is
// explicit instead of relying on the storage layer's silence.
type MarkReadOutcome int

const (
	MarkReadUpdated MarkReadOutcome = iota
	MarkReadAlreadyRead
)

// DeliveryRepository defines persistence operations for the delivery engine.
// The Postgres adapter is the source of truth; a memory adapter backs tests.
type DeliveryRepository interface {
	// CreateMessageWithDeliveries inserts the message plus one delivery
	// record and one encrypted payload per recipient, atomically. On any
	// failure nothing is persisted and the error wraps messaging.ErrFanout.
	CreateMessageWithDeliveries(ctx context.Context, m messaging.Message, deliveries []messaging.DeliveryRecord, payloads []messaging.EncryptedPayload) (messageID string, err error)

	// MarkRead sets read_at if it is still null, deriving expires_at from the
	// record's read-trigger snapshot when one was captured at fan-out.
	// Concurrent calls for the same pair elect one winner; losers see
	// MarkReadAlreadyRead with the stored record. Missing or tombstoned
	// records yield messaging.ErrNotFound.
	MarkRead(ctx context.Context, messageID, userID string, readAt time.Time) (MarkReadOutcome, *messaging.DeliveryRecord, error)

	// GetDelivery fetches one record, tombstoned or not.
	GetDelivery(ctx context.Context, messageID, userID string) (*messaging.DeliveryRecord, error)

	// GetMessage fetches message metadata (never payload content).
	GetMessage(ctx context.Context, messageID string) (*messaging.Message, error)

	// ActiveDeliveries lists the user's non-tombstoned records.
	ActiveDeliveries(ctx context.Context, userID string) ([]messaging.DeliveryRecord, error)

	// SweepExpired tombstones every record with expires_at <= now and no
	// tombstone yet, reason "expired", and returns the newly tombstoned rows.
	SweepExpired(ctx context.Context, now time.Time) ([]messaging.DeliveryRecord, error)

	// Timer configuration, keyed (conversation, participant).
	GetTimerConfig(ctx context.Context, conversationID, userID string) (*messaging.TimerConfig, error)
	PutTimerConfig(ctx context.Context, cfg messaging.TimerConfig) error

	// Participant membership (authorization collaborator supplies identity;
	// membership still gates sends and room joins).
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	Participants(ctx context.Context, conversationID string) ([]string, error)
}

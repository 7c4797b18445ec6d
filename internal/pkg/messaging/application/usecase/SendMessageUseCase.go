package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageInput carries a new message plus the sealed payload map produced
// by the crypto collaborator: recipient id -> sealed blob for that recipient's
// key. The engine stores the blobs verbatim.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	ContentType    messaging.ContentType
	ReplyToID      *string
	SealedPayloads map[string][]byte
}

// SendMessageUseCase is the fan-out coordinator: one delivery record and one
// encrypted payload per active participant (excluding the sender), created
// atomically with the message. Realtime notification happens through the event
// bus after commit, keeping the write path independent of push availability.
type SendMessageUseCase struct {
	Repo   repository.DeliveryRepository
	Timers *TimerConfigSource
	Bus    event.Bus
	Queue  qport.Client // optional; schedules point sweeps at known expiries
}

func NewSendMessageUseCase(repo repository.DeliveryRepository, timers *TimerConfigSource, bus event.Bus, queue qport.Client) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Timers: timers, Bus: bus, Queue: queue}
}

// Execute validates, fans out, commits, then publishes. A partial fan-out
// failure rolls the whole message back and surfaces messaging.ErrFanout; an
// orphaned message with no deliveries must never exist.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*messaging.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("%w: conversation_id and sender_id are required", messaging.ErrValidation)
	}
	if len(in.SealedPayloads) == 0 {
		return nil, fmt.Errorf("%w: sealed payload map is empty", messaging.ErrValidation)
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, messaging.ErrUnauthorized
	}

	participants, err := uc.Repo.Participants(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// The snapshot of recipients is the active participant set minus the
	// sender, and the payload map must cover it exactly: a recipient the
	// crypto collaborator could not seal for would silently lose the message.
	recipients := make([]string, 0, len(participants))
	for _, id := range participants {
		if id == in.SenderID {
			continue
		}
		recipients = append(recipients, id)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: conversation has no recipients", messaging.ErrValidation)
	}
	known := make(map[string]struct{}, len(recipients))
	for _, id := range recipients {
		known[id] = struct{}{}
		if len(in.SealedPayloads[id]) == 0 {
			return nil, fmt.Errorf("%w: missing sealed payload for recipient %s", messaging.ErrValidation, id)
		}
	}
	for id := range in.SealedPayloads {
		if id == in.SenderID {
			return nil, fmt.Errorf("%w: sender must not receive a delivery", messaging.ErrValidation)
		}
		if _, ok := known[id]; !ok {
			// Dropping the blob silently would hide a stale participant
			// snapshot from the crypto collaborator.
			return nil, fmt.Errorf("%w: sealed payload for non-participant %s", messaging.ErrValidation, id)
		}
	}

	msg, err := messaging.NewMessage(messaging.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		ContentType:    in.ContentType,
		ReplyToID:      in.ReplyToID,
	})
	if err != nil {
		return nil, err
	}

	now := msg.CreatedAt
	deliveries := make([]messaging.DeliveryRecord, 0, len(recipients))
	payloads := make([]messaging.EncryptedPayload, 0, len(recipients))
	expiries := make([]time.Time, 0, len(recipients))

	for _, recipientID := range recipients {
		cfg, err := uc.Timers.Get(ctx, in.ConversationID, recipientID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		// Delivered-trigger timers start counting at fan-out. Read-trigger
		// timers stay open until the recipient reads; their duration is
		// snapshotted onto the record so later config edits never apply to
		// this message.
		var expiresAt *time.Time
		readExpirySeconds := 0
		if cfg != nil && cfg.Enabled() {
			switch cfg.StartOn {
			case messaging.TriggerOnDelivered:
				expiresAt = messaging.ComputeExpiry(*cfg, now, nil)
			case messaging.TriggerOnRead:
				readExpirySeconds = cfg.DisappearSeconds
			}
		}
		if expiresAt != nil {
			expiries = append(expiries, *expiresAt)
		}

		deliveries = append(deliveries, messaging.DeliveryRecord{
			RecipientID:       recipientID,
			DeliveredAt:       now,
			ExpiresAt:         expiresAt,
			ReadExpirySeconds: readExpirySeconds,
		})
		payloads = append(payloads, messaging.EncryptedPayload{
			RecipientID: recipientID,
			Sealed:      in.SealedPayloads[recipientID],
		})
	}

	id, err := uc.Repo.CreateMessageWithDeliveries(ctx, *msg, deliveries, payloads)
	if err != nil {
		if errors.Is(err, messaging.ErrFanout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	if uc.Bus != nil {
		uc.Bus.Publish(event.Event{
			Kind:       event.KindMessageCreated,
			OccurredAt: now,
			Message:    msg,
			SenderID:   msg.SenderID,
		})
	}
	for _, at := range expiries {
		scheduleSweepAt(ctx, uc.Queue, at)
	}

	return msg, nil
}

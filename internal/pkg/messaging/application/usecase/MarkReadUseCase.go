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

// MarkReadInput identifies one delivery record by its natural key.
type MarkReadInput struct {
	MessageID string
	UserID    string
}

// MarkReadOutput reports the updated record and whether this call was the one
// that transitioned it. AlreadyRead is a success, not an error.
type MarkReadOutput struct {
	Record      *messaging.DeliveryRecord
	AlreadyRead bool
}

// MarkReadUseCase sets read_at at most once per (message, recipient) pair and,
// for read-triggered timers, starts the disappearing countdown. The countdown
// duration comes from the snapshot taken at fan-out, so a timer config changed
// after the send never governs an already-sent message.
type MarkReadUseCase struct {
	Repo  repository.DeliveryRepository
	Bus   event.Bus
	Queue qport.Client
}

func NewMarkReadUseCase(repo repository.DeliveryRepository, bus event.Bus, queue qport.Client) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, Bus: bus, Queue: queue}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (*MarkReadOutput, error) {
	if in.MessageID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: message_id and user_id are required", messaging.ErrValidation)
	}

	// Message metadata routes the read receipt back to the sender.
	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, messaging.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	readAt := time.Now().UTC()
	outcome, rec, err := uc.Repo.MarkRead(ctx, in.MessageID, in.UserID, readAt)
	if err != nil {
		if errors.Is(err, messaging.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if outcome == repository.MarkReadAlreadyRead {
		return &MarkReadOutput{Record: rec, AlreadyRead: true}, nil
	}

	if uc.Bus != nil {
		uc.Bus.Publish(event.Event{
			Kind:       event.KindDeliveryRead,
			OccurredAt: readAt,
			Message:    msg,
			Delivery:   rec,
			SenderID:   msg.SenderID,
		})
	}
	if rec.ExpiresAt != nil {
		scheduleSweepAt(ctx, uc.Queue, *rec.ExpiresAt)
	}

	return &MarkReadOutput{Record: rec}, nil
}

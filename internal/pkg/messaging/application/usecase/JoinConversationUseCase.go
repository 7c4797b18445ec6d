package usecase

import (
	"context"
	"fmt"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

// JoinConversationInput validates a request to watch a conversation's
// realtime events.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before
// the registry adds them to the room.
type JoinConversationUseCase struct {
	Repo repository.DeliveryRepository
}

func NewJoinConversationUseCase(repo repository.DeliveryRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("%w: conversation_id and user_id are required", messaging.ErrValidation)
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return messaging.ErrUnauthorized
	}
	return nil
}

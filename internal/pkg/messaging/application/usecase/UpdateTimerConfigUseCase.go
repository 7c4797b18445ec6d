package usecase

import (
	"context"
	"fmt"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

// UpdateTimerConfigInput carries a participant's new disappearing-timer
// setting. CallerID must equal UserID: participants configure only their own
// timers.
type UpdateTimerConfigInput struct {
	CallerID         string
	ConversationID   string
	UserID           string
	DisappearSeconds int
	StartOn          messaging.ExpiryTrigger
}

// UpdateTimerConfigUseCase persists a timer config. Applies prospectively:
// expiries already computed on existing records are never touched.
type UpdateTimerConfigUseCase struct {
	Repo   repository.DeliveryRepository
	Timers *TimerConfigSource
}

func NewUpdateTimerConfigUseCase(repo repository.DeliveryRepository, timers *TimerConfigSource) *UpdateTimerConfigUseCase {
	return &UpdateTimerConfigUseCase{Repo: repo, Timers: timers}
}

func (uc *UpdateTimerConfigUseCase) Execute(ctx context.Context, in UpdateTimerConfigInput) (*messaging.TimerConfig, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: conversation_id and user_id are required", messaging.ErrValidation)
	}
	if in.DisappearSeconds < 0 {
		return nil, fmt.Errorf("%w: disappear_seconds must not be negative", messaging.ErrValidation)
	}
	if !in.StartOn.Valid() {
		return nil, fmt.Errorf("%w: start_on must be %q or %q", messaging.ErrValidation, messaging.TriggerOnDelivered, messaging.TriggerOnRead)
	}
	if in.CallerID != in.UserID {
		return nil, messaging.ErrUnauthorized
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, messaging.ErrUnauthorized
	}

	cfg := messaging.TimerConfig{
		ConversationID:   in.ConversationID,
		UserID:           in.UserID,
		DisappearSeconds: in.DisappearSeconds,
		StartOn:          in.StartOn,
	}
	if err := uc.Repo.PutTimerConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	uc.Timers.Invalidate(ctx, in.ConversationID, in.UserID)
	return &cfg, nil
}

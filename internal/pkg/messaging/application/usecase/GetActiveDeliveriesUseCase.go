package usecase

import (
	"context"
	"fmt"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

// GetActiveDeliveriesInput identifies the caller whose deliveries to list.
type GetActiveDeliveriesInput struct {
	UserID string
}

// GetActiveDeliveriesUseCase returns the caller's non-tombstoned delivery
// records. This is the authoritative fallback when realtime push was missed.
type GetActiveDeliveriesUseCase struct {
	Repo repository.DeliveryRepository
}

func NewGetActiveDeliveriesUseCase(repo repository.DeliveryRepository) *GetActiveDeliveriesUseCase {
	return &GetActiveDeliveriesUseCase{Repo: repo}
}

func (uc *GetActiveDeliveriesUseCase) Execute(ctx context.Context, in GetActiveDeliveriesInput) ([]messaging.DeliveryRecord, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", messaging.ErrValidation)
	}
	recs, err := uc.Repo.ActiveDeliveries(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return recs, nil
}

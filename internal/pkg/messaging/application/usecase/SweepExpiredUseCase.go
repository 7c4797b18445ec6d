package usecase

import (
	"context"
	"fmt"
	"time"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

// SweepExpiredUseCase tombstones every delivery record whose expiry has
// passed, reason "expired", and announces each tombstone on the bus. Expiry is
// per recipient: one recipient's copy going away never affects another's.
//
// Idempotent by construction; the repository only matches rows not yet
// tombstoned, so overlapping sweeps are harmless.
type SweepExpiredUseCase struct {
	Repo repository.DeliveryRepository
	Bus  event.Bus
}

func NewSweepExpiredUseCase(repo repository.DeliveryRepository, bus event.Bus) *SweepExpiredUseCase {
	return &SweepExpiredUseCase{Repo: repo, Bus: bus}
}

func (uc *SweepExpiredUseCase) Execute(ctx context.Context, now time.Time) ([]messaging.DeliveryRecord, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	swept, err := uc.Repo.SweepExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Bus != nil {
		for i := range swept {
			uc.Bus.Publish(event.Event{
				Kind:       event.KindDeliveryTombstoned,
				OccurredAt: now,
				Delivery:   &swept[i],
			})
		}
	}
	return swept, nil
}

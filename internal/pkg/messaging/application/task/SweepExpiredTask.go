package task

import (
	"context"
	"time"

	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
)

// RegisterSweepExpiredTask binds the expiry sweep to the worker server. The
// same handler serves both the periodic tick and the point sweeps scheduled at
// known expiry instants.
func RegisterSweepExpiredTask(srv qport.Server, uc *usecase.SweepExpiredUseCase) {
	srv.Register(usecase.SweepExpiredTaskType, func(ctx context.Context, _ qport.Task) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, time.Now().UTC())
		return err
	})
}

package usecase

import (
	"context"
	"log"
	"time"

	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
)

// SweepExpiredTaskType is the queue task name for the expiry sweep. The task
// carries no payload: the sweep itself decides what is due, so double-firing
// is harmless.
const SweepExpiredTaskType = "delivery:sweep_expired"

// scheduleSweepAt enqueues a sweep shortly after a known expiry instant, so a
// lone record does not wait for the next periodic sweep. Best-effort: the
// periodic sweep is the safety net, a failed enqueue only delays the tombstone.
func scheduleSweepAt(ctx context.Context, q qport.Client, at time.Time) {
	if q == nil {
		return
	}
	_, err := q.Enqueue(ctx, qport.Task{Type: SweepExpiredTaskType}, qport.EnqueueOption{
		Queue:     "delivery",
		ProcessAt: at.Add(time.Second),
		MaxRetry:  5,
	})
	if err != nil {
		log.Printf("sweep: enqueue at %s: %v", at, err)
	}
}

package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"

	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repoAdapter "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/adapter"
)

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
	opts  []qport.EnqueueOption
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	if len(opts) > 0 {
		q.opts = append(q.opts, opts[0])
	} else {
		q.opts = append(q.opts, qport.EnqueueOption{})
	}
	return uuid.NewString(), nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) enqueued() []qport.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]qport.Task(nil), q.tasks...)
}

// recordedEvents subscribes to every kind and collects what the bus carries.
func recordedEvents(bus event.Bus) *[]event.Event {
	var events []event.Event
	for _, kind := range []event.Kind{event.KindMessageCreated, event.KindDeliveryRead, event.KindDeliveryTombstoned} {
		bus.Subscribe(kind, func(e event.Event) { events = append(events, e) })
	}
	return &events
}

// newFixture wires a memory repository, bus, and queue behind the use cases.
func newFixture() (*repoAdapter.MemDeliveryRepository, *event.MemoryBus, *fakeQueue, *TimerConfigSource) {
	repo := repoAdapter.NewMemDeliveryRepository()
	bus := event.NewMemoryBus()
	queue := &fakeQueue{}
	timers := NewTimerConfigSource(repo, nil)
	return repo, bus, queue, timers
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repoAdapter "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/adapter"
)

func sendTestMessage(t *testing.T, repo *repoAdapter.MemDeliveryRepository, timers *TimerConfigSource, sender string, recipients ...string) *messaging.Message {
	t.Helper()
	payloads := make(map[string][]byte, len(recipients))
	for _, r := range recipients {
		payloads[r] = []byte("sealed-for-" + r)
	}
	uc := NewSendMessageUseCase(repo, timers, nil, nil)
	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       sender,
		SealedPayloads: payloads,
	})
	require.NoError(t, err)
	return msg
}

func TestMarkReadStartsReadTriggeredTimer(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 60,
		StartOn:          messaging.TriggerOnRead,
	}))
	msg := sendTestMessage(t, repo, timers, "alice", "bob")
	events := recordedEvents(bus)

	uc := NewMarkReadUseCase(repo, bus, queue)
	out, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)
	assert.False(t, out.AlreadyRead)

	rec := out.Record
	require.NotNil(t, rec.ReadAt)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, rec.ReadAt.Add(60*time.Second), *rec.ExpiresAt)

	require.Len(t, *events, 1)
	assert.Equal(t, event.KindDeliveryRead, (*events)[0].Kind)
	assert.Equal(t, "alice", (*events)[0].SenderID, "receipt is routed back to the sender")

	tasks := queue.enqueued()
	require.Len(t, tasks, 1)
	assert.Equal(t, SweepExpiredTaskType, tasks[0].Type)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 60,
		StartOn:          messaging.TriggerOnRead,
	}))
	msg := sendTestMessage(t, repo, timers, "alice", "bob")
	events := recordedEvents(bus)

	uc := NewMarkReadUseCase(repo, bus, queue)
	first, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)
	assert.True(t, second.AlreadyRead)
	assert.Equal(t, first.Record.ReadAt, second.Record.ReadAt, "read_at keeps the original timestamp")
	assert.Equal(t, first.Record.ExpiresAt, second.Record.ExpiresAt)

	assert.Len(t, *events, 1, "no second read receipt")
	assert.Len(t, queue.enqueued(), 1, "no second sweep scheduled")
}

func TestMarkReadKeepsDeliveredTriggeredExpiry(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 30,
		StartOn:          messaging.TriggerOnDelivered,
	}))
	msg := sendTestMessage(t, repo, timers, "alice", "bob")

	before, err := repo.GetDelivery(context.Background(), msg.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, before.ExpiresAt)

	uc := NewMarkReadUseCase(repo, bus, queue)
	out, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)

	require.NotNil(t, out.Record.ExpiresAt)
	assert.Equal(t, *before.ExpiresAt, *out.Record.ExpiresAt, "expiry set at fan-out is immutable")
}

func TestMarkReadWithoutTimerLeavesNoExpiry(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	msg := sendTestMessage(t, repo, timers, "alice", "bob")

	uc := NewMarkReadUseCase(repo, bus, queue)
	out, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)

	require.NotNil(t, out.Record.ReadAt)
	assert.Nil(t, out.Record.ExpiresAt)
	assert.Empty(t, queue.enqueued())
}

func TestMarkReadReadTriggerIsProspective(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")

	// Sent while bob has no timer configured.
	msg := sendTestMessage(t, repo, timers, "alice", "bob")

	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 30,
		StartOn:          messaging.TriggerOnRead,
	}))

	uc := NewMarkReadUseCase(repo, bus, queue)
	out, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)

	require.NotNil(t, out.Record.ReadAt)
	assert.Nil(t, out.Record.ExpiresAt, "a read-trigger config enabled after the send must not govern the old message")
	assert.Empty(t, queue.enqueued())

	sweep := NewSweepExpiredUseCase(repo, nil)
	swept, err := sweep.Execute(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, swept)
}

func TestMarkReadUsesSnapshotNotCurrentConfig(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 60,
		StartOn:          messaging.TriggerOnRead,
	}))
	msg := sendTestMessage(t, repo, timers, "alice", "bob")

	// Shortening the timer after the send does not shorten this message's life.
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 5,
		StartOn:          messaging.TriggerOnRead,
	}))

	uc := NewMarkReadUseCase(repo, bus, queue)
	out, err := uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "bob"})
	require.NoError(t, err)

	require.NotNil(t, out.Record.ExpiresAt)
	assert.Equal(t, out.Record.ReadAt.Add(60*time.Second), *out.Record.ExpiresAt)
}

func TestMarkReadUnknownDelivery(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob", "carol")
	msg := sendTestMessage(t, repo, timers, "alice", "bob", "carol")

	uc := NewMarkReadUseCase(repo, bus, queue)

	_, err := uc.Execute(context.Background(), MarkReadInput{MessageID: "missing", UserID: "bob"})
	assert.ErrorIs(t, err, messaging.ErrNotFound)

	// Alice sent the message; she has no delivery record of her own.
	_, err = uc.Execute(context.Background(), MarkReadInput{MessageID: msg.ID, UserID: "alice"})
	assert.ErrorIs(t, err, messaging.ErrNotFound)

	_, err = uc.Execute(context.Background(), MarkReadInput{MessageID: "", UserID: "bob"})
	assert.ErrorIs(t, err, messaging.ErrValidation)
}

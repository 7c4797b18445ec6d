package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
)

func seedConversation(repo interface{ AddParticipant(string, string) }, conversationID string, userIDs ...string) {
	for _, id := range userIDs {
		repo.AddParticipant(conversationID, id)
	}
}

func TestSendMessageFansOutToEveryRecipient(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob", "carol")
	events := recordedEvents(bus)

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{
			"bob":   []byte("sealed-for-bob"),
			"carol": []byte("sealed-for-carol"),
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	// Exactly one delivery and one payload per recipient, none for the sender.
	for _, recipient := range []string{"bob", "carol"} {
		rec, err := repo.GetDelivery(context.Background(), msg.ID, recipient)
		require.NoError(t, err)
		assert.False(t, rec.DeliveredAt.IsZero())
		assert.Nil(t, rec.ReadAt)
		assert.Nil(t, rec.ExpiresAt)
	}
	_, err = repo.GetDelivery(context.Background(), msg.ID, "alice")
	assert.ErrorIs(t, err, messaging.ErrNotFound)
	assert.Equal(t, 2, repo.PayloadCount(msg.ID))

	require.Len(t, *events, 1)
	assert.Equal(t, event.KindMessageCreated, (*events)[0].Kind)
	assert.Equal(t, "alice", (*events)[0].SenderID)
}

func TestSendMessageAppliesDeliveredTrigger(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 30,
		StartOn:          messaging.TriggerOnDelivered,
	}))

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{"bob": []byte("sealed")},
	})
	require.NoError(t, err)

	rec, err := repo.GetDelivery(context.Background(), msg.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, rec.DeliveredAt.Add(30*time.Second), *rec.ExpiresAt)

	// A point sweep was scheduled for the known expiry.
	tasks := queue.enqueued()
	require.Len(t, tasks, 1)
	assert.Equal(t, SweepExpiredTaskType, tasks[0].Type)
	assert.Equal(t, rec.ExpiresAt.Add(time.Second), queue.opts[0].ProcessAt)
}

func TestSendMessageReadTriggerLeavesExpiryOpen(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")
	require.NoError(t, repo.PutTimerConfig(context.Background(), messaging.TimerConfig{
		ConversationID:   "conv-1",
		UserID:           "bob",
		DisappearSeconds: 30,
		StartOn:          messaging.TriggerOnRead,
	}))

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{"bob": []byte("sealed")},
	})
	require.NoError(t, err)

	rec, err := repo.GetDelivery(context.Background(), msg.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, rec.ExpiresAt, "read-triggered timer must not start at fan-out")
	assert.Empty(t, queue.enqueued())
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "mallory",
		SealedPayloads: map[string][]byte{"bob": []byte("sealed")},
	})
	assert.ErrorIs(t, err, messaging.ErrUnauthorized)
}

func TestSendMessageRejectsIncompletePayloadMap(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob", "carol")
	uc := NewSendMessageUseCase(repo, timers, bus, queue)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{"bob": []byte("sealed")},
	})
	assert.ErrorIs(t, err, messaging.ErrValidation, "carol has no sealed payload")

	_, err = uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{},
	})
	assert.ErrorIs(t, err, messaging.ErrValidation)

	_, err = uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{
			"alice": []byte("sealed"),
			"bob":   []byte("sealed"),
			"carol": []byte("sealed"),
		},
	})
	assert.ErrorIs(t, err, messaging.ErrValidation, "sender must not receive a delivery")
}

func TestSendMessageRejectsPayloadForNonParticipant(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob")

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{
			"bob":     []byte("sealed"),
			"mallory": []byte("sealed"),
		},
	})
	assert.ErrorIs(t, err, messaging.ErrValidation, "a blob for a non-participant must be rejected, not dropped")
}

func TestSendMessageFanoutFailureIsFatalAndSilent(t *testing.T) {
	repo, bus, queue, timers := newFixture()
	seedConversation(repo, "conv-1", "alice", "bob", "carol")
	events := recordedEvents(bus)
	repo.FailFanoutAfter = 1

	uc := NewSendMessageUseCase(repo, timers, bus, queue)
	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "alice",
		SealedPayloads: map[string][]byte{
			"bob":   []byte("sealed"),
			"carol": []byte("sealed"),
		},
	})
	require.ErrorIs(t, err, messaging.ErrFanout)

	assert.Empty(t, *events, "no realtime event for a rolled-back message")
	assert.Empty(t, queue.enqueued())
}

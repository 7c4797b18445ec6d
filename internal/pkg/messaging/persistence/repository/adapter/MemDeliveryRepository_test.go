package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

func seedDelivery(t *testing.T, repo *MemDeliveryRepository, recipient string, expiresAt *time.Time, readExpirySeconds int) string {
	t.Helper()
	id, err := repo.CreateMessageWithDeliveries(context.Background(),
		messaging.Message{ConversationID: "conv-1", SenderID: "alice", CreatedAt: time.Now().UTC()},
		[]messaging.DeliveryRecord{{
			RecipientID:       recipient,
			DeliveredAt:       time.Now().UTC(),
			ExpiresAt:         expiresAt,
			ReadExpirySeconds: readExpirySeconds,
		}},
		[]messaging.EncryptedPayload{{RecipientID: recipient, Sealed: []byte("sealed")}},
	)
	require.NoError(t, err)
	return id
}

func TestMarkReadConditionalWrite(t *testing.T) {
	repo := NewMemDeliveryRepository()
	id := seedDelivery(t, repo, "bob", nil, 60)

	readAt := time.Now().UTC()
	outcome, rec, err := repo.MarkRead(context.Background(), id, "bob", readAt)
	require.NoError(t, err)
	assert.Equal(t, repository.MarkReadUpdated, outcome)
	assert.Equal(t, readAt, *rec.ReadAt)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, readAt.Add(60*time.Second), *rec.ExpiresAt)

	// A later attempt must not move read_at or expires_at.
	laterRead := readAt.Add(time.Hour)
	outcome, rec, err = repo.MarkRead(context.Background(), id, "bob", laterRead)
	require.NoError(t, err)
	assert.Equal(t, repository.MarkReadAlreadyRead, outcome)
	assert.Equal(t, readAt, *rec.ReadAt)
	assert.Equal(t, readAt.Add(60*time.Second), *rec.ExpiresAt)
}

func TestMarkReadKeepsExistingExpiry(t *testing.T) {
	repo := NewMemDeliveryRepository()
	fanoutExpiry := time.Now().UTC().Add(30 * time.Second)
	id := seedDelivery(t, repo, "bob", &fanoutExpiry, 3600)

	readAt := time.Now().UTC()
	_, rec, err := repo.MarkRead(context.Background(), id, "bob", readAt)
	require.NoError(t, err)
	assert.Equal(t, fanoutExpiry, *rec.ExpiresAt, "an expiry set at fan-out wins over the read snapshot")
}

func TestMarkReadWithoutSnapshotLeavesExpiryOpen(t *testing.T) {
	repo := NewMemDeliveryRepository()
	id := seedDelivery(t, repo, "bob", nil, 0)

	_, rec, err := repo.MarkRead(context.Background(), id, "bob", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, rec.ReadAt)
	assert.Nil(t, rec.ExpiresAt)
}

func TestMarkReadTombstonedIsNotFound(t *testing.T) {
	repo := NewMemDeliveryRepository()
	past := time.Now().UTC().Add(-time.Minute)
	id := seedDelivery(t, repo, "bob", &past, 0)

	swept, err := repo.SweepExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, swept, 1)

	_, _, err = repo.MarkRead(context.Background(), id, "bob", time.Now().UTC())
	assert.ErrorIs(t, err, messaging.ErrNotFound)
}

func TestFanoutFailureLeavesNothingBehind(t *testing.T) {
	repo := NewMemDeliveryRepository()
	repo.FailFanoutAfter = 0

	_, err := repo.CreateMessageWithDeliveries(context.Background(),
		messaging.Message{ConversationID: "conv-1", SenderID: "alice", CreatedAt: time.Now().UTC()},
		[]messaging.DeliveryRecord{{RecipientID: "bob", DeliveredAt: time.Now().UTC()}},
		[]messaging.EncryptedPayload{{RecipientID: "bob", Sealed: []byte("sealed")}},
	)
	require.ErrorIs(t, err, messaging.ErrFanout)

	recs, err := repo.ActiveDeliveries(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

type deliveryKey struct {
	messageID   string
	recipientID string
}

// MemDeliveryRepository is an in-memory DeliveryRepository used by tests and
// local runs without Postgres. It mirrors the Pg adapter's semantics, notably
// the conditional mark-read and the all-or-nothing fan-out insert.
type MemDeliveryRepository struct {
	mu           sync.Mutex
	messages     map[string]messaging.Message
	deliveries   map[deliveryKey]messaging.DeliveryRecord
	payloads     map[deliveryKey]messaging.EncryptedPayload
	timerConfigs map[string]messaging.TimerConfig // conversationID|userID
	participants map[string]map[string]struct{}   // conversationID -> userIDs

	// FailFanoutAfter, when >= 0, fails the fan-out insert after that many
	// delivery rows to exercise rollback behavior.
	FailFanoutAfter int
}

func NewMemDeliveryRepository() *MemDeliveryRepository {
	return &MemDeliveryRepository{
		messages:        make(map[string]messaging.Message),
		deliveries:      make(map[deliveryKey]messaging.DeliveryRecord),
		payloads:        make(map[deliveryKey]messaging.EncryptedPayload),
		timerConfigs:    make(map[string]messaging.TimerConfig),
		participants:    make(map[string]map[string]struct{}),
		FailFanoutAfter: -1,
	}
}

var _ repository.DeliveryRepository = (*MemDeliveryRepository)(nil)

// AddParticipant seeds conversation membership.
func (r *MemDeliveryRepository) AddParticipant(conversationID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.participants[conversationID]
	if members == nil {
		members = make(map[string]struct{})
		r.participants[conversationID] = members
	}
	members[userID] = struct{}{}
}

func (r *MemDeliveryRepository) CreateMessageWithDeliveries(_ context.Context, m messaging.Message, deliveries []messaging.DeliveryRecord, payloads []messaging.EncryptedPayload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailFanoutAfter >= 0 && len(deliveries) > r.FailFanoutAfter {
		return "", fmt.Errorf("%w: simulated insert failure", messaging.ErrFanout)
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	r.messages[m.ID] = m
	for _, p := range payloads {
		p.MessageID = m.ID
		r.payloads[deliveryKey{m.ID, p.RecipientID}] = p
	}
	for _, d := range deliveries {
		d.MessageID = m.ID
		r.deliveries[deliveryKey{m.ID, d.RecipientID}] = d
	}
	return m.ID, nil
}

func (r *MemDeliveryRepository) MarkRead(_ context.Context, messageID, userID string, readAt time.Time) (repository.MarkReadOutcome, *messaging.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deliveryKey{messageID, userID}
	rec, ok := r.deliveries[key]
	if !ok || rec.DeletedAt != nil {
		return 0, nil, messaging.ErrNotFound
	}
	if rec.ReadAt != nil {
		out := rec
		return repository.MarkReadAlreadyRead, &out, nil
	}

	rec.ReadAt = &readAt
	if rec.ExpiresAt == nil && rec.ReadExpirySeconds > 0 {
		cfg := messaging.TimerConfig{DisappearSeconds: rec.ReadExpirySeconds, StartOn: messaging.TriggerOnRead}
		rec.ExpiresAt = messaging.ComputeExpiry(cfg, rec.DeliveredAt, &readAt)
	}
	r.deliveries[key] = rec
	out := rec
	return repository.MarkReadUpdated, &out, nil
}

func (r *MemDeliveryRepository) GetDelivery(_ context.Context, messageID, userID string) (*messaging.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.deliveries[deliveryKey{messageID, userID}]
	if !ok {
		return nil, messaging.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (r *MemDeliveryRepository) GetMessage(_ context.Context, messageID string) (*messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[messageID]
	if !ok {
		return nil, messaging.ErrNotFound
	}
	out := m
	return &out, nil
}

func (r *MemDeliveryRepository) ActiveDeliveries(_ context.Context, userID string) ([]messaging.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var recs []messaging.DeliveryRecord
	for key, rec := range r.deliveries {
		if key.recipientID == userID && rec.DeletedAt == nil {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (r *MemDeliveryRepository) SweepExpired(_ context.Context, now time.Time) ([]messaging.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []messaging.DeliveryRecord
	for key, rec := range r.deliveries {
		if rec.DeletedAt != nil || rec.ExpiresAt == nil || rec.ExpiresAt.After(now) {
			continue
		}
		ts := now
		rec.DeletedAt = &ts
		rec.DeletionReason = messaging.DeletionReasonExpired
		r.deliveries[key] = rec
		swept = append(swept, rec)
	}
	return swept, nil
}

func (r *MemDeliveryRepository) GetTimerConfig(_ context.Context, conversationID, userID string) (*messaging.TimerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.timerConfigs[conversationID+"|"+userID]
	if !ok {
		return nil, nil
	}
	out := cfg
	return &out, nil
}

func (r *MemDeliveryRepository) PutTimerConfig(_ context.Context, cfg messaging.TimerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timerConfigs[cfg.ConversationID+"|"+cfg.UserID] = cfg
	return nil
}

func (r *MemDeliveryRepository) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[conversationID][userID]
	return ok, nil
}

func (r *MemDeliveryRepository) Participants(_ context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.participants[conversationID]))
	for id := range r.participants[conversationID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// PayloadCount reports stored sealed payloads for a message. Test helper.
func (r *MemDeliveryRepository) PayloadCount(messageID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key := range r.payloads {
		if key.messageID == messageID {
			n++
		}
	}
	return n
}

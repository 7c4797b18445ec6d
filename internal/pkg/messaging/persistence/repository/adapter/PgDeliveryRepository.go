package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
	repository "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/port"
)

const deliveryColumns = "message_id::text, recipient_id::text, delivered_at, read_at, expires_at, read_expiry_seconds, deleted_at, COALESCE(deletion_reason, '')"

// PgDeliveryRepository persists the delivery engine's state in Postgres under
// the messaging schema.
type PgDeliveryRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeliveryRepository(pool *pgxpool.Pool) *PgDeliveryRepository {
	return &PgDeliveryRepository{pool: pool}
}

var _ repository.DeliveryRepository = (*PgDeliveryRepository)(nil)

func (r *PgDeliveryRepository) CreateMessageWithDeliveries(ctx context.Context, m messaging.Message, deliveries []messaging.DeliveryRecord, payloads []messaging.EncryptedPayload) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgDeliveryRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: begin: %v", messaging.ErrFanout, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO messaging.message (conversation_id, sender_id, content_type, created_at, reply_to_id)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5::uuid)
		RETURNING id::text
	`, m.ConversationID, m.SenderID, m.ContentType, m.CreatedAt, m.ReplyToID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%w: insert message: %v", messaging.ErrFanout, err)
	}

	for _, p := range payloads {
		_, err = tx.Exec(ctx, `
			INSERT INTO messaging.payload (message_id, recipient_id, sealed)
			VALUES ($1::uuid, $2::uuid, $3)
		`, id, p.RecipientID, p.Sealed)
		if err != nil {
			return "", fmt.Errorf("%w: insert payload for %s: %v", messaging.ErrFanout, p.RecipientID, err)
		}
	}

	for _, d := range deliveries {
		_, err = tx.Exec(ctx, `
			INSERT INTO messaging.delivery (message_id, recipient_id, delivered_at, expires_at, read_expiry_seconds)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		`, id, d.RecipientID, d.DeliveredAt, d.ExpiresAt, d.ReadExpirySeconds)
		if err != nil {
			return "", fmt.Errorf("%w: insert delivery for %s: %v", messaging.ErrFanout, d.RecipientID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: commit: %v", messaging.ErrFanout, err)
	}
	return id, nil
}

func (r *PgDeliveryRepository) MarkRead(ctx context.Context, messageID, userID string, readAt time.Time) (repository.MarkReadOutcome, *messaging.DeliveryRecord, error) {
	if r == nil || r.pool == nil {
		return 0, nil, errors.New("PgDeliveryRepository: nil pool")
	}

	// expires_at stays immutable once set: COALESCE keeps a delivered-trigger
	// expiry that was computed at fan-out. A read-trigger expiry comes from
	// the row's own snapshot, never from the config current at read time.
	row := r.pool.QueryRow(ctx, `
		UPDATE messaging.delivery
		SET read_at = $3,
		    expires_at = COALESCE(expires_at, CASE WHEN read_expiry_seconds > 0
		        THEN $3::timestamptz + make_interval(secs => read_expiry_seconds) END)
		WHERE message_id = $1::uuid AND recipient_id = $2::uuid
		  AND read_at IS NULL AND deleted_at IS NULL
		RETURNING `+deliveryColumns, messageID, userID, readAt)

	rec, err := scanDelivery(row)
	if err == nil {
		return repository.MarkReadUpdated, rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, err
	}

	// No row matched: either already read (idempotent success), tombstoned,
	// or missing entirely.
	existing, err := r.GetDelivery(ctx, messageID, userID)
	if err != nil {
		return 0, nil, err
	}
	if !existing.Active() {
		return 0, nil, messaging.ErrNotFound
	}
	return repository.MarkReadAlreadyRead, existing, nil
}

func (r *PgDeliveryRepository) GetDelivery(ctx context.Context, messageID, userID string) (*messaging.DeliveryRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM messaging.delivery
		WHERE message_id = $1::uuid AND recipient_id = $2::uuid
	`, messageID, userID)
	rec, err := scanDelivery(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, messaging.ErrNotFound
	}
	return rec, err
}

func (r *PgDeliveryRepository) GetMessage(ctx context.Context, messageID string) (*messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	var m messaging.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content_type, created_at, reply_to_id::text
		FROM messaging.message
		WHERE id = $1::uuid
	`, messageID).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ContentType, &m.CreatedAt, &m.ReplyToID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, messaging.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgDeliveryRepository) ActiveDeliveries(ctx context.Context, userID string) ([]messaging.DeliveryRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM messaging.delivery
		WHERE recipient_id = $1::uuid AND deleted_at IS NULL
		ORDER BY delivered_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

func (r *PgDeliveryRepository) SweepExpired(ctx context.Context, now time.Time) ([]messaging.DeliveryRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE messaging.delivery
		SET deleted_at = $1, deletion_reason = $2
		WHERE expires_at IS NOT NULL AND expires_at <= $1 AND deleted_at IS NULL
		RETURNING `+deliveryColumns, now, messaging.DeletionReasonExpired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

func (r *PgDeliveryRepository) GetTimerConfig(ctx context.Context, conversationID, userID string) (*messaging.TimerConfig, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	var cfg messaging.TimerConfig
	err := r.pool.QueryRow(ctx, `
		SELECT conversation_id::text, user_id::text, disappear_seconds, start_on
		FROM messaging.timer_config
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID).Scan(&cfg.ConversationID, &cfg.UserID, &cfg.DisappearSeconds, &cfg.StartOn)
	if errors.Is(err, pgx.ErrNoRows) {
		// No stored config means the timer is disabled for this participant.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *PgDeliveryRepository) PutTimerConfig(ctx context.Context, cfg messaging.TimerConfig) error {
	if r == nil || r.pool == nil {
		return errors.New("PgDeliveryRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messaging.timer_config (conversation_id, user_id, disappear_seconds, start_on)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET disappear_seconds = EXCLUDED.disappear_seconds,
		              start_on = EXCLUDED.start_on
	`, cfg.ConversationID, cfg.UserID, cfg.DisappearSeconds, cfg.StartOn)
	return err
}

func (r *PgDeliveryRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgDeliveryRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messaging.participant
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid AND left_at IS NULL
		)
	`, conversationID, userID).Scan(&exists)
	return exists, err
}

func (r *PgDeliveryRepository) Participants(ctx context.Context, conversationID string) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgDeliveryRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id::text FROM messaging.participant
		WHERE conversation_id = $1::uuid AND left_at IS NULL
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanDelivery(row pgx.Row) (*messaging.DeliveryRecord, error) {
	var rec messaging.DeliveryRecord
	err := row.Scan(&rec.MessageID, &rec.RecipientID, &rec.DeliveredAt, &rec.ReadAt, &rec.ExpiresAt, &rec.ReadExpirySeconds, &rec.DeletedAt, &rec.DeletionReason)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectDeliveries(rows pgx.Rows) ([]messaging.DeliveryRecord, error) {
	var recs []messaging.DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

package messaging

import (
	"strings"
	"time"
)

// ContentType tags the kind of sealed content a message carries.
// The engine never inspects the ciphertext; the tag is metadata for clients.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeFile  ContentType = "file"
)

// Message is an immutable log entry in a conversation. Content never lives on
// the message itself: it is sealed per recipient into EncryptedPayload rows.
type Message struct {
	ID             string      `db:"id"`
	ConversationID string      `db:"conversation_id"`
	SenderID       string      `db:"sender_id"`
	ContentType    ContentType `db:"content_type"`
	CreatedAt      time.Time   `db:"created_at"`
	ReplyToID      *string     `db:"reply_to_id"`
}

// EncryptedPayload is one recipient's sealed copy of a message, produced by the
// crypto collaborator and stored verbatim. Keyed (MessageID, RecipientID).
type EncryptedPayload struct {
	MessageID   string `db:"message_id"`
	RecipientID string `db:"recipient_id"`
	Sealed      []byte `db:"sealed"`
}

// NewMessage validates and normalizes a message prior to fan-out.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, ErrValidation
	}
	if strings.TrimSpace(string(m.ContentType)) == "" {
		m.ContentType = ContentTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return &m, nil
}

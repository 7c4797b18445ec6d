package controller

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

// CreateMessageController handles message creation with per-recipient sealed
// payloads (one controller per endpoint).
type CreateMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewCreateMessageController(uc *usecase.SendMessageUseCase) *CreateMessageController {
	return &CreateMessageController{UC: uc}
}

// createMessageRequest is the DTO for the HTTP request body. Payloads maps
// recipient id to the base64 sealed blob from the crypto collaborator.
type createMessageRequest struct {
	ConversationID string            `json:"conversation_id" binding:"required"`
	ContentType    *string           `json:"content_type"`
	ReplyToID      *string           `json:"reply_to_id"`
	Payloads       map[string]string `json:"payloads" binding:"required"`
}

func (h *CreateMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		senderID := callerID(c)
		if senderID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}

		var req createMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sealed := make(map[string][]byte, len(req.Payloads))
		for recipientID, encoded := range req.Payloads {
			blob, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "payload for " + recipientID + " is not valid base64"})
				return
			}
			sealed[recipientID] = blob
		}

		contentType := messaging.ContentTypeText
		if req.ContentType != nil {
			contentType = messaging.ContentType(*req.ContentType)
		}

		in := usecase.SendMessageInput{
			ConversationID: req.ConversationID,
			SenderID:       senderID,
			ContentType:    contentType,
			ReplyToID:      req.ReplyToID,
			SealedPayloads: sealed,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		msg, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":              msg.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"content_type":    msg.ContentType,
			"created_at":      msg.CreatedAt,
			"reply_to_id":     msg.ReplyToID,
		})
	}
}

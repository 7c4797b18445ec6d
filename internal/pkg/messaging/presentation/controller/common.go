package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

// callerID extracts the verified user identity forwarded by the
// authentication collaborator. Credential validation happens upstream.
func callerID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// respondError maps the domain taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messaging.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrFanout), errors.Is(err, usecase.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		// Unclassified failures are server-side, not the client's fault.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// deliveryJSON shapes a delivery record for responses.
func deliveryJSON(rec messaging.DeliveryRecord) gin.H {
	return gin.H{
		"message_id":      rec.MessageID,
		"recipient_id":    rec.RecipientID,
		"delivered_at":    rec.DeliveredAt,
		"read_at":         rec.ReadAt,
		"expires_at":      rec.ExpiresAt,
		"deleted_at":      rec.DeletedAt,
		"deletion_reason": rec.DeletionReason,
	}
}

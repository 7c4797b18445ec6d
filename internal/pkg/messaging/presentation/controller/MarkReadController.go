package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
)

// MarkReadController handles the idempotent mark-read endpoint.
type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{UC: uc}
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}

		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		out, err := h.UC.Execute(ctx, usecase.MarkReadInput{MessageID: messageID, UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}

		body := deliveryJSON(*out.Record)
		body["already_read"] = out.AlreadyRead
		c.JSON(http.StatusOK, body)
	}
}

package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	messaging "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/domain"
)

// TimerConfigController updates the caller's own disappearing-timer setting
// for one conversation. Applies to subsequently sent messages only.
type TimerConfigController struct {
	UC *usecase.UpdateTimerConfigUseCase
}

func NewTimerConfigController(uc *usecase.UpdateTimerConfigUseCase) *TimerConfigController {
	return &TimerConfigController{UC: uc}
}

type timerConfigRequest struct {
	DisappearSeconds int    `json:"disappear_seconds"`
	StartOn          string `json:"start_on" binding:"required"`
}

func (h *TimerConfigController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req timerConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.UpdateTimerConfigInput{
			CallerID:         userID,
			ConversationID:   conversationID,
			UserID:           userID,
			DisappearSeconds: req.DisappearSeconds,
			StartOn:          messaging.ExpiryTrigger(req.StartOn),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		cfg, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id":   cfg.ConversationID,
			"user_id":           cfg.UserID,
			"disappear_seconds": cfg.DisappearSeconds,
			"start_on":          cfg.StartOn,
		})
	}
}

package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
)

// ActiveDeliveriesController lists the caller's live delivery records. This is
// the authoritative view clients reload from when a push was missed.
type ActiveDeliveriesController struct {
	UC *usecase.GetActiveDeliveriesUseCase
}

func NewActiveDeliveriesController(uc *usecase.GetActiveDeliveriesUseCase) *ActiveDeliveriesController {
	return &ActiveDeliveriesController{UC: uc}
}

func (h *ActiveDeliveriesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		recs, err := h.UC.Execute(ctx, usecase.GetActiveDeliveriesInput{UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]gin.H, 0, len(recs))
		for _, rec := range recs {
			out = append(out, deliveryJSON(rec))
		}
		c.JSON(http.StatusOK, gin.H{"deliveries": out, "count": len(out)})
	}
}

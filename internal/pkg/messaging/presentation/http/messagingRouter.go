package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/cache/port"
	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/realtime"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repoAdapter "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/adapter"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/presentation/controller"
)

// RegisterRoutes registers the delivery engine's HTTP endpoints under the
// given router group. It constructs per-endpoint controllers and binds them
// directly to routes.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, cache cacheport.Cache, queue qport.Client, bus event.Bus, registry *realtime.Registry) {
	repo := repoAdapter.NewPgDeliveryRepository(pool)
	timers := usecase.NewTimerConfigSource(repo, cache)

	createCtl := controller.NewCreateMessageController(usecase.NewSendMessageUseCase(repo, timers, bus, queue))
	markReadCtl := controller.NewMarkReadController(usecase.NewMarkReadUseCase(repo, bus, queue))
	deliveriesCtl := controller.NewActiveDeliveriesController(usecase.NewGetActiveDeliveriesUseCase(repo))
	timerCtl := controller.NewTimerConfigController(usecase.NewUpdateTimerConfigUseCase(repo, timers))
	socketCtl := controller.NewSocketController(registry, usecase.NewJoinConversationUseCase(repo))

	// POST /api/v1/messages -> create a message with per-recipient payloads
	g.POST("/messages", createCtl.Handle())

	// GET /api/v1/deliveries -> caller's active (non-tombstoned) deliveries
	g.GET("/deliveries", deliveriesCtl.Handle())

	// PATCH /api/v1/messages/:messageId/read -> idempotent mark-read
	g.PATCH("/messages/:messageId/read", markReadCtl.Handle())

	// PUT /api/v1/conversations/:conversationId/timer -> caller's own timer config
	g.PUT("/conversations/:conversationId/timer", timerCtl.Handle())

	// GET /api/v1/ws -> websocket push stream
	g.GET("/ws", socketCtl.Handle())
}

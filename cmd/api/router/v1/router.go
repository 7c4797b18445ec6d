package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/cache/port"
	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/realtime"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	httpHandler "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, cache cacheport.Cache, queue qport.Client, bus event.Bus, registry *realtime.Registry) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, pool, cache, queue, bus, registry)
}

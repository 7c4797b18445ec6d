package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "github.com/profullstack/qryptchat-web-sub003/cmd/api/router/v1"
	cacheAdapter "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/cache/adapter"
	cacheport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/cache/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/database"
	queueAdapter "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/adapter"
	qport "github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/queue/port"
	"github.com/profullstack/qryptchat-web-sub003/internal/infrastructure/realtime"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/relay"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/task"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/application/usecase"
	"github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/event"
	repoAdapter "github.com/profullstack/qryptchat-web-sub003/internal/pkg/messaging/persistence/repository/adapter"
)

const (
	keepAliveInterval = 25 * time.Second
	sweepInterval     = 1 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.NewPoolFromEnv(connectCtx)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Cache and queue are optional: without Redis the service still serves
	// every endpoint, with slower config reads and periodic-only sweeps.
	var cache cacheport.Cache
	if c, err := cacheAdapter.NewRedisAdapter(); err != nil {
		log.Printf("warning: running without cache: %v", err)
	} else {
		cache = c
		defer c.Close()
	}

	var queue qport.Client
	if q, err := queueAdapter.NewAsynqClientFromEnv(); err != nil {
		log.Printf("warning: running without queue client: %v", err)
	} else {
		queue = q
		defer q.Close()
	}

	bus := event.NewMemoryBus()
	registry := realtime.NewRegistry()
	defer registry.Close()

	rel := relay.New(bus, registry)
	rel.Start()
	defer rel.Stop()

	repo := repoAdapter.NewPgDeliveryRepository(pool)
	sweepUC := usecase.NewSweepExpiredUseCase(repo, bus)

	// Point sweeps scheduled at known expiry instants run through the queue
	// worker when Redis is available.
	if srv, err := queueAdapter.NewAsynqServer(); err != nil {
		log.Printf("warning: running without queue worker: %v", err)
	} else {
		task.RegisterSweepExpiredTask(srv, sweepUC)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("queue worker stopped: %v", err)
			}
		}()
	}

	// Periodic safety-net sweep and connection keep-alive.
	go runTicker(ctx, sweepInterval, func() {
		if _, err := sweepUC.Execute(ctx, time.Now().UTC()); err != nil {
			log.Printf("expiry sweep: %v", err)
		}
	})
	go runTicker(ctx, keepAliveInterval, registry.SendKeepAlive)

	r := gin.Default()
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	v1.RegisterRoutes(r, pool, cache, queue, bus, registry)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// runTicker invokes fn on every tick until the context is canceled, releasing
// the ticker on shutdown.
func runTicker(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

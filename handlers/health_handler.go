package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/packlane/packlane-backend/logger"
	"github.com/redis/go-redis/v9"
)

// QueueHealth reports whether the job-queue poller is running and can reach
// its backing store.
type QueueHealth interface {
	IsRunning() bool
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	queue   QueueHealth
	version string
}

func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, queue QueueHealth, version string) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		redis:   redisClient,
		queue:   queue,
		version: version,
	}
}

// LivenessCheck handles GET /health/liveness. It only proves the process is
// serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}

// ReadinessCheck handles GET /health/readiness. Dependencies are probed
// with a short timeout; any failure flips the response to 503.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	log := logger.GetLogger()
	components := gin.H{}
	healthy := true

	if err := h.pool.Ping(ctx); err != nil {
		log.Warnw("Readiness: database unreachable", "error", err)
		components["database"] = "down"
		healthy = false
	} else {
		components["database"] = "up"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Warnw("Readiness: redis unreachable", "error", err)
		components["redis"] = "down"
		healthy = false
	} else {
		components["redis"] = "up"
	}

	if h.queue != nil {
		if !h.queue.IsRunning() {
			components["scheduler"] = "stopped"
			healthy = false
		} else if err := h.queue.HealthCheck(ctx); err != nil {
			log.Warnw("Readiness: job queue unhealthy", "error", err)
			components["scheduler"] = "down"
			healthy = false
		} else {
			components["scheduler"] = "up"
		}
	}

	status := http.StatusOK
	statusText := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     statusText,
		"version":    h.version,
		"components": components,
	})
}

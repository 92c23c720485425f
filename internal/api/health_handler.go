package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/scan"
)

const readyTimeout = 3 * time.Second

// pinger is implemented by scanners backed by a daemon, such as *scan.Clamd.
type pinger interface {
	Ping() error
}

// HealthHandler reports readiness of Redis, the analysis service and the upload scanner.
type HealthHandler struct {
	redis    redis.UniversalClient
	upstream HealthChecker
	scanner  scan.Scanner
}

func NewHealthHandler(redisClient redis.UniversalClient, upstream HealthChecker, scanner scan.Scanner) *HealthHandler {
	return &HealthHandler{redis: redisClient, upstream: upstream, scanner: scanner}
}

// Ready answers 200 when every configured dependency responds, 503 otherwise.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	checks := gin.H{}
	ready := true
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			middleware.LoggerFromContext(c).Warn("redis not ready", slog.Any("error", err))
			checks["redis"] = "unavailable"
			ready = false
		}
	}
	if h.upstream != nil {
		checks["analysis"] = "ok"
		if err := h.upstream.Health(ctx); err != nil {
			middleware.LoggerFromContext(c).Warn("analysis service not ready", slog.Any("error", err))
			checks["analysis"] = "unavailable"
			ready = false
		}
	}
	if p, ok := h.scanner.(pinger); ok {
		checks["clamd"] = "ok"
		if err := p.Ping(); err != nil {
			middleware.LoggerFromContext(c).Warn("clamd not ready", slog.Any("error", err))
			checks["clamd"] = "unavailable"
			ready = false
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

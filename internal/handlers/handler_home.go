package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HealthResponse reports process and store health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// getHealth godoc
// @Summary Show the status of server.
// @Description Reports whether the server and its credential store are reachable.
// @Tags root
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func getHealth(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping == nil {
			c.JSON(http.StatusOK, HealthResponse{Status: "ok", Store: "unknown"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			middleware.GetLoggerFromCtx(c.Request.Context()).Error("Health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "unavailable"})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
	}
}

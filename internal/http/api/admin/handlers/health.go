package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	"gorm.io/gorm"
)

// HealthHandler reports channel configuration and store reachability.
type HealthHandler struct {
	channels config.ChannelsConfig
	db       *gorm.DB
}

// NewHealthHandler constructs a HealthHandler. db may be nil when no store is configured.
func NewHealthHandler(channels config.ChannelsConfig, db *gorm.DB) *HealthHandler {
	return &HealthHandler{channels: channels, db: db}
}

// Healthz returns 200 while the process can serve; a configured but unreachable store yields 503.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status": "ok",
		"channels": gin.H{
			"webhook": h.channels.WebhookConfigured(),
			"email":   h.channels.EmailConfigured(),
		},
		"store": h.db != nil,
	}
	if h.db != nil {
		if errPing := h.ping(c.Request.Context()); errPing != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func (h *HealthHandler) ping(ctx context.Context) error {
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		return errDB
	}
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctxPing)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/pkg/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// SystemHandler serves liveness and the API document
type SystemHandler struct {
	storage    kvstore.Storage
	driver     string
	aiProvider string
	logger     *zap.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(storage kvstore.Storage, driver, aiProvider string, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		storage:    storage,
		driver:     driver,
		aiProvider: aiProvider,
		logger:     logger,
	}
}

// GetHealth reports liveness and whether the storage backend answers
func (h *SystemHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := kvstore.Ping(ctx, h.storage); err != nil {
		h.logger.Error("storage health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"storage": h.driver,
			"error":   "storage connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"storage":   h.driver,
		"ai":        h.aiProvider,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetOpenAPISpec serves the embedded API document
func (h *SystemHandler) GetOpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", api.Spec())
}

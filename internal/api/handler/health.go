package handler

import (
	"net/http"

	"github.com/calvey/hauntex/internal/index"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	idx index.Index
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(idx index.Index) *HealthHandler {
	return &HealthHandler{idx: idx}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"index_size": h.idx.Len(),
	})
}

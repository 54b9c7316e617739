package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/database"
)

// Health reports service and database health
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	if err := database.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"github.com/yocodex/backend/internal/middleware"
	"github.com/yocodex/backend/internal/models"
	"go.uber.org/zap"
)

// currentUser returns the authenticated user placed in the context by
// the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return nil, false
	}
	return user, true
}

// respondError writes a structured error response. Known APIErrors keep
// their status and code; anything else becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	if apiErr := apierrors.AsAPIError(err); apiErr != nil {
		body := gin.H{
			"error":   string(apiErr.Code),
			"message": apiErr.Message,
		}
		if apiErr.Field != "" {
			body["field"] = apiErr.Field
		}
		if apiErr.Details != "" {
			body["details"] = apiErr.Details
		}
		status := apiErr.Status
		if status == 0 {
			status = apiErr.Code.StatusCode()
		}
		metrics.RecordError(string(apiErr.Code), c.FullPath())
		c.JSON(status, body)
		return
	}

	logger.Log.Error("Unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	metrics.RecordError("INTERNAL_ERROR", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "INTERNAL_ERROR",
		"message": "something went wrong",
	})
}

func parseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

func parseBool(s string) bool {
	val, _ := strconv.ParseBool(s)
	return val
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/database"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/models"
	"gorm.io/gorm"
)

// GetUser returns a user's public profile
// GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	var user models.User
	err := database.DB.First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apierrors.NotFound("user"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUserProfile looks a user up by username and includes their
// recent published posts.
// GET /api/v1/users/:id/profile (the path segment is the username)
func (h *Handlers) GetUserProfile(c *gin.Context) {
	var user models.User
	err := database.DB.First(&user, "LOWER(username) = LOWER(?)", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apierrors.NotFound("user"))
			return
		}
		respondError(c, err)
		return
	}

	var posts []models.Post
	err = database.DB.
		Where("author_id = ? AND status = ?", user.ID, models.PostStatusPublished).
		Order("published_at DESC, id DESC").
		Limit(10).
		Find(&posts).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "posts": posts})
}

// FollowUser makes the authenticated user follow :id
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.social.Follow(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "following"})
}

// UnfollowUser removes the authenticated user's follow of :id
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.social.Unfollow(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unfollowed"})
}

// GetFollowers lists the users following :id
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	page := parseInt(c.DefaultQuery("page", "1"), 1)
	limit := parseInt(c.DefaultQuery("limit", "20"), 20)

	result, err := h.social.Followers(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFollowing lists the users :id follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	page := parseInt(c.DefaultQuery("page", "1"), 1)
	limit := parseInt(c.DefaultQuery("limit", "20"), 20)

	result, err := h.social.Following(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

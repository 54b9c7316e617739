package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/database"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/models"
	"github.com/yocodex/backend/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateCommentRequest is the payload for creating a comment
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required,min=1,max=5000"`
	ParentID *string `json:"parent_id"`
}

// CreateComment adds a comment to a post, optionally as a reply. The
// post author gets a comment notification and any @mentioned users get
// mention notifications.
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid comment payload").WithDetails(err.Error()))
		return
	}

	postID := c.Param("id")
	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apierrors.NotFound("post"))
			return
		}
		respondError(c, err)
		return
	}

	depth := 0
	if req.ParentID != nil {
		var parent models.Comment
		if err := database.DB.First(&parent, "id = ?", *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, apierrors.NotFound("parent comment"))
				return
			}
			respondError(c, err)
			return
		}
		if parent.PostID != postID {
			respondError(c, apierrors.BadRequest("parent comment belongs to a different post"))
			return
		}
		depth = parent.Depth + 1
		if depth > models.MaxCommentDepth {
			respondError(c, apierrors.BadRequest("comment thread is too deep"))
			return
		}
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: user.ID,
		Content:  req.Content,
		ParentID: req.ParentID,
		Depth:    depth,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		respondError(c, fmt.Errorf("creating comment: %w", err))
		return
	}

	comment.Author = *user

	// Comment notification to the post author. Self-comments are
	// suppressed inside the engine.
	_, err = h.notifications.Create(c.Request.Context(), notify.CreateParams{
		RecipientID: post.AuthorID,
		SenderID:    user.ID,
		Type:        models.NotificationComment,
		PostID:      &post.ID,
		CommentID:   &comment.ID,
	})
	if err != nil {
		// The comment is already saved; fan-out failure is not the
		// caller's problem
		logger.Log.Warn("Comment notification failed",
			logger.WithPostID(post.ID),
			zap.Error(err),
		)
	}

	h.fanOutMentions(c, user, &post, &comment)

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// fanOutMentions creates mention notifications for every @username in
// the comment that names a real user.
func (h *Handlers) fanOutMentions(c *gin.Context, sender *models.User, post *models.Post, comment *models.Comment) {
	usernames := notify.ExtractMentions(comment.Content)
	if len(usernames) == 0 {
		return
	}

	var mentioned []models.User
	if err := database.DB.Where("username IN ?", usernames).Find(&mentioned).Error; err != nil {
		return
	}

	params := make([]notify.CreateParams, 0, len(mentioned))
	for _, target := range mentioned {
		// The author already gets a comment notification for this event.
		if target.ID == post.AuthorID {
			continue
		}
		params = append(params, notify.CreateParams{
			RecipientID: target.ID,
			SenderID:    sender.ID,
			Type:        models.NotificationMention,
			PostID:      &post.ID,
			CommentID:   &comment.ID,
		})
	}
	h.notifications.CreateBatch(c.Request.Context(), params)
}

// ListComments returns a post's top-level comments with replies
// GET /api/v1/posts/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	postID := c.Param("id")
	page := parseInt(c.DefaultQuery("page", "1"), 1)
	limit := parseInt(c.DefaultQuery("limit", "20"), 20)
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := database.DB.Model(&models.Comment{}).
		Where("post_id = ? AND parent_id IS NULL", postID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}

	var comments []models.Comment
	err := query.Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Preload("Author")
		}).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"total":    total,
		"page":     page,
		"pages":    (total + int64(limit) - 1) / int64(limit),
	})
}

// LikeComment toggles the authenticated user's like on a comment
// POST /api/v1/comments/:id/like
func (h *Handlers) LikeComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.social.ToggleCommentLike(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yocodex/backend/internal/database"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/models"
	"gorm.io/gorm"
)

// CreatePostRequest is the payload for creating a post
type CreatePostRequest struct {
	Title    string   `json:"title" binding:"required,min=1,max=200"`
	Content  string   `json:"content" binding:"required,min=1"`
	Status   string   `json:"status" binding:"omitempty,oneof=draft published"`
	Tags     []string `json:"tags" binding:"omitempty,max=5,dive,min=1,max=40"`
	Category string   `json:"category" binding:"omitempty,max=60"`
}

// CreatePost creates a post authored by the authenticated user
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid post payload").WithDetails(err.Error()))
		return
	}

	status := models.PostStatus(req.Status)
	if status == "" {
		status = models.PostStatusDraft
	}

	post := models.Post{
		AuthorID: user.ID,
		Title:    req.Title,
		Slug:     uniqueSlug(req.Title),
		Content:  req.Content,
		Excerpt:  models.DeriveExcerpt(req.Content),
		Status:   status,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
		if err != nil {
			return err
		}
		if err := attachTags(tx, &post, req.Tags); err != nil {
			return err
		}
		return attachCategory(tx, &post, req.Category)
	})
	if err != nil {
		respondError(c, fmt.Errorf("creating post: %w", err))
		return
	}

	post.Author = *user
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// GetPost returns one post with its author preloaded
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	var post models.Post
	err := database.DB.Preload("Author").First(&post, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apierrors.NotFound("post"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// ListPosts returns a page of published posts, newest first
// GET /api/v1/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	page := parseInt(c.DefaultQuery("page", "1"), 1)
	limit := parseInt(c.DefaultQuery("limit", "10"), 10)
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := database.DB.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished)
	if tag := c.Query("tag"); tag != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug = ?", tag)
	}
	if category := c.Query("category"); category != "" {
		query = query.
			Joins("JOIN post_categories ON post_categories.post_id = posts.id").
			Joins("JOIN categories ON categories.id = post_categories.category_id").
			Where("categories.slug = ?", category)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}

	var posts []models.Post
	err := query.Session(&gorm.Session{}).Preload("Author").
		Order("posts.published_at DESC, posts.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": total,
		"page":  page,
		"pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// LikePost toggles the authenticated user's like on a post
// POST /api/v1/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.social.TogglePostLike(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// attachTags resolves each tag name to a row (creating it on first use),
// links it to the post and bumps its cached post count.
func attachTags(tx *gorm.DB, post *models.Post, names []string) error {
	for _, name := range names {
		slug := models.Slugify(name)
		if slug == "" {
			continue
		}
		var tag models.Tag
		err := tx.Where(models.Tag{Slug: slug}).
			Attrs(models.Tag{Name: name}).
			FirstOrCreate(&tag).Error
		if err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}
		if err := tx.Model(post).Association("Tags").Append(&tag); err != nil {
			return err
		}
		if err := tx.Model(&tag).UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

func attachCategory(tx *gorm.DB, post *models.Post, name string) error {
	slug := models.Slugify(name)
	if slug == "" {
		return nil
	}
	var category models.Category
	err := tx.Where(models.Category{Slug: slug}).
		Attrs(models.Category{Name: name}).
		FirstOrCreate(&category).Error
	if err != nil {
		return fmt.Errorf("resolving category %q: %w", name, err)
	}
	if err := tx.Model(post).Association("Categories").Append(&category); err != nil {
		return err
	}
	return tx.Model(&category).UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
}

// uniqueSlug derives a slug from the title with a short random suffix
// so repeated titles never collide.
func uniqueSlug(title string) string {
	slug := models.Slugify(title)
	suffix := uuid.New().String()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

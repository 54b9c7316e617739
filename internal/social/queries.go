package social

import (
	"context"
	"fmt"

	"github.com/yocodex/backend/internal/models"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// UserPage is a paginated slice of users from one side of the follow
// graph.
type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
}

// Followers returns the users following userID, most recent first
func (s *Service) Followers(ctx context.Context, userID string, page, limit int) (*UserPage, error) {
	return s.edgePage(ctx, userID, "follows.followee_id", "follows.follower_id", page, limit)
}

// Following returns the users userID follows, most recent first
func (s *Service) Following(ctx context.Context, userID string, page, limit int) (*UserPage, error) {
	return s.edgePage(ctx, userID, "follows.follower_id", "follows.followee_id", page, limit)
}

func (s *Service) edgePage(ctx context.Context, userID, whereCol, joinCol string, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins(fmt.Sprintf("JOIN follows ON %s = users.id", joinCol)).
		Where(whereCol+" = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting follows: %w", err)
	}

	var users []models.User
	err := base.Session(&gorm.Session{}).
		Order("follows.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing follows: %w", err)
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &UserPage{Users: users, Total: total, Page: page, Pages: pages}, nil
}

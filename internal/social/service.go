// Package social maintains the follow graph and the like sets, keeping
// both sides of every relationship consistent from the caller's
// perspective. Each mutation is a single database transaction, so the
// paired writes (edge row plus cached counters) commit or fail together.
package social

import (
	"context"
	"fmt"

	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/models"
	"github.com/yocodex/backend/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the social graph mutator
type Service struct {
	db            *gorm.DB
	notifications *notify.Service
}

// NewService creates a social service. notifications may be nil, in
// which case mutations succeed without fan-out.
func NewService(db *gorm.DB, notifications *notify.Service) *Service {
	return &Service{
		db:            db,
		notifications: notifications,
	}
}

// Follow creates the follower->target edge and bumps both cached
// counters transactionally, then fires a follow notification. The
// notification is fan-out, not part of the relationship: its failure is
// logged and does not undo the follow.
func (s *Service) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return apierrors.BadRequest("cannot follow yourself")
	}

	var follower, target models.User
	if err := s.db.WithContext(ctx).First(&follower, "id = ?", followerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierrors.NotFound("user")
		}
		return fmt.Errorf("loading follower: %w", err)
	}
	if err := s.db.WithContext(ctx).First(&target, "id = ?", targetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierrors.NotFound("user")
		}
		return fmt.Errorf("loading target: %w", err)
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, targetID).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("checking follow state: %w", err)
	}
	if existing > 0 {
		return apierrors.Conflict("already following this user")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Follow{FollowerID: followerID, FolloweeID: targetID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", targetID).
			UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error
	})
	if err != nil {
		return fmt.Errorf("creating follow: %w", err)
	}

	if s.notifications != nil {
		_, err := s.notifications.Create(ctx, notify.CreateParams{
			RecipientID: targetID,
			SenderID:    followerID,
			Type:        models.NotificationFollow,
		})
		if err != nil {
			logger.Log.Warn("Follow notification failed",
				logger.WithUserID(targetID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Unfollow removes the edge and decrements both counters
// transactionally. Unfollowing never notifies.
func (s *Service) Unfollow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return apierrors.BadRequest("cannot unfollow yourself")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("follower_id = ? AND followee_id = ?", followerID, targetID).
			Delete(&models.Follow{})
		if result.Error != nil {
			return fmt.Errorf("removing follow: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.Conflict("not following this user")
		}

		if err := tx.Model(&models.User{}).Where("id = ? AND following_count > 0", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ? AND follower_count > 0", targetID).
			UpdateColumn("follower_count", gorm.Expr("follower_count - 1")).Error
	})
}

// IsFollowing reports whether follower currently follows target
func (s *Service) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking follow state: %w", err)
	}
	return count > 0, nil
}

// LikeResult is returned by the like toggles so callers can render the
// new state without a second read.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// TogglePostLike adds the user to the post's like set, or removes them
// if already present. Adding fires a like notification unless the liker
// is the post's author; removing never notifies.
func (s *Service) TogglePostLike(ctx context.Context, postID, userID string) (*LikeResult, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.NotFound("post")
		}
		return nil, fmt.Errorf("loading post: %w", err)
	}

	var existing models.PostLike
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&existing).Error

	switch {
	case err == nil:
		// Unlike
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
		})
		if txErr != nil {
			return nil, fmt.Errorf("removing like: %w", txErr)
		}
		return s.postLikeResult(ctx, postID, false)

	case err == gorm.ErrRecordNotFound:
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
		})
		if txErr != nil {
			return nil, fmt.Errorf("adding like: %w", txErr)
		}

		if s.notifications != nil && post.AuthorID != userID {
			_, err := s.notifications.Create(ctx, notify.CreateParams{
				RecipientID: post.AuthorID,
				SenderID:    userID,
				Type:        models.NotificationLike,
				PostID:      &post.ID,
			})
			if err != nil {
				logger.Log.Warn("Like notification failed",
					logger.WithPostID(postID),
					zap.Error(err),
				)
			}
		}
		return s.postLikeResult(ctx, postID, true)

	default:
		return nil, fmt.Errorf("checking like state: %w", err)
	}
}

// ToggleCommentLike mirrors TogglePostLike for comments. The like
// notification carries both the comment and its post for context.
func (s *Service) ToggleCommentLike(ctx context.Context, commentID, userID string) (*LikeResult, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.NotFound("comment")
		}
		return nil, fmt.Errorf("loading comment: %w", err)
	}

	var existing models.CommentLike
	err := s.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		First(&existing).Error

	switch {
	case err == nil:
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return tx.Model(&models.Comment{}).Where("id = ? AND like_count > 0", commentID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
		})
		if txErr != nil {
			return nil, fmt.Errorf("removing like: %w", txErr)
		}
		return s.commentLikeResult(ctx, commentID, false)

	case err == gorm.ErrRecordNotFound:
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&models.CommentLike{CommentID: commentID, UserID: userID}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Comment{}).Where("id = ?", commentID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
		})
		if txErr != nil {
			return nil, fmt.Errorf("adding like: %w", txErr)
		}

		if s.notifications != nil && comment.AuthorID != userID {
			_, err := s.notifications.Create(ctx, notify.CreateParams{
				RecipientID: comment.AuthorID,
				SenderID:    userID,
				Type:        models.NotificationLike,
				PostID:      &comment.PostID,
				CommentID:   &comment.ID,
			})
			if err != nil {
				logger.Log.Warn("Comment like notification failed",
					zap.String("comment_id", commentID),
					zap.Error(err),
				)
			}
		}
		return s.commentLikeResult(ctx, commentID, true)

	default:
		return nil, fmt.Errorf("checking like state: %w", err)
	}
}

func (s *Service) postLikeResult(ctx context.Context, postID string, liked bool) (*LikeResult, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id, like_count").First(&post, "id = ?", postID).Error; err != nil {
		return nil, fmt.Errorf("reloading post: %w", err)
	}
	return &LikeResult{Liked: liked, LikeCount: post.LikeCount}, nil
}

func (s *Service) commentLikeResult(ctx context.Context, commentID string, liked bool) (*LikeResult, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Select("id, like_count").First(&comment, "id = ?", commentID).Error; err != nil {
		return nil, fmt.Errorf("reloading comment: %w", err)
	}
	return &LikeResult{Liked: liked, LikeCount: comment.LikeCount}, nil
}

// RecountPostLikes recomputes a post's cached like count from the like
// rows. Used to repair drift, never in the request path.
func (s *Service) RecountPostLikes(ctx context.Context, postID string) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("like_count", s.db.Model(&models.PostLike{}).
			Select("COUNT(*)").Where("post_id = ?", postID)).Error
}

// RecountCommentLikes recomputes a comment's cached like count
func (s *Service) RecountCommentLikes(ctx context.Context, commentID string) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", commentID).
		UpdateColumn("like_count", s.db.Model(&models.CommentLike{}).
			Select("COUNT(*)").Where("comment_id = ?", commentID)).Error
}

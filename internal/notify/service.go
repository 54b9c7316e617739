// Package notify is the notification engine: it turns domain events
// into persisted notifications, suppresses noise, tracks read state and
// paginates a user's feed. Persistence is at-least-once; the realtime
// push that follows a successful insert is best-effort and independent.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/yocodex/backend/internal/cache"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"github.com/yocodex/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DedupWindow is the span during which repeated like/follow events for
// the same (recipient, sender, post, comment) tuple collapse into the
// existing notification.
const DedupWindow = 24 * time.Hour

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	unreadCountTTL = 30 * time.Second
)

// Dispatcher pushes a freshly created notification to the recipient's
// live connections. Implementations must not block and must swallow
// delivery failures.
type Dispatcher interface {
	EmitToUser(userID string, event string, payload interface{})
}

// Service is the notification engine
type Service struct {
	db         *gorm.DB
	dispatcher Dispatcher
	cache      *cache.Manager
}

// NewService creates a notification service. dispatcher and cacheManager
// may be nil; pushes are then skipped and counts always hit the store.
func NewService(db *gorm.DB, dispatcher Dispatcher, cacheManager *cache.Manager) *Service {
	return &Service{
		db:         db,
		dispatcher: dispatcher,
		cache:      cacheManager,
	}
}

// CreateParams describes one delivery-worthy event
type CreateParams struct {
	RecipientID string
	SenderID    string
	Type        models.NotificationType
	PostID      *string
	CommentID   *string
}

// Create persists a notification for the event, unless it is a
// self-action (nil, nil) or a duplicate within the dedup window (the
// existing row is returned unchanged). On success the notification is
// pushed to the recipient's live connections; push failures never roll
// back the row.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Notification, error) {
	if !p.Type.Valid() {
		return nil, apierrors.ValidationError("type", fmt.Sprintf("unknown notification type %q", p.Type))
	}
	if p.RecipientID == "" {
		return nil, apierrors.ValidationError("recipient", "recipient is required")
	}
	if p.SenderID == "" {
		return nil, apierrors.ValidationError("sender", "sender is required")
	}

	// Self-actions never notify
	if p.RecipientID == p.SenderID {
		return nil, nil
	}

	// A like or comment notification must carry its triggering post
	switch p.Type {
	case models.NotificationLike, models.NotificationComment:
		if p.PostID == nil && p.CommentID == nil {
			return nil, apierrors.ValidationError("post", "post reference is required")
		}
	}

	var sender models.User
	if err := s.db.WithContext(ctx).First(&sender, "id = ?", p.SenderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.NotFound("sender")
		}
		return nil, fmt.Errorf("loading sender: %w", err)
	}

	var recipientCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", p.RecipientID).Count(&recipientCount).Error; err != nil {
		return nil, fmt.Errorf("checking recipient: %w", err)
	}
	if recipientCount == 0 {
		return nil, apierrors.NotFound("recipient")
	}

	// Dedup check for noisy types. The check and the insert are not
	// atomic: two concurrent calls can both pass and both insert. The
	// contract is at-most-roughly-one, so that race is accepted.
	if p.Type.Deduplicates() {
		existing, err := s.findRecentDuplicate(ctx, p)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			metrics.RecordNotificationDeduplicated(string(p.Type))
			return existing, nil
		}
	}

	message, err := s.renderMessage(ctx, p, &sender)
	if err != nil {
		return nil, err
	}

	notification := &models.Notification{
		RecipientID: p.RecipientID,
		SenderID:    &p.SenderID,
		Type:        p.Type,
		PostID:      p.PostID,
		CommentID:   p.CommentID,
		Message:     message,
		IsRead:      false,
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}

	notification.Sender = &sender
	metrics.RecordNotificationCreated(string(p.Type))

	s.invalidateUnreadCount(ctx, p.RecipientID)
	s.push(notification)

	return notification, nil
}

// CreateBatch creates notifications for several events, used for
// @mention fan-out. Per-item suppression applies; items that fail
// validation are skipped with a log line rather than failing the batch.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) []*models.Notification {
	created := make([]*models.Notification, 0, len(params))
	for _, p := range params {
		n, err := s.Create(ctx, p)
		if err != nil {
			logger.Log.Warn("Skipping notification in batch",
				logger.WithUserID(p.RecipientID),
				zap.String("type", string(p.Type)),
				zap.Error(err),
			)
			continue
		}
		if n != nil {
			created = append(created, n)
		}
	}
	return created
}

// findRecentDuplicate looks for an identical event tuple inside the
// dedup window.
func (s *Service) findRecentDuplicate(ctx context.Context, p CreateParams) (*models.Notification, error) {
	q := s.db.WithContext(ctx).
		Where("recipient_id = ? AND sender_id = ? AND type = ?", p.RecipientID, p.SenderID, p.Type).
		Where("created_at >= ?", time.Now().UTC().Add(-DedupWindow))

	if p.PostID != nil {
		q = q.Where("post_id = ?", *p.PostID)
	} else {
		q = q.Where("post_id IS NULL")
	}
	if p.CommentID != nil {
		q = q.Where("comment_id = ?", *p.CommentID)
	} else {
		q = q.Where("comment_id IS NULL")
	}

	var existing models.Notification
	err := q.First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	return &existing, nil
}

// renderMessage resolves the post title and comment content the
// template needs, then renders once.
func (s *Service) renderMessage(ctx context.Context, p CreateParams, sender *models.User) (string, error) {
	params := MessageParams{
		Type:       p.Type,
		SenderName: sender.Name(),
	}

	if p.PostID != nil {
		var post models.Post
		if err := s.db.WithContext(ctx).Select("id, title").First(&post, "id = ?", *p.PostID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return "", apierrors.NotFound("post")
			}
			return "", fmt.Errorf("loading post: %w", err)
		}
		params.PostTitle = post.Title
	}

	if p.CommentID != nil {
		var comment models.Comment
		if err := s.db.WithContext(ctx).Select("id, content").First(&comment, "id = ?", *p.CommentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return "", apierrors.NotFound("comment")
			}
			return "", fmt.Errorf("loading comment: %w", err)
		}
		params.CommentContent = comment.Content
	}

	return RenderMessage(params), nil
}

// push delivers best-effort to the recipient's live connections
func (s *Service) push(n *models.Notification) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.EmitToUser(n.RecipientID, "notification", n)
	metrics.RecordNotificationPushed(string(n.Type))
}

// MarkAsRead flips one notification to read. Ownership is part of the
// query so a wrong owner gets the same answer as a missing id. Marking
// an already-read notification is a no-op that still succeeds.
func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&notification).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apierrors.NotFound("notification")
	}
	if err != nil {
		return nil, fmt.Errorf("loading notification: %w", err)
	}

	if notification.IsRead {
		return &notification, nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"is_read": true, "read_at": now}
	if err := s.db.WithContext(ctx).Model(&notification).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now

	s.invalidateUnreadCount(ctx, userID)

	return &notification, nil
}

// MarkAllAsRead bulk-flips every unread notification for the user and
// returns the number changed. No per-row push events; a single badge
// update frame is emitted instead.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("marking all read: %w", result.Error)
	}

	s.invalidateUnreadCount(ctx, userID)

	if s.dispatcher != nil && result.RowsAffected > 0 {
		s.dispatcher.EmitToUser(userID, "notification_count", map[string]int64{"unread_count": 0})
	}

	return result.RowsAffected, nil
}

// ListOptions control feed pagination
type ListOptions struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// Feed is one page of a user's notifications plus the counts clients
// need for badges, independent of the page window.
type Feed struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Page          int                   `json:"page"`
	Pages         int                   `json:"pages"`
	HasNextPage   bool                  `json:"has_next_page"`
	HasPrevPage   bool                  `json:"has_prev_page"`
}

// List returns one page of the user's notifications, newest first.
// Ordering is deterministic even for same-timestamp inserts because the
// id breaks ties.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) (*Feed, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = defaultPageLimit
	}
	if opts.Limit > maxPageLimit {
		opts.Limit = maxPageLimit
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if opts.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}

	var notifications []models.Notification
	err := query.
		Preload("Sender").
		Preload("Post").
		Preload("Comment").
		Order("created_at DESC, id DESC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	unreadCount, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))

	return &Feed{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          opts.Page,
		Pages:         pages,
		HasNextPage:   opts.Page < pages,
		HasPrevPage:   opts.Page > 1,
	}, nil
}

// UnreadCount returns the number of unread notifications, served from
// cache when fresh.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	key := cache.Key("notify:unread", userID)

	var cached int64
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}

	s.cache.SetJSON(ctx, key, count, unreadCountTTL)

	return count, nil
}

// Delete removes one notification, scoped to its owner
func (s *Service) Delete(ctx context.Context, notificationID, userID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("deleting notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apierrors.NotFound("notification")
	}

	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// DeleteAll removes every notification for the user and returns the
// number removed.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting notifications: %w", result.Error)
	}

	s.invalidateUnreadCount(ctx, userID)
	return result.RowsAffected, nil
}

// CleanupOld removes notifications that are BOTH older than maxAge and
// already read. Unread notifications are never swept regardless of age.
func (s *Service) CleanupOld(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	result := s.db.WithContext(ctx).
		Where("created_at < ? AND is_read = ?", cutoff, true).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleaning up notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) invalidateUnreadCount(ctx context.Context, userID string) {
	s.cache.Invalidate(ctx, cache.Key("notify:unread", userID))
}

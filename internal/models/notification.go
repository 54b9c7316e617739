package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType is the closed set of events worth surfacing to a user.
// New kinds are added here, never as ad-hoc strings at call sites.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Valid reports whether t is a member of the closed enum
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFollow, NotificationMention:
		return true
	}
	return false
}

// Deduplicates reports whether repeated events of this type within the
// dedup window collapse into one notification. Likes and follows are
// noise when repeated; each comment or mention is a distinct event.
func (t NotificationType) Deduplicates() bool {
	return t == NotificationLike || t == NotificationFollow
}

// Notification represents one delivery-worthy event for a recipient.
// The recipient owns read-state; the sender has no write access after
// creation.
type Notification struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string `gorm:"not null;index:idx_notifications_recipient_created" json:"recipient_id"`
	Recipient   User   `gorm:"foreignKey:RecipientID" json:"-"`

	// SenderID is null only for system-originated notifications
	SenderID *string `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	Sender   *User   `gorm:"foreignKey:SenderID" json:"sender,omitempty"`

	Type NotificationType `gorm:"type:varchar(20);not null;index" json:"type"`

	PostID *string `gorm:"type:uuid;index" json:"post_id,omitempty"`
	Post   *Post   `gorm:"foreignKey:PostID" json:"post,omitempty"`

	CommentID *string  `gorm:"type:uuid;index" json:"comment_id,omitempty"`
	Comment   *Comment `gorm:"foreignKey:CommentID" json:"comment,omitempty"`

	// Message is rendered once at creation time and never regenerated
	Message string `gorm:"type:text;not null" json:"message"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	// CreatedAt is the feed sort key and immutable after insert
	CreatedAt time.Time `gorm:"index:idx_notifications_recipient_created,sort:desc" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentDepth bounds reply nesting. A reply to a depth-3 comment is
// rejected by the handler, not silently re-parented.
const MaxCommentDepth = 3

// Comment represents a comment on a Post
type Comment struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string `gorm:"not null;index" json:"post_id"`
	Post     Post   `gorm:"foreignKey:PostID" json:"-"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	// ParentID is null for top-level comments
	ParentID *string    `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent   *Comment   `gorm:"foreignKey:ParentID" json:"-"`
	Replies  []*Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`

	// Depth is 0 for top-level comments and parent.Depth+1 for replies
	Depth int `gorm:"default:0" json:"depth"`

	LikeCount int `gorm:"default:0" json:"like_count"`

	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommentLike records one user's like on a comment, unique per pair
type CommentLike struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	CommentID string  `gorm:"not null;index:idx_comment_likes_unique,unique" json:"comment_id"`
	Comment   Comment `gorm:"foreignKey:CommentID" json:"-"`
	UserID    string  `gorm:"not null;index:idx_comment_likes_unique,unique" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (cl *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == "" {
		cl.ID = generateUUID()
	}
	return nil
}

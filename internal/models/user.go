package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SocialLinks stores a user's external profile links
type SocialLinks struct {
	Twitter string `json:"twitter,omitempty"`
	GitHub  string `json:"github,omitempty"`
	Website string `json:"website,omitempty"`
}

// User represents a YoCodex account
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url"`

	PasswordHash *string      `gorm:"type:text" json:"-"`
	SocialLinks  *SocialLinks `gorm:"type:jsonb;serializer:json" json:"social_links,omitempty"`

	// Cached counters maintained by the social mutator inside the same
	// transaction as the follows row, never written anywhere else.
	FollowerCount  int `gorm:"default:0" json:"follower_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`
	PostCount      int `gorm:"default:0" json:"post_count"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Name returns the user's preferred display string
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Follow is one edge of the social graph. A single row carries both
// directions of the relationship, so A-follows-B can never be observed
// from one side only.
type Follow struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID string `gorm:"not null;index:idx_follows_unique,unique" json:"follower_id"`
	Follower   User   `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	FolloweeID string `gorm:"not null;index:idx_follows_unique,unique" json:"followee_id"`
	Followee   User   `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the join table name stable across models
func (Follow) TableName() string {
	return "follows"
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}

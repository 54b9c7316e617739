package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostStatus represents the publication state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// Post represents a published article
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Title   string `gorm:"not null" json:"title"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Content string `gorm:"type:text;not null" json:"content"`
	Excerpt string `gorm:"type:text" json:"excerpt"`

	Status PostStatus `gorm:"type:varchar(20);default:draft;index" json:"status"`

	Categories []*Category `gorm:"many2many:post_categories" json:"categories,omitempty"`
	Tags       []*Tag      `gorm:"many2many:post_tags" json:"tags,omitempty"`

	// Cached counters, recomputed only through the social mutator
	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`

	PublishedAt *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostLike records one user's like on a post. The (post, user) pair is
// unique, which is what makes the like list a set.
type PostLike struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;index:idx_post_likes_unique,unique" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"not null;index:idx_post_likes_unique,unique" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// Tag is a free-form label attached to posts
type Tag struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string `gorm:"uniqueIndex;not null" json:"slug"`
	PostCount int    `gorm:"default:0" json:"post_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a curated section posts are filed under
type Category struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	PostCount   int    `gorm:"default:0" json:"post_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const excerptLen = 200

// DeriveExcerpt produces the stored excerpt from post content: the
// first excerptLen runes with an ellipsis when truncated.
func DeriveExcerpt(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= excerptLen {
		return content
	}
	return strings.TrimSpace(string(runes[:excerptLen])) + "..."
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL-safe slug
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (pl *PostLike) BeforeCreate(tx *gorm.DB) error {
	if pl.ID == "" {
		pl.ID = generateUUID()
	}
	return nil
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// Package seed fills a development database with realistic users,
// posts, comments and the social graph between them, exercising the
// same services the API uses so counters and notifications line up.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/models"
	"github.com/yocodex/backend/internal/notify"
	"github.com/yocodex/backend/internal/social"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db            *gorm.DB
	social        *social.Service
	notifications *notify.Service
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	notifications := notify.NewService(db, nil, nil)
	return &Seeder{
		db:            db,
		social:        social.NewService(db, notifications),
		notifications: notifications,
	}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context) error {
	logger.Log.Info("Seeding development database")

	users, err := s.seedUsers(25)
	if err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}

	posts, err := s.seedPosts(ctx, users, 60)
	if err != nil {
		return fmt.Errorf("seeding posts: %w", err)
	}

	if err := s.seedFollows(ctx, users); err != nil {
		return fmt.Errorf("seeding follows: %w", err)
	}

	if err := s.seedEngagement(ctx, users, posts); err != nil {
		return fmt.Errorf("seeding engagement: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

func (s *Seeder) seedUsers(count int) ([]*models.User, error) {
	// Every seed user shares one password for easy local login
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
		user := &models.User{
			Email:        fmt.Sprintf("%s@example.com", username),
			Username:     username,
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.Sentence(12),
			PasswordHash: &hashStr,
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User, count int) ([]*models.Post, error) {
	categories, tags, err := s.seedTaxonomy()
	if err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		title := gofakeit.Sentence(5)
		content := gofakeit.Paragraph(3, 5, 12, "\n\n")

		now := time.Now().Add(-time.Duration(rand.Intn(60*24)) * time.Hour)
		post := &models.Post{
			AuthorID:    author.ID,
			Title:       title,
			Slug:        fmt.Sprintf("%s-%d", models.Slugify(title), i),
			Content:     content,
			Excerpt:     models.DeriveExcerpt(content),
			Status:      models.PostStatusPublished,
			PublishedAt: &now,
			Categories:  []*models.Category{categories[rand.Intn(len(categories))]},
			Tags:        []*models.Tag{tags[rand.Intn(len(tags))], tags[rand.Intn(len(tags))]},
		}
		if err := s.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	for _, user := range users {
		err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
			UpdateColumn("post_count", s.db.Model(&models.Post{}).
				Select("COUNT(*)").Where("author_id = ?", user.ID)).Error
		if err != nil {
			return nil, err
		}
	}

	for _, category := range categories {
		if err := s.recountTaxonomy(&models.Category{}, "post_categories", "category_id", category.ID); err != nil {
			return nil, err
		}
	}
	for _, tag := range tags {
		if err := s.recountTaxonomy(&models.Tag{}, "post_tags", "tag_id", tag.ID); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Seeder) seedTaxonomy() ([]*models.Category, []*models.Tag, error) {
	categoryNames := []string{"Engineering", "Design", "Culture", "Product"}
	categories := make([]*models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category := &models.Category{
			Name:        name,
			Slug:        models.Slugify(name),
			Description: gofakeit.Sentence(8),
		}
		if err := s.db.Create(category).Error; err != nil {
			return nil, nil, err
		}
		categories = append(categories, category)
	}

	tagNames := []string{"golang", "databases", "frontend", "career", "opinion", "tutorial"}
	tags := make([]*models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tag := &models.Tag{Name: name, Slug: models.Slugify(name)}
		if err := s.db.Create(tag).Error; err != nil {
			return nil, nil, err
		}
		tags = append(tags, tag)
	}
	return categories, tags, nil
}

func (s *Seeder) recountTaxonomy(model interface{}, joinTable, joinCol, id string) error {
	return s.db.Model(model).Where("id = ?", id).
		UpdateColumn("post_count", s.db.Table(joinTable).
			Select("COUNT(*)").
			Where(fmt.Sprintf("%s = ?", joinCol), id)).Error
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) error {
	for _, follower := range users {
		// Each user follows a handful of others
		for i := 0; i < 3+rand.Intn(5); i++ {
			target := users[rand.Intn(len(users))]
			if target.ID == follower.ID {
				continue
			}
			// Already-following conflicts are expected with random picks
			_ = s.social.Follow(ctx, follower.ID, target.ID)
		}
	}
	return nil
}

func (s *Seeder) seedEngagement(ctx context.Context, users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		for i := 0; i < rand.Intn(8); i++ {
			liker := users[rand.Intn(len(users))]
			if _, err := s.social.TogglePostLike(ctx, post.ID, liker.ID); err != nil {
				return err
			}
		}

		for i := 0; i < rand.Intn(4); i++ {
			commenter := users[rand.Intn(len(users))]
			comment := &models.Comment{
				PostID:   post.ID,
				AuthorID: commenter.ID,
				Content:  gofakeit.Sentence(10),
			}
			if err := s.db.Create(comment).Error; err != nil {
				return err
			}
			if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
				return err
			}

			_, err := s.notifications.Create(ctx, notify.CreateParams{
				RecipientID: post.AuthorID,
				SenderID:    commenter.ID,
				Type:        models.NotificationComment,
				PostID:      &post.ID,
				CommentID:   &comment.ID,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

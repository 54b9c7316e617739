package social

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/models"
	"github.com/yocodex/backend/internal/notify"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	_ = logger.Initialize("error", "/tmp/yocodex-social-test.log")
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Notification{},
	)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Post {
	post := &models.Post{
		AuthorID: author.ID,
		Title:    title,
		Slug:     models.Slugify(title),
		Content:  "content",
		Status:   models.PostStatusPublished,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := setupTestDB(t)
	notifyService := notify.NewService(db, nil, nil)
	return NewService(db, notifyService), db
}

func reload(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	return &fresh
}

func TestFollow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))

	// Edge row plus both counters
	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
	assert.Equal(t, 1, reload(t, db, alice).FollowingCount)
	assert.Equal(t, 1, reload(t, db, bob).FollowerCount)

	// Follow notification landed for bob
	var n models.Notification
	require.NoError(t, db.First(&n, "recipient_id = ?", bob.ID).Error)
	assert.Equal(t, models.NotificationFollow, n.Type)
}

func TestFollowSelf(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	err := svc.Follow(ctx, alice.ID, alice.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrBadRequest))
}

func TestFollowPairUniqueInSchema(t *testing.T) {
	_, db := newTestService(t)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	// Even bypassing the service, a second identical edge must violate
	// the composite index rather than silently duplicate.
	require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FolloweeID: bob.ID}).Error)
	err := db.Create(&models.Follow{FollowerID: alice.ID, FolloweeID: bob.ID}).Error
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", alice.ID, bob.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFollowTwice(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))

	err := svc.Follow(ctx, alice.ID, bob.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrConflict))

	// Counters unchanged by the rejected call
	assert.Equal(t, 1, reload(t, db, bob).FollowerCount)
}

func TestFollowMissingUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	err := svc.Follow(ctx, alice.ID, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))
}

func TestUnfollow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Equal(t, 0, reload(t, db, alice).FollowingCount)
	assert.Equal(t, 0, reload(t, db, bob).FollowerCount)
}

func TestUnfollowNotFollowing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	err := svc.Unfollow(ctx, alice.ID, bob.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrConflict))
}

func TestTogglePostLike(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")
	post := createTestPost(t, db, author, "Liked Post")

	// Like
	result, err := svc.TogglePostLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikeCount)

	var n models.Notification
	require.NoError(t, db.First(&n, "recipient_id = ?", author.ID).Error)
	assert.Equal(t, models.NotificationLike, n.Type)

	// Unlike
	result, err = svc.TogglePostLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikeCount)

	// Like again: dedup window keeps the notification count at one
	result, err = svc.TogglePostLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ?", author.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTogglePostLikeOwnPost(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author, "Own Post")

	result, err := svc.TogglePostLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)

	// Liking your own post never notifies
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTogglePostLikeMissingPost(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reader := createTestUser(t, db, "reader")

	_, err := svc.TogglePostLike(ctx, "00000000-0000-0000-0000-000000000000", reader.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))
}

func TestToggleCommentLike(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")
	post := createTestPost(t, db, author, "Thread")

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Content:  "first",
	}
	require.NoError(t, db.Create(comment).Error)

	result, err := svc.ToggleCommentLike(ctx, comment.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikeCount)

	// The like notification carries both comment and post context
	var n models.Notification
	require.NoError(t, db.First(&n, "recipient_id = ?", author.ID).Error)
	assert.Equal(t, models.NotificationLike, n.Type)
	require.NotNil(t, n.CommentID)
	assert.Equal(t, comment.ID, *n.CommentID)
	require.NotNil(t, n.PostID)
	assert.Equal(t, post.ID, *n.PostID)

	result, err = svc.ToggleCommentLike(ctx, comment.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikeCount)
}

func TestRecountPostLikes(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author, "Drifted")

	for _, name := range []string{"u1", "u2", "u3"} {
		u := createTestUser(t, db, name)
		require.NoError(t, db.Create(&models.PostLike{PostID: post.ID, UserID: u.ID}).Error)
	}

	// Counter drifted to a wrong value
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("like_count", 99).Error)

	require.NoError(t, svc.RecountPostLikes(ctx, post.ID))

	var fresh models.Post
	require.NoError(t, db.First(&fresh, "id = ?", post.ID).Error)
	assert.Equal(t, 3, fresh.LikeCount)
}

func TestFollowersAndFollowing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	require.NoError(t, svc.Follow(ctx, bob.ID, alice.ID))
	require.NoError(t, svc.Follow(ctx, carol.ID, alice.ID))
	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))

	followers, err := svc.Followers(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, followers.Total)
	names := []string{followers.Users[0].Username, followers.Users[1].Username}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	following, err := svc.Following(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, following.Total)
	assert.Equal(t, "bob", following.Users[0].Username)
}

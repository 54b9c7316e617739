package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yocodex/backend/internal/errors"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"github.com/yocodex/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	_ = logger.Initialize("error", "/tmp/yocodex-notify-test.log")
}

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Notification{},
	)
	require.NoError(t, err)

	return db
}

// fakeDispatcher records every emit for assertions
type fakeDispatcher struct {
	mu     sync.Mutex
	emits  []fakeEmit
	closed bool
}

type fakeEmit struct {
	UserID  string
	Event   string
	Payload interface{}
}

func (f *fakeDispatcher) EmitToUser(userID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, fakeEmit{UserID: userID, Event: event, Payload: payload})
}

func (f *fakeDispatcher) emitsFor(userID string) []fakeEmit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeEmit
	for _, e := range f.emits {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
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
		Content:  "content of " + title,
		Status:   models.PostStatusPublished,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeDispatcher) {
	db := setupTestDB(t)
	dispatcher := &fakeDispatcher{}
	return NewService(db, dispatcher, nil), db, dispatcher
}

func TestCreateLikeNotification(t *testing.T) {
	svc, db, dispatcher := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "alice")
	liker := createTestUser(t, db, "bob")
	post := createTestPost(t, db, author, "Hello World")

	n, err := svc.Create(ctx, CreateParams{
		RecipientID: author.ID,
		SenderID:    liker.ID,
		Type:        models.NotificationLike,
		PostID:      &post.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, author.ID, n.RecipientID)
	assert.Equal(t, models.NotificationLike, n.Type)
	assert.False(t, n.IsRead)
	assert.Equal(t, `bob liked your post "Hello World"`, n.Message)

	// Pushed to the recipient's live connections
	emits := dispatcher.emitsFor(author.ID)
	require.Len(t, emits, 1)
	assert.Equal(t, "notification", emits[0].Event)
}

func TestPushedMetricCountsHubHandoffs(t *testing.T) {
	svc, db, dispatcher := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "alice")
	liker := createTestUser(t, db, "bob")
	post := createTestPost(t, db, author, "Hello World")

	counter := metrics.Get().NotificationsPushedTotal.WithLabelValues(string(models.NotificationLike))
	before := testutil.ToFloat64(counter)

	_, err := svc.Create(ctx, CreateParams{
		RecipientID: author.ID,
		SenderID:    liker.ID,
		Type:        models.NotificationLike,
		PostID:      &post.ID,
	})
	require.NoError(t, err)

	// One hand-off per insert, whether or not the recipient is online
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Len(t, dispatcher.emitsFor(author.ID), 1)
}

func TestCreateSelfActionSuppressed(t *testing.T) {
	svc, db, dispatcher := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "alice")
	post := createTestPost(t, db, author, "My Post")

	n, err := svc.Create(ctx, CreateParams{
		RecipientID: author.ID,
		SenderID:    author.ID,
		Type:        models.NotificationLike,
		PostID:      &post.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, n)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, dispatcher.emitsFor(author.ID))
}

func TestCreateValidation(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	_, err := svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        "shouted",
	})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrValidation))

	// Like without a post reference
	_, err = svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        models.NotificationLike,
	})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrValidation))

	// Missing sender row
	_, err = svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    "00000000-0000-0000-0000-000000000000",
		Type:        models.NotificationFollow,
	})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))
}

func TestLikeNotificationDeduplicated(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "alice")
	liker := createTestUser(t, db, "bob")
	post := createTestPost(t, db, author, "Hot Take")

	params := CreateParams{
		RecipientID: author.ID,
		SenderID:    liker.ID,
		Type:        models.NotificationLike,
		PostID:      &post.ID,
	}

	first, err := svc.Create(ctx, params)
	require.NoError(t, err)
	second, err := svc.Create(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDedupWindowExpires(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	follower := createTestUser(t, db, "bob")
	followed := createTestUser(t, db, "alice")

	params := CreateParams{
		RecipientID: followed.ID,
		SenderID:    follower.ID,
		Type:        models.NotificationFollow,
	}

	first, err := svc.Create(ctx, params)
	require.NoError(t, err)

	// Age the first notification past the window
	old := time.Now().Add(-DedupWindow - time.Hour)
	require.NoError(t, db.Model(&models.Notification{}).
		Where("id = ?", first.ID).
		UpdateColumn("created_at", old).Error)

	second, err := svc.Create(ctx, params)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCommentNotificationsNeverDeduplicated(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "alice")
	commenter := createTestUser(t, db, "bob")
	post := createTestPost(t, db, author, "Discussion")

	params := CreateParams{
		RecipientID: author.ID,
		SenderID:    commenter.ID,
		Type:        models.NotificationComment,
		PostID:      &post.ID,
	}

	first, err := svc.Create(ctx, params)
	require.NoError(t, err)
	second, err := svc.Create(ctx, params)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestMarkAsRead(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	n, err := svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        models.NotificationFollow,
	})
	require.NoError(t, err)

	read, err := svc.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	firstReadAt := *read.ReadAt

	// Idempotent: marking again succeeds and keeps the original ReadAt
	again, err := svc.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)
	require.NotNil(t, again.ReadAt)
	assert.WithinDuration(t, firstReadAt, *again.ReadAt, time.Second)
}

func TestMarkAsReadOwnership(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	eve := createTestUser(t, db, "eve")

	n, err := svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        models.NotificationFollow,
	})
	require.NoError(t, err)

	// Wrong owner gets the same answer as a missing id
	_, err = svc.MarkAsRead(ctx, n.ID, eve.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", n.ID).Error)
	assert.False(t, stored.IsRead)
}

func TestMarkAllAsRead(t *testing.T) {
	svc, db, dispatcher := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, bob, "Post")

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateParams{
			RecipientID: alice.ID,
			SenderID:    bob.ID,
			Type:        models.NotificationComment,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	count, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Second call is a no-op and emits no extra badge frame
	badgeFrames := 0
	for _, e := range dispatcher.emitsFor(alice.ID) {
		if e.Event == "notification_count" {
			badgeFrames++
		}
	}
	assert.Equal(t, 1, badgeFrames)

	updated, err = svc.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestListPagination(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, "Popular")

	// Comments never dedup, so 25 distinct notifications
	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, CreateParams{
			RecipientID: alice.ID,
			SenderID:    bob.ID,
			Type:        models.NotificationComment,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
	}

	page1, err := svc.List(ctx, alice.ID, ListOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Notifications, 10)
	assert.EqualValues(t, 25, page1.Total)
	assert.EqualValues(t, 25, page1.UnreadCount)
	assert.Equal(t, 3, page1.Pages)
	assert.True(t, page1.HasNextPage)
	assert.False(t, page1.HasPrevPage)

	page3, err := svc.List(ctx, alice.ID, ListOptions{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page3.Notifications, 5)
	assert.False(t, page3.HasNextPage)
	assert.True(t, page3.HasPrevPage)

	// Newest first, ids break timestamp ties, so pages never overlap
	seen := make(map[string]bool)
	for _, p := range []*Feed{page1, page3} {
		for _, n := range p.Notifications {
			assert.False(t, seen[n.ID], "notification %s appeared twice", n.ID)
			seen[n.ID] = true
		}
	}
}

func TestListUnreadOnly(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, "Thread")

	var first *models.Notification
	for i := 0; i < 3; i++ {
		n, err := svc.Create(ctx, CreateParams{
			RecipientID: alice.ID,
			SenderID:    bob.ID,
			Type:        models.NotificationComment,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
		if first == nil {
			first = n
		}
	}

	_, err := svc.MarkAsRead(ctx, first.ID, alice.ID)
	require.NoError(t, err)

	feed, err := svc.List(ctx, alice.ID, ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, feed.Total)
	for _, n := range feed.Notifications {
		assert.False(t, n.IsRead)
	}
}

func TestListIsolatedPerUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	_, err := svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        models.NotificationFollow,
	})
	require.NoError(t, err)

	feed, err := svc.List(ctx, carol.ID, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, feed.Notifications)
	assert.Zero(t, feed.Total)
}

func TestDelete(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	n, err := svc.Create(ctx, CreateParams{
		RecipientID: alice.ID,
		SenderID:    bob.ID,
		Type:        models.NotificationFollow,
	})
	require.NoError(t, err)

	// Wrong owner cannot delete
	err = svc.Delete(ctx, n.ID, bob.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, n.ID, alice.ID))

	err = svc.Delete(ctx, n.ID, alice.ID)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrNotFound))
}

func TestCleanupOldRemovesOnlyReadAndOld(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, "Archive")

	mk := func() *models.Notification {
		n, err := svc.Create(ctx, CreateParams{
			RecipientID: alice.ID,
			SenderID:    bob.ID,
			Type:        models.NotificationComment,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
		return n
	}

	oldRead := mk()
	oldUnread := mk()
	freshRead := mk()

	_, err := svc.MarkAsRead(ctx, oldRead.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.MarkAsRead(ctx, freshRead.ID, alice.ID)
	require.NoError(t, err)

	old := time.Now().Add(-40 * 24 * time.Hour)
	for _, id := range []string{oldRead.ID, oldUnread.ID} {
		require.NoError(t, db.Model(&models.Notification{}).
			Where("id = ?", id).
			UpdateColumn("created_at", old).Error)
	}

	removed, err := svc.CleanupOld(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	ids := make([]string, 0, len(remaining))
	for _, n := range remaining {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{oldUnread.ID, freshRead.ID}, ids)
}

func TestCreateBatchSkipsFailures(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	params := []CreateParams{
		{RecipientID: alice.ID, SenderID: bob.ID, Type: models.NotificationMention},
		{RecipientID: bob.ID, SenderID: bob.ID, Type: models.NotificationMention}, // self, suppressed
		{RecipientID: carol.ID, SenderID: bob.ID, Type: "bogus"},                  // invalid, skipped
		{RecipientID: carol.ID, SenderID: bob.ID, Type: models.NotificationMention},
	}

	created := svc.CreateBatch(ctx, params)
	assert.Len(t, created, 2)
}

func TestEndToEndScenario(t *testing.T) {
	svc, db, dispatcher := newTestService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")
	post := createTestPost(t, db, author, "Launch Day")

	// Reader likes twice: one notification
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, CreateParams{
			RecipientID: author.ID,
			SenderID:    reader.ID,
			Type:        models.NotificationLike,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
	}

	// And comments twice: two notifications
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, CreateParams{
			RecipientID: author.ID,
			SenderID:    reader.ID,
			Type:        models.NotificationComment,
			PostID:      &post.ID,
		})
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	// Three inserts means three pushes
	pushes := 0
	for _, e := range dispatcher.emitsFor(author.ID) {
		if e.Event == "notification" {
			pushes++
		}
	}
	assert.Equal(t, 3, pushes)

	updated, err := svc.MarkAllAsRead(ctx, author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	count, err = svc.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListLimitClamped(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	feed, err := svc.List(ctx, alice.ID, ListOptions{Page: 0, Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Page)
	assert.Empty(t, feed.Notifications)
}

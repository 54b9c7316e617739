package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yocodex/backend/internal/models"
)

func TestRenderMessage(t *testing.T) {
	tests := []struct {
		name   string
		params MessageParams
		want   string
	}{
		{
			name: "like",
			params: MessageParams{
				Type:       models.NotificationLike,
				SenderName: "bob",
				PostTitle:  "Go Tips",
			},
			want: `bob liked your post "Go Tips"`,
		},
		{
			name: "like untitled post",
			params: MessageParams{
				Type:       models.NotificationLike,
				SenderName: "bob",
			},
			want: `bob liked your post "Untitled"`,
		},
		{
			name: "comment",
			params: MessageParams{
				Type:           models.NotificationComment,
				SenderName:     "carol",
				PostTitle:      "Go Tips",
				CommentContent: "nice one",
			},
			want: `carol commented on your post "Go Tips": "nice one"`,
		},
		{
			name: "follow",
			params: MessageParams{
				Type:       models.NotificationFollow,
				SenderName: "dave",
			},
			want: "dave started following you",
		},
		{
			name: "mention",
			params: MessageParams{
				Type:       models.NotificationMention,
				SenderName: "erin",
			},
			want: "erin mentioned you in a comment",
		},
		{
			name:   "unknown type falls back",
			params: MessageParams{Type: "waved", SenderName: "bob"},
			want:   "You received a new notification",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderMessage(tt.params))
		})
	}
}

func TestRenderMessageTruncatesLongComments(t *testing.T) {
	long := strings.Repeat("x", 80)
	msg := RenderMessage(MessageParams{
		Type:           models.NotificationComment,
		SenderName:     "bob",
		PostTitle:      "Post",
		CommentContent: long,
	})

	assert.Contains(t, msg, strings.Repeat("x", 50)+"...")
	assert.NotContains(t, msg, strings.Repeat("x", 51))
}

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"hello @alice and @bob", []string{"alice", "bob"}},
		{"@alice @alice again", []string{"alice"}},
		{"no mentions here", nil},
		{"email bob@example.com is not clean", []string{"example"}},
		{"@bob_the_builder can fix it", []string{"bob_the_builder"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMentions(tt.content), "content: %q", tt.content)
	}
}

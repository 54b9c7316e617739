package notify

import (
	"fmt"
	"regexp"

	"github.com/yocodex/backend/internal/models"
)

// commentPreviewLen bounds how much comment text is embedded in a
// notification message.
const commentPreviewLen = 50

// MessageParams are the inputs to message rendering. Rendering is a
// pure function of these values; the message is stored once and never
// regenerated.
type MessageParams struct {
	Type           models.NotificationType
	SenderName     string
	PostTitle      string
	CommentContent string
}

// RenderMessage produces the human-readable notification text. Unknown
// types fall back to a generic message instead of failing.
func RenderMessage(p MessageParams) string {
	switch p.Type {
	case models.NotificationLike:
		return fmt.Sprintf("%s liked your post %q", p.SenderName, orUntitled(p.PostTitle))
	case models.NotificationComment:
		return fmt.Sprintf("%s commented on your post %q: %q", p.SenderName, orUntitled(p.PostTitle), truncate(p.CommentContent, commentPreviewLen))
	case models.NotificationFollow:
		return fmt.Sprintf("%s started following you", p.SenderName)
	case models.NotificationMention:
		return fmt.Sprintf("%s mentioned you in a comment", p.SenderName)
	default:
		return "You received a new notification"
	}
}

func orUntitled(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)

// ExtractMentions returns the distinct @usernames referenced in a
// comment, in order of first appearance.
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var usernames []string
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		usernames = append(usernames, name)
	}
	return usernames
}

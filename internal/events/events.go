package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicCommentCreated      = "blogtalk.comment.created"
	TopicCommentEdited       = "blogtalk.comment.edited"
	TopicCommentDeleted      = "blogtalk.comment.deleted"
	TopicCommentPinned       = "blogtalk.comment.pinned"
	TopicCommentUnpinned     = "blogtalk.comment.unpinned"
	TopicNotificationCreated = "blogtalk.notification.created"

	// TopicAll matches every topic above.
	TopicAll = "blogtalk.>"
)

// CommentRef addresses a comment the way clients do.
type CommentRef struct {
	BlogSlug      string `json:"blog"`
	PostNumber    uint   `json:"post_id"`
	CommentNumber uint   `json:"comment_id"`
}

type CommentCreated struct {
	Comment   CommentRef `json:"comment"`
	AuthorID  uint       `json:"author_id"`
	ReplyTo   *uint      `json:"reply_to,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CommentEdited struct {
	Comment CommentRef `json:"comment"`
	By      uint       `json:"by"`
}

type CommentDeleted struct {
	Comment CommentRef `json:"comment"`
	By      uint       `json:"by"`
}

type CommentPinned struct {
	Comment CommentRef `json:"comment"`
	By      uint       `json:"by"`
}

type NotificationCreated struct {
	NotificationID uint       `json:"notification_id"`
	AddresseeID    uint       `json:"addressee_id"`
	Comment        CommentRef `json:"comment"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

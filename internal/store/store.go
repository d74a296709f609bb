// Package store declares the storage contracts of the comment engine.
package store

import (
	"context"
	"errors"

	"blogtalk/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyBody        = errors.New("comment body is empty")
	ErrInvalidThread    = errors.New("reply target is itself a reply")
	ErrReplyNotPinnable = errors.New("only top-level comments can be pinned")
	ErrAlreadyPinned    = errors.New("comment is already pinned")
	ErrNotPinned        = errors.New("comment is not pinned")
	ErrConflict         = errors.New("concurrent update conflict")
	// ErrInvariant means a counter/membership mismatch was caught inside a
	// transaction. It is never the caller's fault.
	ErrInvariant = errors.New("reaction counter invariant violated")
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// NewComment is the input of CommentStore.CreateComment.
type NewComment struct {
	PostID   uint
	AuthorID uint
	Body     string
	ReplyTo  *uint // comment number on the same post
}

// ListQuery selects one thread level of a post: top-level comments when
// ParentID is nil, otherwise the replies of ParentID.
type ListQuery struct {
	PostID   uint
	ParentID *uint
	Sort     Sort
	Limit    int
	Offset   int
}

// PostCatalog resolves posts with their blog, owner and co-authors loaded.
type PostCatalog interface {
	PostByNumber(ctx context.Context, blogSlug string, number uint) (*models.Post, error)
}

// IdentityStore resolves users by id or handle.
type IdentityStore interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByHandle(ctx context.Context, handle string) (*models.User, error)
}

// CommentStore owns comments, per-post numbering and the pin invariant.
// Returned comments have Author, PinnedBy and ReplyTo loaded.
type CommentStore interface {
	CreateComment(ctx context.Context, in NewComment) (*models.Comment, error)
	CommentByNumber(ctx context.Context, postID, number uint) (*models.Comment, error)
	UpdateBody(ctx context.Context, commentID uint, body string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID uint) error
	SetPinned(ctx context.Context, postID, commentID, byUserID uint) (*models.Comment, error)
	UnsetPinned(ctx context.Context, commentID uint) (*models.Comment, error)
	ListComments(ctx context.Context, q ListQuery) ([]models.Comment, int64, error)
	ReplyCounts(ctx context.Context, commentIDs []uint) (map[uint]int64, error)
}

// ReactionLedger keeps like/dislike membership and the denormalized counters
// in step.
type ReactionLedger interface {
	// ToggleReaction applies a like or dislike toggle for userID and returns
	// the updated comment with the user's resulting reaction.
	ToggleReaction(ctx context.Context, commentID, userID uint, kind models.ReactionKind) (*models.Comment, models.ReactionKind, error)
	ToggleAuthorLike(ctx context.Context, commentID uint) (*models.Comment, error)
	ReactionsOf(ctx context.Context, userID uint, commentIDs []uint) (map[uint]models.ReactionKind, error)
}

// NotificationStore persists mention notifications.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, items []models.Notification) error
	// ListNotifications returns visible (not hidden) notifications, newest first.
	ListNotifications(ctx context.Context, addresseeID uint, limit, offset int) ([]models.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, id, addresseeID uint) error
	HideNotification(ctx context.Context, id, addresseeID uint) error
	MarkAllNotificationsRead(ctx context.Context, addresseeID uint) (int64, error)
	UnreadNotifications(ctx context.Context, addresseeID uint) (int64, error)
}

// Store is everything the service layer needs from one backend.
type Store interface {
	PostCatalog
	IdentityStore
	CommentStore
	ReactionLedger
	NotificationStore
}

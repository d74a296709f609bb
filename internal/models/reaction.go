package models

import (
	"time"
)

// ReactionKind is the value of a membership row: like or dislike.
type ReactionKind int8

const (
	ReactionNone    ReactionKind = 0
	ReactionLike    ReactionKind = 1
	ReactionDislike ReactionKind = -1
)

func (k ReactionKind) String() string {
	switch k {
	case ReactionLike:
		return "like"
	case ReactionDislike:
		return "dislike"
	}
	return "none"
}

// CommentReaction is one user's reaction to one comment.
// The composite key keeps like and dislike mutually exclusive per pair.
type CommentReaction struct {
	CommentID uint         `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	UserID    uint         `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Value     ReactionKind `gorm:"type:smallint;not null" json:"value"` // 1 or -1
	CreatedAt time.Time    `json:"created_at"`
}

package models

import (
	"time"
)

type Comment struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	PostID        uint      `gorm:"not null;uniqueIndex:idx_comments_post_number" json:"-"`
	Number        uint      `gorm:"not null;uniqueIndex:idx_comments_post_number" json:"comment_id"` // per-post, never reused
	AuthorID      uint      `gorm:"not null;index" json:"-"`
	Author        *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	ReplyToID     *uint     `gorm:"index" json:"-"` // nil for top-level comments
	ReplyTo       *Comment  `gorm:"foreignKey:ReplyToID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	IsEdited      bool      `gorm:"default:false;not null" json:"is_edited"`
	Likes         int       `gorm:"default:0;not null" json:"likes"`
	Dislikes      int       `gorm:"default:0;not null" json:"dislikes"`
	LikedByAuthor bool      `gorm:"default:false;not null" json:"liked_by_author"`
	IsPinned      bool      `gorm:"default:false;not null" json:"is_pinned"`
	PinnedByID    *uint     `json:"-"`
	PinnedBy      *User     `gorm:"foreignKey:PinnedByID" json:"pinned_by_user,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

func (c *Comment) IsReply() bool {
	return c.ReplyToID != nil
}

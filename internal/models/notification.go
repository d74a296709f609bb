package models

import (
	"time"
)

type Notification struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AddresseeID      uint      `gorm:"not null;index" json:"-"` // Receiver
	AuthorID         uint      `gorm:"not null" json:"-"`       // Commenter
	Author           *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PostID           uint      `gorm:"not null" json:"-"`
	Post             *Post     `gorm:"foreignKey:PostID" json:"-"`
	ParentCommentID  *uint     `gorm:"index" json:"-"` // reply target, nil for top-level comments
	ParentComment    *Comment  `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE;" json:"-"`
	RepliedCommentID uint      `gorm:"not null;index" json:"-"`
	RepliedComment   *Comment  `gorm:"foreignKey:RepliedCommentID;constraint:OnDelete:CASCADE;" json:"-"`
	Text             string    `gorm:"type:text;not null" json:"text"`
	IsRead           bool      `gorm:"default:false;not null" json:"is_read"`
	IsHidden         bool      `gorm:"default:false;not null" json:"is_hidden"`
	CreatedAt        time.Time `json:"created_at"`
}

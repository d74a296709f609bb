package models

import (
	"time"
)

type Blog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Owner     *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CoAuthors []User    `gorm:"many2many:blog_co_authors;" json:"co_authors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasCoAuthor reports whether userID was invited as a co-author of the blog.
func (b *Blog) HasCoAuthor(userID uint) bool {
	if b == nil {
		return false
	}
	for _, u := range b.CoAuthors {
		if u.ID == userID {
			return true
		}
	}
	return false
}

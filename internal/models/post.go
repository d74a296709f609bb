package models

import (
	"time"
)

type Post struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BlogID          uint      `gorm:"not null;uniqueIndex:idx_posts_blog_number" json:"blog_id"`
	Blog            *Blog     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"blog,omitempty"`
	Number          uint      `gorm:"not null;uniqueIndex:idx_posts_blog_number" json:"post_id"` // 博客内的帖子编号
	AuthorID        uint      `gorm:"not null;index" json:"author_id"`
	Title           string    `gorm:"not null" json:"title"`
	IsPublished     bool      `gorm:"default:false;not null" json:"is_published"`
	CommentsAllowed bool      `gorm:"default:true;not null" json:"comments_allowed"`
	CommentCounter  uint      `gorm:"default:0;not null" json:"-"` // 最后分配的评论编号
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package services

import (
	"time"

	"blogtalk/internal/models"
	"blogtalk/internal/utils"
)

type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func userView(u *models.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{ID: u.ID, Username: u.Username}
}

// CommentView is a comment as seen by one caller.
type CommentView struct {
	CommentID     uint      `json:"comment_id"`
	Body          string    `json:"body"`
	BodyHTML      string    `json:"body_html"`
	Author        *UserView `json:"author"`
	CreatedAt     time.Time `json:"created_at"`
	IsEdited      bool      `json:"is_edited"`
	Likes         int       `json:"likes"`
	Dislikes      int       `json:"dislikes"`
	LikedByAuthor bool      `json:"liked_by_author"`
	IsPinned      bool      `json:"is_pinned"`
	PinnedByUser  *UserView `json:"pinned_by_user"`
	ReplyTo       *uint     `json:"reply_to"`
	RepliesCount  int64     `json:"replies_count"`
	IsLiked       bool      `json:"is_liked"`
	IsDisliked    bool      `json:"is_disliked"`
}

func commentView(c *models.Comment, replies int64, mine models.ReactionKind) CommentView {
	v := CommentView{
		CommentID:     c.Number,
		Body:          c.Body,
		BodyHTML:      utils.RenderMarkdown(c.Body),
		Author:        userView(c.Author),
		CreatedAt:     c.CreatedAt,
		IsEdited:      c.IsEdited,
		Likes:         c.Likes,
		Dislikes:      c.Dislikes,
		LikedByAuthor: c.LikedByAuthor,
		IsPinned:      c.IsPinned,
		PinnedByUser:  userView(c.PinnedBy),
		RepliesCount:  replies,
		IsLiked:       mine == models.ReactionLike,
		IsDisliked:    mine == models.ReactionDislike,
	}
	if c.ReplyTo != nil {
		n := c.ReplyTo.Number
		v.ReplyTo = &n
	}
	return v
}

type CommentPage struct {
	Count    int64         `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Results  []CommentView `json:"results"`
}

type NotificationView struct {
	ID                  uint      `json:"id"`
	Text                string    `json:"text"`
	Author              *UserView `json:"author"`
	Blog                string    `json:"blog"`
	PostNumber          uint      `json:"post_id"`
	CommentNumber       uint      `json:"comment_id"`
	ParentCommentNumber *uint     `json:"parent_comment_id"`
	IsRead              bool      `json:"is_read"`
	CreatedAt           time.Time `json:"created_at"`
}

func notificationView(n *models.Notification) NotificationView {
	v := NotificationView{
		ID:        n.ID,
		Text:      n.Text,
		Author:    userView(n.Author),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Post != nil {
		v.PostNumber = n.Post.Number
		if n.Post.Blog != nil {
			v.Blog = n.Post.Blog.Slug
		}
	}
	if n.RepliedComment != nil {
		v.CommentNumber = n.RepliedComment.Number
	}
	if n.ParentComment != nil {
		num := n.ParentComment.Number
		v.ParentCommentNumber = &num
	}
	return v
}

type NotificationPage struct {
	Count    int64              `json:"count"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Results  []NotificationView `json:"results"`
}

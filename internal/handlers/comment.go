package handlers

import (
	"context"
	"fmt"
	"net/http"

	"blogtalk/internal/services"
	"blogtalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type commentRequest struct {
	Body    string `json:"body"`
	ReplyTo *uint  `json:"reply_to"`
}

func bindComment(c *gin.Context) (commentRequest, bool) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: malformed JSON body", services.ErrValidation))
		return req, false
	}
	return req, true
}

// Create 发表评论或回复
func (h *CommentHandler) Create(c *gin.Context) {
	ref, ok := postRef(c)
	if !ok {
		return
	}
	req, ok := bindComment(c)
	if !ok {
		return
	}

	view, err := h.comments.CreateComment(c.Request.Context(), currentCaller(c), ref, services.CreateCommentInput{
		Body:    req.Body,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List returns top-level comments, or the replies of ?parent_id=.
func (h *CommentHandler) List(c *gin.Context) {
	ref, ok := postRef(c)
	if !ok {
		return
	}

	in := services.ListInput{Sort: c.Query("sort_by"), Page: page(c)}
	if raw := c.Query("parent_id"); raw != "" {
		parent, ok := utils.ParseNumber(raw)
		if !ok {
			writeError(c, fmt.Errorf("%w: parent_id must be a comment number", services.ErrValidation))
			return
		}
		in.ParentNumber = &parent
	}

	result, err := h.comments.ListComments(c.Request.Context(), currentCaller(c), ref, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CommentHandler) Get(c *gin.Context) {
	h.respond(c, h.comments.GetComment)
}

func (h *CommentHandler) Update(c *gin.Context) {
	ref, ok := commentRef(c)
	if !ok {
		return
	}
	req, ok := bindComment(c)
	if !ok {
		return
	}

	view, err := h.comments.EditComment(c.Request.Context(), currentCaller(c), ref, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	ref, ok := commentRef(c)
	if !ok {
		return
	}
	if err := h.comments.DeleteComment(c.Request.Context(), currentCaller(c), ref); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommentHandler) Pin(c *gin.Context)          { h.respond(c, h.comments.PinComment) }
func (h *CommentHandler) Unpin(c *gin.Context)        { h.respond(c, h.comments.UnpinComment) }
func (h *CommentHandler) Like(c *gin.Context)         { h.respond(c, h.comments.ToggleLike) }
func (h *CommentHandler) Dislike(c *gin.Context)      { h.respond(c, h.comments.ToggleDislike) }
func (h *CommentHandler) LikeByAuthor(c *gin.Context) { h.respond(c, h.comments.ToggleAuthorLike) }

type commentAction func(ctx context.Context, caller *services.Caller, ref services.CommentRef) (*services.CommentView, error)

// respond runs a single-comment action and writes the resulting view.
func (h *CommentHandler) respond(c *gin.Context, action commentAction) {
	ref, ok := commentRef(c)
	if !ok {
		return
	}
	view, err := action(c.Request.Context(), currentCaller(c), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

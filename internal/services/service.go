// Package services implements the comment engine on top of the store
// contracts: access checks, threading, pinning, reactions and mention
// notifications.
package services

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"blogtalk/internal/models"
	"blogtalk/internal/store"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("concurrent update, try again")
	ErrInternal         = errors.New("internal error")

	ErrCommentsDisabled = fmt.Errorf("%w: comments are disabled for this post", ErrForbidden)
	ErrEmptyBody        = fmt.Errorf("%w: body must not be empty", ErrValidation)
	ErrBodyTooLong      = fmt.Errorf("%w: body is too long", ErrValidation)
	ErrInvalidThread    = fmt.Errorf("%w: replies cannot be replied to", ErrValidation)
	ErrInvalidSort      = fmt.Errorf("%w: sort_by must be newest or oldest", ErrValidation)
	ErrReplyNotPinnable = fmt.Errorf("%w: only top-level comments can be pinned", ErrInvalidOperation)
	ErrAlreadyPinned    = fmt.Errorf("%w: comment is already pinned", ErrInvalidOperation)
	ErrNotPinned        = fmt.Errorf("%w: comment is not pinned", ErrInvalidOperation)
)

// Caller is the identity a request acts as. A nil *Caller is anonymous.
type Caller struct {
	ID      uint
	Handle  string
	IsAdmin bool
}

func CallerFromUser(u *models.User) *Caller {
	if u == nil {
		return nil
	}
	return &Caller{ID: u.ID, Handle: u.Username, IsAdmin: u.IsAdmin()}
}

// PostRef addresses a post by blog slug and in-blog number.
type PostRef struct {
	BlogSlug   string
	PostNumber uint
}

// CommentRef addresses a comment by its per-post number.
type CommentRef struct {
	PostRef
	Number uint
}

// translate maps store errors onto the service taxonomy. Errors that are
// already service errors pass through; anything unknown becomes ErrInternal.
func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrEmptyBody):
		return ErrEmptyBody
	case errors.Is(err, store.ErrInvalidThread):
		return ErrInvalidThread
	case errors.Is(err, store.ErrReplyNotPinnable):
		return ErrReplyNotPinnable
	case errors.Is(err, store.ErrAlreadyPinned):
		return ErrAlreadyPinned
	case errors.Is(err, store.ErrNotPinned):
		return ErrNotPinned
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	}

	for _, known := range []error{ErrNotFound, ErrForbidden, ErrUnauthenticated, ErrValidation, ErrInvalidOperation, ErrConflict} {
		if errors.Is(err, known) {
			return err
		}
	}
	return ErrInternal
}

// fail logs err at a level matching its kind and returns it wrapped with op.
func fail(lg *slog.Logger, op string, err error) error {
	mapped := translate(err)
	if errors.Is(mapped, ErrInternal) {
		lg.Error("operation failed", "err", err)
	} else {
		lg.Debug("operation rejected", "err", err)
	}
	return fmt.Errorf("%s: %w", op, mapped)
}

// pageOffset converts a 1-based page into a row offset. Pages too far out
// to address saturate at math.MaxInt, which every store answers with an
// empty page.
func pageOffset(page, pageSize int) int {
	if page <= 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

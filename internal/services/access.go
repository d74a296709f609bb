package services

import "blogtalk/internal/models"

// Operation is what a caller attempts on a post's comments.
type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpUpdate
	OpDelete
	OpPin
	OpReact
	OpAuthorLike
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpPin:
		return "pin"
	case OpReact:
		return "react"
	case OpAuthorLike:
		return "author_like"
	}
	return "unknown"
}

// Role is a set of relations between the caller and a post/comment.
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleBlogOwner
	RoleCoAuthor
	RoleCommentAuthor
	RolePostAuthor

	// roles that manage a blog and may see its unpublished posts
	roleManager = RoleAdmin | RoleBlogOwner | RoleCoAuthor
)

// Has reports whether r contains at least one of the roles in want.
func (r Role) Has(want Role) bool {
	return r&want != 0
}

// RolesOf derives the caller's roles for post and, if non-nil, comment.
func RolesOf(caller *Caller, post *models.Post, comment *models.Comment) Role {
	if caller == nil {
		return 0
	}

	var r Role
	if caller.IsAdmin {
		r |= RoleAdmin
	}
	if post != nil {
		if post.AuthorID == caller.ID {
			r |= RolePostAuthor
		}
		if post.Blog != nil {
			if post.Blog.OwnerID == caller.ID {
				r |= RoleBlogOwner
			}
			if post.Blog.HasCoAuthor(caller.ID) {
				r |= RoleCoAuthor
			}
		}
	}
	if comment != nil && comment.AuthorID == caller.ID {
		r |= RoleCommentAuthor
	}
	return r
}

// Authorize decides whether caller may perform op. An unpublished post is
// reported as ErrNotFound to everyone who does not manage its blog, for
// every operation, so its existence does not leak.
func Authorize(op Operation, caller *Caller, post *models.Post, comment *models.Comment) error {
	if post == nil {
		return ErrNotFound
	}

	roles := RolesOf(caller, post, comment)
	if !post.IsPublished && !roles.Has(roleManager) {
		return ErrNotFound
	}

	if op == OpRead {
		return nil
	}
	if caller == nil {
		return ErrUnauthenticated
	}

	switch op {
	case OpCreate:
		if !post.CommentsAllowed {
			return ErrCommentsDisabled
		}
		return nil
	case OpUpdate:
		if roles.Has(RoleCommentAuthor | RoleAdmin) {
			return nil
		}
	case OpDelete:
		if roles.Has(RoleCommentAuthor | RoleAdmin | RoleBlogOwner) {
			return nil
		}
	case OpPin:
		if roles.Has(roleManager) {
			return nil
		}
	case OpReact:
		return nil
	case OpAuthorLike:
		if roles.Has(RolePostAuthor) {
			return nil
		}
	}
	return ErrForbidden
}

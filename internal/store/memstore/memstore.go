// Package memstore is an in-memory store.Store. It keeps the same
// invariants as the postgres store (per-post numbering, single pin,
// exclusive reactions, cascading delete) under one mutex.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"blogtalk/internal/models"
	"blogtalk/internal/store"
)

type reactionKey struct {
	commentID uint
	userID    uint
}

type Store struct {
	mu            sync.Mutex
	seq           uint
	now           func() time.Time
	users         map[uint]models.User
	blogs         map[uint]models.Blog
	coAuthors     map[uint][]uint
	posts         map[uint]models.Post
	comments      map[uint]models.Comment
	reactions     map[reactionKey]models.ReactionKind
	notifications map[uint]models.Notification
	notifyErr     error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[uint]models.User),
		blogs:         make(map[uint]models.Blog),
		coAuthors:     make(map[uint][]uint),
		posts:         make(map[uint]models.Post),
		comments:      make(map[uint]models.Comment),
		reactions:     make(map[reactionKey]models.ReactionKind),
		notifications: make(map[uint]models.Notification),
	}
}

// nextID hands out ids and strictly increasing timestamps. Callers hold mu.
func (s *Store) nextID() (uint, time.Time) {
	s.seq++
	return s.seq, s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

// AddUser seeds a platform user.
func (s *Store) AddUser(username string, admin bool) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, at := s.nextID()
	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}
	u := models.User{ID: id, Username: username, Email: username + "@example.org", Role: role, CreatedAt: at, UpdatedAt: at}
	s.users[id] = u
	return u
}

// AddBlog seeds a blog owned by ownerID.
func (s *Store) AddBlog(slug string, ownerID uint, coAuthorIDs ...uint) models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, at := s.nextID()
	b := models.Blog{ID: id, Slug: slug, Title: slug, OwnerID: ownerID, CreatedAt: at}
	s.blogs[id] = b
	s.coAuthors[id] = append([]uint(nil), coAuthorIDs...)
	return b
}

// AddPost seeds a post; its number is the next free one in the blog.
func (s *Store) AddPost(blogID, authorID uint, published, commentsAllowed bool) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	var number uint = 1
	for _, p := range s.posts {
		if p.BlogID == blogID && p.Number >= number {
			number = p.Number + 1
		}
	}

	id, at := s.nextID()
	p := models.Post{
		ID:              id,
		BlogID:          blogID,
		Number:          number,
		AuthorID:        authorID,
		Title:           "post",
		IsPublished:     published,
		CommentsAllowed: commentsAllowed,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	s.posts[id] = p
	return p
}

// FailNotifications makes CreateNotifications return err (nil restores).
func (s *Store) FailNotifications(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyErr = err
}

// Comments returns a snapshot of every comment of a post ordered by number.
func (s *Store) Comments(postID uint) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Notifications returns a snapshot of all notifications ordered by id.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Members returns the users holding kind on commentID.
func (s *Store) Members(commentID uint, kind models.ReactionKind) []uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uint
	for k, v := range s.reactions {
		if k.commentID == commentID && v == kind {
			out = append(out, k.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func userPtr(s *Store, id uint) *models.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return &u
}

// hydrate fills the relations the postgres store preloads. Callers hold mu.
func (s *Store) hydrate(c models.Comment) *models.Comment {
	c.Author = userPtr(s, c.AuthorID)
	c.PinnedBy = nil
	if c.PinnedByID != nil {
		c.PinnedBy = userPtr(s, *c.PinnedByID)
	}
	c.ReplyTo = nil
	if c.ReplyToID != nil {
		if parent, ok := s.comments[*c.ReplyToID]; ok {
			parent.Author, parent.PinnedBy, parent.ReplyTo = nil, nil, nil
			c.ReplyTo = &parent
		}
	}
	return &c
}

func (s *Store) PostByNumber(_ context.Context, blogSlug string, number uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.blogs {
		if b.Slug != blogSlug {
			continue
		}
		for _, p := range s.posts {
			if p.BlogID == b.ID && p.Number == number {
				blog := b
				blog.Owner = userPtr(s, b.OwnerID)
				for _, uid := range s.coAuthors[b.ID] {
					if u, ok := s.users[uid]; ok {
						blog.CoAuthors = append(blog.CoAuthors, u)
					}
				}
				p.Blog = &blog
				return &p, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := userPtr(s, id); u != nil {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByHandle(_ context.Context, handle string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == handle {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateComment(_ context.Context, in store.NewComment) (*models.Comment, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, store.ErrEmptyBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[in.PostID]
	if !ok {
		return nil, store.ErrNotFound
	}

	var replyToID *uint
	if in.ReplyTo != nil {
		parent, ok := s.byNumber(in.PostID, *in.ReplyTo)
		if !ok {
			return nil, store.ErrNotFound
		}
		if parent.ReplyToID != nil {
			return nil, store.ErrInvalidThread
		}
		pid := parent.ID
		replyToID = &pid
	}

	post.CommentCounter++
	s.posts[post.ID] = post

	id, at := s.nextID()
	c := models.Comment{
		ID:        id,
		PostID:    in.PostID,
		Number:    post.CommentCounter,
		AuthorID:  in.AuthorID,
		Body:      in.Body,
		ReplyToID: replyToID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	s.comments[id] = c
	return s.hydrate(c), nil
}

func (s *Store) byNumber(postID, number uint) (models.Comment, bool) {
	for _, c := range s.comments {
		if c.PostID == postID && c.Number == number {
			return c, true
		}
	}
	return models.Comment{}, false
}

func (s *Store) CommentByNumber(_ context.Context, postID, number uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byNumber(postID, number)
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.hydrate(c), nil
}

func (s *Store) UpdateBody(_ context.Context, commentID uint, body string) (*models.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, store.ErrEmptyBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Body = body
	c.IsEdited = true
	c.UpdatedAt = s.now()
	s.comments[commentID] = c
	return s.hydrate(c), nil
}

func (s *Store) DeleteComment(_ context.Context, commentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentID]; !ok {
		return store.ErrNotFound
	}

	gone := map[uint]bool{commentID: true}
	for id, c := range s.comments {
		if c.ReplyToID != nil && *c.ReplyToID == commentID {
			gone[id] = true
		}
	}

	for id, n := range s.notifications {
		if gone[n.RepliedCommentID] || (n.ParentCommentID != nil && gone[*n.ParentCommentID]) {
			delete(s.notifications, id)
		}
	}
	for k := range s.reactions {
		if gone[k.commentID] {
			delete(s.reactions, k)
		}
	}
	for id := range gone {
		delete(s.comments, id)
	}
	return nil
}

func (s *Store) SetPinned(_ context.Context, postID, commentID, byUserID uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.PostID != postID {
		return nil, store.ErrNotFound
	}
	if c.ReplyToID != nil {
		return nil, store.ErrReplyNotPinnable
	}
	if c.IsPinned {
		return nil, store.ErrAlreadyPinned
	}

	for id, other := range s.comments {
		if other.PostID == postID && other.IsPinned {
			other.IsPinned = false
			other.PinnedByID = nil
			s.comments[id] = other
		}
	}

	by := byUserID
	c.IsPinned = true
	c.PinnedByID = &by
	s.comments[commentID] = c
	return s.hydrate(c), nil
}

func (s *Store) UnsetPinned(_ context.Context, commentID uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !c.IsPinned || c.ReplyToID != nil {
		return nil, store.ErrNotPinned
	}
	c.IsPinned = false
	c.PinnedByID = nil
	s.comments[commentID] = c
	return s.hydrate(c), nil
}

func (s *Store) ListComments(_ context.Context, q store.ListQuery) ([]models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var level []models.Comment
	for _, c := range s.comments {
		if c.PostID != q.PostID {
			continue
		}
		switch {
		case q.ParentID == nil && c.ReplyToID == nil:
		case q.ParentID != nil && c.ReplyToID != nil && *c.ReplyToID == *q.ParentID:
		default:
			continue
		}
		level = append(level, c)
	}

	sort.Slice(level, func(i, j int) bool {
		a, b := level[i], level[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if q.Sort == store.SortOldest {
			return a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
		}
		return a.CreatedAt.After(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID > b.ID)
	})

	total := int64(len(level))
	start := min(max(q.Offset, 0), len(level))
	end := len(level)
	if q.Limit > 0 {
		end = start + min(q.Limit, len(level)-start)
	}

	out := make([]models.Comment, 0, end-start)
	for _, c := range level[start:end] {
		out = append(out, *s.hydrate(c))
	}
	return out, total, nil
}

func (s *Store) ReplyCounts(_ context.Context, commentIDs []uint) (map[uint]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[uint]bool, len(commentIDs))
	for _, id := range commentIDs {
		want[id] = true
	}
	counts := make(map[uint]int64, len(commentIDs))
	for _, c := range s.comments {
		if c.ReplyToID != nil && want[*c.ReplyToID] {
			counts[*c.ReplyToID]++
		}
	}
	return counts, nil
}

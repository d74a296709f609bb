package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"blogtalk/internal/config"
	"blogtalk/internal/events"
	"blogtalk/internal/logctx"
	"blogtalk/internal/metrics"
	"blogtalk/internal/models"
	"blogtalk/internal/store"
)

// MentionQueue accepts mention fan-out work once a comment is committed.
type MentionQueue interface {
	Enqueue(job MentionJob) bool
}

// CommentService runs every comment operation as guard check, then one
// store call. The caller is always passed in explicitly.
type CommentService struct {
	posts     store.PostCatalog
	comments  store.CommentStore
	reactions store.ReactionLedger
	mentions  MentionQueue
	events    events.Publisher
	cfg       config.CommentsConfig
}

func NewCommentService(
	posts store.PostCatalog,
	comments store.CommentStore,
	reactions store.ReactionLedger,
	mentions MentionQueue,
	pub events.Publisher,
	cfg config.CommentsConfig,
) *CommentService {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &CommentService{
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		mentions:  mentions,
		events:    pub,
		cfg:       cfg,
	}
}

type CreateCommentInput struct {
	Body    string
	ReplyTo *uint // comment number of a top-level comment on the same post
}

type ListInput struct {
	ParentNumber *uint
	Sort         string // newest (default) or oldest
	Page         int    // 1-based
}

func (s *CommentService) logger(ctx context.Context, op string, ref PostRef) *slog.Logger {
	return logctx.From(ctx).With("op", op, "blog", ref.BlogSlug, "post", ref.PostNumber)
}

func (s *CommentService) validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > s.cfg.MaxBodyLength {
		return "", ErrBodyTooLong
	}
	return body, nil
}

// target resolves the post and comment behind ref and authorizes op.
// Visibility is checked before the comment lookup, so a hidden post
// reports NotFound whether or not the comment exists.
func (s *CommentService) target(ctx context.Context, op Operation, caller *Caller, ref CommentRef) (*models.Post, *models.Comment, error) {
	post, err := s.posts.PostByNumber(ctx, ref.BlogSlug, ref.PostNumber)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(OpRead, caller, post, nil); err != nil {
		return nil, nil, err
	}

	comment, err := s.comments.CommentByNumber(ctx, post.ID, ref.Number)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(op, caller, post, comment); err != nil {
		return nil, nil, err
	}
	return post, comment, nil
}

func (s *CommentService) publish(ctx context.Context, lg *slog.Logger, topic string, event any) {
	if err := s.events.Publish(ctx, topic, event); err != nil {
		lg.Warn("publish event failed", "topic", topic, "err", err)
	}
}

// views annotates comments for caller: reply counts and the caller's own
// reaction.
func (s *CommentService) views(ctx context.Context, caller *Caller, items []models.Comment) ([]CommentView, error) {
	ids := make([]uint, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.ID)
	}

	counts, err := s.comments.ReplyCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	mine := map[uint]models.ReactionKind{}
	if caller != nil {
		if mine, err = s.reactions.ReactionsOf(ctx, caller.ID, ids); err != nil {
			return nil, err
		}
	}

	out := make([]CommentView, 0, len(items))
	for i := range items {
		out = append(out, commentView(&items[i], counts[items[i].ID], mine[items[i].ID]))
	}
	return out, nil
}

func (s *CommentService) view(ctx context.Context, caller *Caller, c *models.Comment) (*CommentView, error) {
	vs, err := s.views(ctx, caller, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func eventRef(ref PostRef, number uint) events.CommentRef {
	return events.CommentRef{BlogSlug: ref.BlogSlug, PostNumber: ref.PostNumber, CommentNumber: number}
}

// CreateComment adds a comment (or a reply when in.ReplyTo is set) and
// queues mention notifications after the comment is stored.
func (s *CommentService) CreateComment(ctx context.Context, caller *Caller, ref PostRef, in CreateCommentInput) (*CommentView, error) {
	const op = "services.CommentService.CreateComment"
	lg := s.logger(ctx, op, ref)

	post, err := s.posts.PostByNumber(ctx, ref.BlogSlug, ref.PostNumber)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	if err := Authorize(OpCreate, caller, post, nil); err != nil {
		return nil, fail(lg, op, err)
	}
	body, err := s.validateBody(in.Body)
	if err != nil {
		return nil, fail(lg, op, err)
	}

	c, err := s.comments.CreateComment(ctx, store.NewComment{
		PostID:   post.ID,
		AuthorID: caller.ID,
		Body:     body,
		ReplyTo:  in.ReplyTo,
	})
	if err != nil {
		return nil, fail(lg, op, err)
	}
	metrics.CommentsCreated.Inc()
	lg.Info("comment created", "comment", c.Number, "author", caller.ID)

	if strings.Contains(c.Body, "@") && s.mentions != nil {
		s.mentions.Enqueue(MentionJob{
			CommentID:       c.ID,
			PostID:          post.ID,
			AuthorID:        caller.ID,
			AuthorHandle:    caller.Handle,
			ParentCommentID: c.ReplyToID,
			Body:            c.Body,
			Ref:             eventRef(ref, c.Number),
		})
	}

	s.publish(ctx, lg, events.TopicCommentCreated, events.CommentCreated{
		Comment:   eventRef(ref, c.Number),
		AuthorID:  caller.ID,
		ReplyTo:   in.ReplyTo,
		CreatedAt: c.CreatedAt,
	})

	v := commentView(c, 0, models.ReactionNone)
	return &v, nil
}

func (s *CommentService) GetComment(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	const op = "services.CommentService.GetComment"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpRead, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	v, err := s.view(ctx, caller, c)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	return v, nil
}

// EditComment replaces the body; the comment stays marked edited.
func (s *CommentService) EditComment(ctx context.Context, caller *Caller, ref CommentRef, body string) (*CommentView, error) {
	const op = "services.CommentService.EditComment"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpUpdate, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	body, err = s.validateBody(body)
	if err != nil {
		return nil, fail(lg, op, err)
	}

	updated, err := s.comments.UpdateBody(ctx, c.ID, body)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	s.publish(ctx, lg, events.TopicCommentEdited, events.CommentEdited{Comment: eventRef(ref.PostRef, c.Number), By: caller.ID})

	v, err := s.view(ctx, caller, updated)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	return v, nil
}

// DeleteComment removes the comment together with its replies and the
// notifications that point at them.
func (s *CommentService) DeleteComment(ctx context.Context, caller *Caller, ref CommentRef) error {
	const op = "services.CommentService.DeleteComment"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpDelete, caller, ref)
	if err != nil {
		return fail(lg, op, err)
	}
	if err := s.comments.DeleteComment(ctx, c.ID); err != nil {
		return fail(lg, op, err)
	}
	metrics.CommentsDeleted.Inc()
	lg.Info("comment deleted", "by", caller.ID)

	s.publish(ctx, lg, events.TopicCommentDeleted, events.CommentDeleted{Comment: eventRef(ref.PostRef, c.Number), By: caller.ID})
	return nil
}

// PinComment pins a top-level comment, replacing the post's current pin.
func (s *CommentService) PinComment(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	const op = "services.CommentService.PinComment"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	post, c, err := s.target(ctx, OpPin, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	pinned, err := s.comments.SetPinned(ctx, post.ID, c.ID, caller.ID)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	s.publish(ctx, lg, events.TopicCommentPinned, events.CommentPinned{Comment: eventRef(ref.PostRef, c.Number), By: caller.ID})

	v, err := s.view(ctx, caller, pinned)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	return v, nil
}

func (s *CommentService) UnpinComment(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	const op = "services.CommentService.UnpinComment"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpPin, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	unpinned, err := s.comments.UnsetPinned(ctx, c.ID)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	s.publish(ctx, lg, events.TopicCommentUnpinned, events.CommentPinned{Comment: eventRef(ref.PostRef, c.Number), By: caller.ID})

	v, err := s.view(ctx, caller, unpinned)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	return v, nil
}

func (s *CommentService) ToggleLike(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	return s.toggle(ctx, "services.CommentService.ToggleLike", caller, ref, models.ReactionLike)
}

func (s *CommentService) ToggleDislike(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	return s.toggle(ctx, "services.CommentService.ToggleDislike", caller, ref, models.ReactionDislike)
}

func (s *CommentService) toggle(ctx context.Context, op string, caller *Caller, ref CommentRef, kind models.ReactionKind) (*CommentView, error) {
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpReact, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	updated, mine, err := s.reactions.ToggleReaction(ctx, c.ID, caller.ID, kind)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	metrics.ReactionToggles.WithLabelValues(kind.String()).Inc()

	counts, err := s.comments.ReplyCounts(ctx, []uint{c.ID})
	if err != nil {
		return nil, fail(lg, op, err)
	}
	v := commentView(updated, counts[c.ID], mine)
	return &v, nil
}

// ToggleAuthorLike flips the post author's mark on a comment.
func (s *CommentService) ToggleAuthorLike(ctx context.Context, caller *Caller, ref CommentRef) (*CommentView, error) {
	const op = "services.CommentService.ToggleAuthorLike"
	lg := s.logger(ctx, op, ref.PostRef).With("comment", ref.Number)

	_, c, err := s.target(ctx, OpAuthorLike, caller, ref)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	updated, err := s.reactions.ToggleAuthorLike(ctx, c.ID)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	metrics.ReactionToggles.WithLabelValues("author_like").Inc()

	v, err := s.view(ctx, caller, updated)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	return v, nil
}

func parseSort(raw string) (store.Sort, error) {
	switch store.Sort(raw) {
	case "", store.SortNewest:
		return store.SortNewest, nil
	case store.SortOldest:
		return store.SortOldest, nil
	}
	return "", ErrInvalidSort
}

// ListComments returns one page of top-level comments, or of the replies
// to in.ParentNumber, pinned first.
func (s *CommentService) ListComments(ctx context.Context, caller *Caller, ref PostRef, in ListInput) (*CommentPage, error) {
	const op = "services.CommentService.ListComments"
	lg := s.logger(ctx, op, ref)

	sort, err := parseSort(in.Sort)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	page := max(in.Page, 1)

	post, err := s.posts.PostByNumber(ctx, ref.BlogSlug, ref.PostNumber)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	if err := Authorize(OpRead, caller, post, nil); err != nil {
		return nil, fail(lg, op, err)
	}

	q := store.ListQuery{
		PostID: post.ID,
		Sort:   sort,
		Limit:  s.cfg.PageSize,
		Offset: pageOffset(page, s.cfg.PageSize),
	}
	if in.ParentNumber != nil {
		parent, err := s.comments.CommentByNumber(ctx, post.ID, *in.ParentNumber)
		if err != nil {
			return nil, fail(lg, op, fmt.Errorf("parent comment %d: %w", *in.ParentNumber, err))
		}
		q.ParentID = &parent.ID
	}

	items, total, err := s.comments.ListComments(ctx, q)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	views, err := s.views(ctx, caller, items)
	if err != nil {
		return nil, fail(lg, op, err)
	}

	return &CommentPage{Count: total, Page: page, PageSize: s.cfg.PageSize, Results: views}, nil
}

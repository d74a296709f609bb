package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogtalk/internal/models"
	"blogtalk/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Author").Preload("PinnedBy").Preload("ReplyTo")
}

func (s *Store) commentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := withRelations(s.db.WithContext(ctx)).Take(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CreateComment allocates the next per-post number and inserts the comment
// in one transaction. The counter bump is an atomic increment-and-return,
// so the post row stays locked until commit and concurrent creations on the
// same post serialize on it.
func (s *Store) CreateComment(ctx context.Context, in store.NewComment) (*models.Comment, error) {
	const op = "store.postgres.CreateComment"

	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%s: %w", op, store.ErrEmptyBody)
	}

	var id uint
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var replyToID *uint
		if in.ReplyTo != nil {
			var parent models.Comment
			if err := tx.Select("id", "reply_to_id").
				Where("post_id = ? AND number = ?", in.PostID, *in.ReplyTo).
				Take(&parent).Error; err != nil {
				return notFound(err)
			}
			if parent.ReplyToID != nil {
				return store.ErrInvalidThread
			}
			replyToID = &parent.ID
		}

		var number uint
		if err := tx.Raw(
			"UPDATE posts SET comment_counter = comment_counter + 1 WHERE id = ? RETURNING comment_counter",
			in.PostID,
		).Scan(&number).Error; err != nil {
			return err
		}
		if number == 0 {
			return store.ErrNotFound
		}

		c := models.Comment{
			PostID:    in.PostID,
			Number:    number,
			AuthorID:  in.AuthorID,
			Body:      in.Body,
			ReplyToID: replyToID,
		}
		if err := tx.Omit(clause.Associations).Create(&c).Error; err != nil {
			// reply target deleted concurrently
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return store.ErrNotFound
			}
			return err
		}
		id = c.ID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.commentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Store) CommentByNumber(ctx context.Context, postID, number uint) (*models.Comment, error) {
	var c models.Comment
	if err := withRelations(s.db.WithContext(ctx)).
		Where("post_id = ? AND number = ?", postID, number).
		Take(&c).Error; err != nil {
		return nil, fmt.Errorf("store.postgres.CommentByNumber: %w", notFound(err))
	}
	return &c, nil
}

// UpdateBody replaces the body and marks the comment edited. Editing an
// already edited comment keeps is_edited true.
func (s *Store) UpdateBody(ctx context.Context, commentID uint, body string) (*models.Comment, error) {
	const op = "store.postgres.UpdateBody"

	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s: %w", op, store.ErrEmptyBody)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", commentID).
		Updates(map[string]any{"body": body, "is_edited": true})
	if res.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	c, err := s.commentByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// DeleteComment removes the comment, its replies, their reactions and every
// notification pointing at any of them, as one unit.
func (s *Store) DeleteComment(ctx context.Context, commentID uint) error {
	const op = "store.postgres.DeleteComment"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Take(&c, commentID).Error; err != nil {
			return notFound(err)
		}

		var replies []uint
		if err := tx.Model(&models.Comment{}).
			Where("reply_to_id = ?", c.ID).
			Pluck("id", &replies).Error; err != nil {
			return err
		}
		ids := append([]uint{c.ID}, replies...)

		if err := tx.Where("replied_comment_id IN ? OR parent_comment_id IN ?", ids, ids).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id IN ?", ids).
			Delete(&models.CommentReaction{}).Error; err != nil {
			return err
		}
		if len(replies) > 0 {
			if err := tx.Where("id IN ?", replies).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Comment{}, c.ID).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetPinned pins a top-level comment, unpinning the post's previous pin in
// the same transaction. The post row lock serializes pin changes; the
// partial unique index on (post_id) WHERE is_pinned backs it up and a
// losing writer is retried by inTx.
func (s *Store) SetPinned(ctx context.Context, postID, commentID, byUserID uint) (*models.Comment, error) {
	const op = "store.postgres.SetPinned"

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Take(&post, postID).Error; err != nil {
			return notFound(err)
		}

		var c models.Comment
		if err := tx.Where("id = ? AND post_id = ?", commentID, postID).Take(&c).Error; err != nil {
			return notFound(err)
		}
		if c.ReplyToID != nil {
			return store.ErrReplyNotPinnable
		}
		if c.IsPinned {
			return store.ErrAlreadyPinned
		}

		if err := tx.Model(&models.Comment{}).
			Where("post_id = ? AND is_pinned", postID).
			Updates(map[string]any{"is_pinned": false, "pinned_by_id": nil}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{"is_pinned": true, "pinned_by_id": byUserID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.commentByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Store) UnsetPinned(ctx context.Context, commentID uint) (*models.Comment, error) {
	const op = "store.postgres.UnsetPinned"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&c, commentID).Error; err != nil {
			return notFound(err)
		}
		if !c.IsPinned || c.ReplyToID != nil {
			return store.ErrNotPinned
		}
		return tx.Model(&models.Comment{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{"is_pinned": false, "pinned_by_id": nil}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.commentByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func threadScope(q store.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("post_id = ?", q.PostID)
		if q.ParentID != nil {
			return db.Where("reply_to_id = ?", *q.ParentID)
		}
		return db.Where("reply_to_id IS NULL")
	}
}

// ListComments returns one page of a thread level, pinned first.
func (s *Store) ListComments(ctx context.Context, q store.ListQuery) ([]models.Comment, int64, error) {
	const op = "store.postgres.ListComments"

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Scopes(threadScope(q)).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	order := "is_pinned DESC, created_at DESC, id DESC"
	if q.Sort == store.SortOldest {
		order = "is_pinned DESC, created_at ASC, id ASC"
	}

	var items []models.Comment
	if err := withRelations(s.db.WithContext(ctx)).
		Scopes(threadScope(q)).
		Order(order).
		Limit(q.Limit).
		Offset(max(q.Offset, 0)).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

// ReplyCounts 批量统计回复数
func (s *Store) ReplyCounts(ctx context.Context, commentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ParentID uint
		Count    int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("reply_to_id AS parent_id, COUNT(*) AS count").
		Where("reply_to_id IN ?", commentIDs).
		Group("reply_to_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("store.postgres.ReplyCounts: %w", err)
	}

	for _, r := range rows {
		counts[r.ParentID] = r.Count
	}
	return counts, nil
}

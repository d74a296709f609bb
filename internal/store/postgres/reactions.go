package postgres

import (
	"context"
	"errors"
	"fmt"

	"blogtalk/internal/models"
	"blogtalk/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleReaction applies a like/dislike toggle. The comment row is locked
// first, so membership is read and counters are adjusted under the same
// lock: a retried request sees the previous toggle and never decrements a
// counter for a membership that is not there.
func (s *Store) ToggleReaction(ctx context.Context, commentID, userID uint, kind models.ReactionKind) (*models.Comment, models.ReactionKind, error) {
	const op = "store.postgres.ToggleReaction"

	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return nil, models.ReactionNone, fmt.Errorf("%s: unknown reaction %d", op, kind)
	}

	var result models.ReactionKind
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "likes", "dislikes").
			Take(&c, commentID).Error; err != nil {
			return notFound(err)
		}

		var current models.CommentReaction
		err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Take(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = models.CommentReaction{CommentID: commentID, UserID: userID, Value: models.ReactionNone}
		case err != nil:
			return err
		}

		next, likes, dislikes := store.Toggle(current.Value, kind)
		if c.Likes+likes < 0 || c.Dislikes+dislikes < 0 {
			return store.ErrInvariant
		}

		pair := tx.Where("comment_id = ? AND user_id = ?", commentID, userID)
		switch {
		case current.Value == models.ReactionNone:
			err = tx.Create(&models.CommentReaction{CommentID: commentID, UserID: userID, Value: next}).Error
		case next == models.ReactionNone:
			err = pair.Delete(&models.CommentReaction{}).Error
		default:
			err = pair.Model(&models.CommentReaction{}).Update("value", next).Error
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Comment{}).
			Where("id = ?", commentID).
			UpdateColumns(map[string]any{
				"likes":    gorm.Expr("likes + ?", likes),
				"dislikes": gorm.Expr("dislikes + ?", dislikes),
			}).Error; err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, models.ReactionNone, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.commentByID(ctx, commentID)
	if err != nil {
		return nil, models.ReactionNone, fmt.Errorf("%s: %w", op, err)
	}
	return c, result, nil
}

// ToggleAuthorLike flips liked_by_author. It does not touch membership.
func (s *Store) ToggleAuthorLike(ctx context.Context, commentID uint) (*models.Comment, error) {
	const op = "store.postgres.ToggleAuthorLike"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "liked_by_author").
			Take(&c, commentID).Error; err != nil {
			return notFound(err)
		}
		return tx.Model(&models.Comment{}).
			Where("id = ?", c.ID).
			UpdateColumn("liked_by_author", !c.LikedByAuthor).Error
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

// ReactionsOf returns userID's reaction per comment; comments without one
// are absent from the map.
func (s *Store) ReactionsOf(ctx context.Context, userID uint, commentIDs []uint) (map[uint]models.ReactionKind, error) {
	out := make(map[uint]models.ReactionKind, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}

	var rows []models.CommentReaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store.postgres.ReactionsOf: %w", err)
	}

	for _, r := range rows {
		out[r.CommentID] = r.Value
	}
	return out, nil
}

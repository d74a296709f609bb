package postgres

import (
	"context"
	"fmt"

	"blogtalk/internal/models"
	"blogtalk/internal/store"

	"gorm.io/gorm/clause"
)

func (s *Store) CreateNotifications(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error; err != nil {
		return fmt.Errorf("store.postgres.CreateNotifications: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, addresseeID uint, limit, offset int) ([]models.Notification, int64, error) {
	const op = "store.postgres.ListNotifications"

	visible := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("addressee_id = ? AND NOT is_hidden", addresseeID)

	var total int64
	if err := visible.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var items []models.Notification
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Post.Blog").
		Preload("ParentComment").
		Preload("RepliedComment").
		Where("addressee_id = ? AND NOT is_hidden", addresseeID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(max(offset, 0)).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

// MarkNotificationRead sets is_read. Repeating it is harmless; there is no
// way back to unread.
func (s *Store) MarkNotificationRead(ctx context.Context, id, addresseeID uint) error {
	return s.setFlag(ctx, "store.postgres.MarkNotificationRead", "is_read", id, addresseeID)
}

// HideNotification sets is_hidden, same rules as MarkNotificationRead.
func (s *Store) HideNotification(ctx context.Context, id, addresseeID uint) error {
	return s.setFlag(ctx, "store.postgres.HideNotification", "is_hidden", id, addresseeID)
}

func (s *Store) setFlag(ctx context.Context, op, column string, id, addresseeID uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND addressee_id = ?", id, addresseeID).
		UpdateColumn(column, true)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, addresseeID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("addressee_id = ? AND NOT is_read", addresseeID).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("store.postgres.MarkAllNotificationsRead: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) UnreadNotifications(ctx context.Context, addresseeID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("addressee_id = ? AND NOT is_read AND NOT is_hidden", addresseeID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store.postgres.UnreadNotifications: %w", err)
	}
	return count, nil
}

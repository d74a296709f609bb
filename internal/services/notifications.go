package services

import (
	"context"
	"log/slog"

	"blogtalk/internal/logctx"
	"blogtalk/internal/store"
)

// NotificationService is the addressee side of mention notifications.
// Every method acts on the caller's own notifications only.
type NotificationService struct {
	store    store.NotificationStore
	pageSize int
}

func NewNotificationService(notifications store.NotificationStore, pageSize int) *NotificationService {
	return &NotificationService{store: notifications, pageSize: pageSize}
}

func (s *NotificationService) logger(ctx context.Context, op string, caller *Caller) *slog.Logger {
	lg := logctx.From(ctx).With("op", op)
	if caller != nil {
		lg = lg.With("user", caller.ID)
	}
	return lg
}

// List returns the caller's visible notifications, newest first.
func (s *NotificationService) List(ctx context.Context, caller *Caller, page int) (*NotificationPage, error) {
	const op = "services.NotificationService.List"
	lg := s.logger(ctx, op, caller)

	if caller == nil {
		return nil, fail(lg, op, ErrUnauthenticated)
	}
	page = max(page, 1)

	items, total, err := s.store.ListNotifications(ctx, caller.ID, s.pageSize, pageOffset(page, s.pageSize))
	if err != nil {
		return nil, fail(lg, op, err)
	}

	results := make([]NotificationView, 0, len(items))
	for i := range items {
		results = append(results, notificationView(&items[i]))
	}
	return &NotificationPage{Count: total, Page: page, PageSize: s.pageSize, Results: results}, nil
}

// MarkRead 标记单条通知为已读，重复调用无副作用
func (s *NotificationService) MarkRead(ctx context.Context, caller *Caller, id uint) error {
	const op = "services.NotificationService.MarkRead"
	lg := s.logger(ctx, op, caller)

	if caller == nil {
		return fail(lg, op, ErrUnauthenticated)
	}
	if err := s.store.MarkNotificationRead(ctx, id, caller.ID); err != nil {
		return fail(lg, op, err)
	}
	return nil
}

// Hide removes a notification from the caller's list. It cannot be undone.
func (s *NotificationService) Hide(ctx context.Context, caller *Caller, id uint) error {
	const op = "services.NotificationService.Hide"
	lg := s.logger(ctx, op, caller)

	if caller == nil {
		return fail(lg, op, ErrUnauthenticated)
	}
	if err := s.store.HideNotification(ctx, id, caller.ID); err != nil {
		return fail(lg, op, err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller *Caller) (int64, error) {
	const op = "services.NotificationService.MarkAllRead"
	lg := s.logger(ctx, op, caller)

	if caller == nil {
		return 0, fail(lg, op, ErrUnauthenticated)
	}
	n, err := s.store.MarkAllNotificationsRead(ctx, caller.ID)
	if err != nil {
		return 0, fail(lg, op, err)
	}
	return n, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller *Caller) (int64, error) {
	const op = "services.NotificationService.UnreadCount"
	lg := s.logger(ctx, op, caller)

	if caller == nil {
		return 0, fail(lg, op, ErrUnauthenticated)
	}
	n, err := s.store.UnreadNotifications(ctx, caller.ID)
	if err != nil {
		return 0, fail(lg, op, err)
	}
	return n, nil
}

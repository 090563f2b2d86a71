package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
)

// NotificationService exposes the caller's inbox. Every operation is scoped
// to userID; another user's notification is reported as not found.
type NotificationService struct {
	DB *gorm.DB

	// MaxList caps List results.
	MaxList int
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, MaxList: 100}
}

// List returns the newest notifications, up to limit.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 || (s.MaxList > 0 && limit > s.MaxList) {
		limit = s.MaxList
	}
	return repo.ListNotifications(ctx, s.DB, userID, unreadOnly, limit)
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return repo.CountUnread(ctx, s.DB, userID)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.mapNotFound(repo.MarkNotificationRead(ctx, s.DB, id, userID))
}

// MarkAllRead flags every unread notification and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return repo.MarkAllNotificationsRead(ctx, s.DB, userID)
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return s.mapNotFound(repo.DeleteNotification(ctx, s.DB, id, userID))
}

func (s *NotificationService) mapNotFound(err error) error {
	if isNotFound(err) {
		return ErrNotificationNotFound
	}
	return err
}

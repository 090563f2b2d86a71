// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model. Every read and write is scoped to the owning user.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// CreateNotification inserts n, assigning an ID and CreatedAt.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	n.IsRead = false
	return db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns the newest notifications of userID.
// limit <= 0 returns all of them.
func ListNotifications(ctx context.Context, db *gorm.DB, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	q = q.Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountUnread returns how many notifications of userID are unread.
func CountUnread(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead flags notification id of userID as read.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification of userID and
// returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// DeleteNotification removes notification id of userID.
func DeleteNotification(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for comments and
// likes on items.
//
// Duplicate likes rely on the (item_id, user_id) unique index and surface
// as a raw DB error; callers translate it with IsDuplicate.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// CreateComment inserts a comment by userID on itemID.
func CreateComment(ctx context.Context, db *gorm.DB, itemID, userID, content string) (*domain.Comment, error) {
	now := time.Now().UTC()
	c := &domain.Comment{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment by id.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCommentsPage returns comments on itemID oldest first.
func ListCommentsPage(ctx context.Context, db *gorm.DB, itemID string, offset, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountComments returns the number of comments on itemID.
func CountComments(ctx context.Context, db *gorm.DB, itemID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Comment{}).Where("item_id = ?", itemID).Count(&n).Error
	return n, err
}

// DeleteComment removes comment id if it was written by userID.
func DeleteComment(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLike returns the like of userID on itemID, or ErrNotFound.
func GetLike(ctx context.Context, db *gorm.DB, itemID, userID string) (*domain.Like, error) {
	var l domain.Like
	err := db.WithContext(ctx).Where("item_id = ? AND user_id = ?", itemID, userID).First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLike records that userID likes itemID.
func CreateLike(ctx context.Context, db *gorm.DB, itemID, userID string) (*domain.Like, error) {
	l := &domain.Like{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteLike removes the like of userID on itemID.
func DeleteLike(ctx context.Context, db *gorm.DB, itemID, userID string) error {
	res := db.WithContext(ctx).Where("item_id = ? AND user_id = ?", itemID, userID).Delete(&domain.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountLikes returns the number of likes on itemID.
func CountLikes(ctx context.Context, db *gorm.DB, itemID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Like{}).Where("item_id = ?", itemID).Count(&n).Error
	return n, err
}

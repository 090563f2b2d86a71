// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Item model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// CreateItem inserts it, assigning an ID and timestamps when missing.
func CreateItem(ctx context.Context, db *gorm.DB, it *domain.Item) error {
	now := time.Now().UTC()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Status == "" {
		it.Status = domain.ItemAvailable
	}
	it.CreatedAt = now
	it.UpdatedAt = now
	return db.WithContext(ctx).Create(it).Error
}

// GetItem fetches an item by id.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.Item, error) {
	var it domain.Item
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemFilter narrows item listings. Empty fields match everything.
type ItemFilter struct {
	Status   domain.ItemStatus
	Category string
	DonorID  string
}

func itemScope(db *gorm.DB, rtID string, f ItemFilter) *gorm.DB {
	q := db.Model(&domain.Item{}).Where("rt_id = ?", rtID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.DonorID != "" {
		q = q.Where("donor_id = ?", f.DonorID)
	}
	return q
}

// CountItems returns the number of items in rtID matching f.
func CountItems(ctx context.Context, db *gorm.DB, rtID string, f ItemFilter) (int64, error) {
	var total int64
	err := itemScope(db.WithContext(ctx), rtID, f).Count(&total).Error
	return total, err
}

// ListItemsPage returns a page of items in rtID matching f, newest first.
func ListItemsPage(ctx context.Context, db *gorm.DB, rtID string, f ItemFilter, offset, limit int) ([]domain.Item, error) {
	var out []domain.Item
	err := itemScope(db.WithContext(ctx), rtID, f).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListOpenItems returns up to limit items in rtID that can still be requested.
func ListOpenItems(ctx context.Context, db *gorm.DB, rtID string, limit int) ([]domain.Item, error) {
	var out []domain.Item
	q := db.WithContext(ctx).
		Where("rt_id = ? AND status IN ?", rtID, []domain.ItemStatus{domain.ItemAvailable, domain.ItemRequested}).
		Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// UpdateItem applies the given column updates to item id.
func UpdateItem(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes an item; requests, comments and likes cascade.
func DeleteItem(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionItem moves item id to status `to` only if its current status is
// one of `from`. ErrNotFound means the guard did not match.
func TransitionItem(ctx context.Context, db *gorm.DB, id string, to domain.ItemStatus, from ...domain.ItemStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveItem marks an available or requested item as reserved.
func ReserveItem(ctx context.Context, db *gorm.DB, id string) error {
	return TransitionItem(ctx, db, id, domain.ItemReserved, domain.ItemAvailable, domain.ItemRequested)
}

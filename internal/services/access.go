package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/utils"
)

// membership returns the caller's membership or ErrNotMember.
func membership(ctx context.Context, db *gorm.DB, userID string) (*domain.Member, error) {
	m, err := repo.GetMemberByProfile(ctx, db, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return m, nil
}

// canManageItem reports whether userID is the item's donor or an admin of
// the item's RT.
func canManageItem(ctx context.Context, db *gorm.DB, userID string, it *domain.Item) (bool, error) {
	if it == nil {
		return false, nil
	}
	if it.DonorID == userID {
		return true, nil
	}
	m, err := membership(ctx, db, userID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.RTID == it.RTID && m.Role == domain.RoleAdmin, nil
}

// visibleItem loads an item the caller may see: donors always see their own
// items, everyone else must belong to the item's RT. Hidden items are
// reported as ErrItemNotFound.
func visibleItem(ctx context.Context, db *gorm.DB, userID, itemID string) (*domain.Item, error) {
	it, err := repo.GetItem(ctx, db, itemID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if it.DonorID == userID {
		return it, nil
	}
	m, err := membership(ctx, db, userID)
	if errors.Is(err, ErrNotMember) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.RTID != it.RTID {
		return nil, ErrItemNotFound
	}
	return it, nil
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// pageBounds normalizes page/pageSize and returns the row offset.
func pageBounds(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize, utils.Offset(page, pageSize)
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model and the pickup-code columns that live on it.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound).
//   - Conditional updates (AcceptPending, RejectPending, MarkCollected)
//     return ErrNotFound when no row matched the guard, meaning either the
//     row is missing or another writer moved it first.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// RequestDetails carries the optional fields a requester fills in.
type RequestDetails struct {
	Message             string
	PickupAddress       string
	ScheduledPickupDate *time.Time
}

// CreateRequest inserts a pending request for itemID by requesterID.
func CreateRequest(ctx context.Context, db *gorm.DB, itemID, requesterID string, d RequestDetails) (*domain.Request, error) {
	now := time.Now().UTC()
	r := &domain.Request{
		ID:                  uuid.NewString(),
		ItemID:              itemID,
		RequesterID:         requesterID,
		Status:              domain.RequestPending,
		Message:             d.Message,
		PickupAddress:       d.PickupAddress,
		ScheduledPickupDate: d.ScheduledPickupDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRequest fetches a request by id with its item preloaded.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Preload("Item").
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RequestFilter narrows request listings. Empty Status means any.
type RequestFilter struct {
	Status domain.RequestStatus
}

func requesterScope(db *gorm.DB, requesterID string, f RequestFilter) *gorm.DB {
	q := db.Model(&domain.Request{}).Where("requests.requester_id = ?", requesterID)
	if f.Status != "" {
		q = q.Where("requests.status = ?", f.Status)
	}
	return q
}

func donorScope(db *gorm.DB, donorID string, f RequestFilter) *gorm.DB {
	q := db.Model(&domain.Request{}).
		Joins("JOIN items ON items.id = requests.item_id").
		Where("items.donor_id = ?", donorID)
	if f.Status != "" {
		q = q.Where("requests.status = ?", f.Status)
	}
	return q
}

// CountRequestsByRequester returns how many requests requesterID has filed.
func CountRequestsByRequester(ctx context.Context, db *gorm.DB, requesterID string, f RequestFilter) (int64, error) {
	var total int64
	err := requesterScope(db.WithContext(ctx), requesterID, f).Count(&total).Error
	return total, err
}

// ListRequestsByRequester returns a page of the caller's own requests,
// newest first.
func ListRequestsByRequester(ctx context.Context, db *gorm.DB, requesterID string, f RequestFilter, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := requesterScope(db.WithContext(ctx), requesterID, f).
		Preload("Item").
		Order("requests.created_at desc, requests.id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountRequestsForDonor returns how many requests target items donated by donorID.
func CountRequestsForDonor(ctx context.Context, db *gorm.DB, donorID string, f RequestFilter) (int64, error) {
	var total int64
	err := donorScope(db.WithContext(ctx), donorID, f).Count(&total).Error
	return total, err
}

// ListRequestsForDonor returns a page of requests for items donated by
// donorID, newest first.
func ListRequestsForDonor(ctx context.Context, db *gorm.DB, donorID string, f RequestFilter, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := donorScope(db.WithContext(ctx), donorID, f).
		Select("requests.*").
		Preload("Item").
		Order("requests.created_at desc, requests.id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// HasOpenRequest reports whether requesterID already has a pending or
// accepted request for itemID.
func HasOpenRequest(ctx context.Context, db *gorm.DB, itemID, requesterID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("item_id = ? AND requester_id = ? AND status IN ?", itemID, requesterID,
			[]domain.RequestStatus{domain.RequestPending, domain.RequestAccepted}).
		Count(&n).Error
	return n > 0, err
}

// AcceptPending moves a pending request to accepted, assigning code as its
// pickup code. It is a single conditional UPDATE; ErrNotFound means the row
// was not pending.
func AcceptPending(ctx context.Context, db *gorm.DB, id, code, reply string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.RequestPending).
		Updates(map[string]any{
			"status":        domain.RequestAccepted,
			"pickup_code":   code,
			"reply_message": reply,
			"replied_at":    now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RejectPending moves a pending request to rejected. The pickup code stays
// null.
func RejectPending(ctx context.Context, db *gorm.DB, id, reply string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.RequestPending).
		Updates(map[string]any{
			"status":        domain.RequestRejected,
			"reply_message": reply,
			"replied_at":    now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReply stores a reply on request id while it is still pending. Accepted
// and rejected requests keep the reply given with their decision.
func SetReply(ctx context.Context, db *gorm.DB, id, message string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.RequestPending).
		Updates(map[string]any{"reply_message": message, "replied_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindRedeemableByCode returns the accepted request whose pickup code equals
// code and has not been used. Unknown and already used codes both yield
// ErrNotFound.
func FindRedeemableByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Preload("Item").
		Where("pickup_code = ? AND pickup_code_used_at IS NULL AND status = ?", code, domain.RequestAccepted).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkCollected stamps the pickup code as used and moves the request to
// collected. The WHERE clause is the compare-and-swap: of two concurrent
// callers only one sees RowsAffected == 1, the other gets ErrNotFound.
func MarkCollected(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ? AND pickup_code IS NOT NULL AND pickup_code_used_at IS NULL", id, domain.RequestAccepted).
		Updates(map[string]any{
			"status":              domain.RequestCollected,
			"pickup_code_used_at": now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rtshare/exchange-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank scope, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "item-1", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:         "expired",
		UserID:     "u1",
		ScopeID:    "item-1",
		Key:        "k1",
		ResourceID: "r1",
		Status:     201,
		CreatedAt:  now.Add(-2 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "u1", "item-1", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "item-1", "missing", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_SuccessDuplicateAndGet(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u9", "item-9", "k9", "r9", 201, 90*time.Minute)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec.ID == "" || rec.ResourceID != "r9" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if d := rec.ExpiresAt.Sub(start); d < 89*time.Minute || d > 91*time.Minute {
		t.Fatalf("ExpiresAt not ~now+ttl: %v", d)
	}

	if _, err := CreateIdempotency(ctx, db, "u9", "item-9", "k9", "other", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetIdempotency(ctx, db, "u9", "item-9", "k9", time.Now().UTC())
	if err != nil || got.ResourceID != "r9" {
		t.Fatalf("GetIdempotency: %+v err=%v", got, err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u", "s", "k", "r", 201, time.Hour); err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a plain DB error without table, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	_ = db.Create(&domain.Idempotency{ID: "old", UserID: "u", ScopeID: "s", Key: "a", ResourceID: "r", Status: 201, ExpiresAt: now.Add(-time.Minute)}).Error
	_ = db.Create(&domain.Idempotency{ID: "new", UserID: "u", ScopeID: "s", Key: "b", ResourceID: "r", Status: 201, ExpiresAt: now.Add(time.Hour)}).Error

	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredIdempotency = %d err=%v; want 1", n, err)
	}
}

func TestIsDuplicate(t *testing.T) {
	if IsDuplicate(nil) {
		t.Fatalf("nil is not a duplicate")
	}
	if !IsDuplicate(ErrDuplicate) || !IsDuplicate(errors.New("UNIQUE constraint failed: likes.item_id")) {
		t.Fatalf("expected duplicate detection")
	}
	if IsDuplicate(errors.New("no such table")) {
		t.Fatalf("unexpected duplicate detection")
	}
}

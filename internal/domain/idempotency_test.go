package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniqueKeyAndInsert(t *testing.T) {
	db := newDomainDB(t)

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:         "id-1",
		UserID:     "u1",
		ScopeID:    "item-1",
		Key:        "k1",
		ResourceID: "req-1",
		Status:     201,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UserID != "u1" || got.ScopeID != "item-1" || got.Key != "k1" || got.ResourceID != "req-1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("autoCreateTime should stamp created_at")
	}

	// same (user, scope, key) collides
	dup := *rec
	dup.ID = "id-2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation on (user_id, scope_id, key)")
	}

	// a different scope is fine
	other := *rec
	other.ID = "id-3"
	other.ScopeID = "item-2"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
}

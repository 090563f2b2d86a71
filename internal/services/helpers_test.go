package services

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rtshare/exchange-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:svc_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(domain.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// world is a small neighbourhood: "admin" founded rt, "donor" and "alice"
// joined it, "bob" lives in other, "eve" has a profile but no RT.
type world struct {
	DB    *gorm.DB
	RT    *domain.RT
	Other *domain.RT
	Item  *domain.Item

	Community *CommunityService
	Items     *ItemService
	Requests  *RequestService
	Pickups   *PickupService
	Social    *SocialService
	Inbox     *NotificationService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	w := &world{
		DB:        db,
		Community: NewCommunityService(db),
		Items:     NewItemService(db),
		Requests:  NewRequestService(db, 0),
		Pickups:   &PickupService{DB: db},
		Social:    NewSocialService(db),
		Inbox:     NewNotificationService(db),
	}

	var err error
	if w.RT, err = w.Community.CreateRT(ctx, "RT 03", "Cipete Utara", "Kebayoran Baru"); err != nil {
		t.Fatalf("CreateRT: %v", err)
	}
	if w.Other, err = w.Community.CreateRT(ctx, "RT 07", "Gandaria", "Kebayoran Baru"); err != nil {
		t.Fatalf("CreateRT: %v", err)
	}
	for _, p := range []struct{ id, name, rt string }{
		{"admin", "Pak RT", w.RT.ID},
		{"donor", "Bu Sari", w.RT.ID},
		{"alice", "Alice", w.RT.ID},
		{"bob", "Bob", w.Other.ID},
		{"eve", "Eve", ""},
	} {
		if _, err := w.Community.UpsertProfile(ctx, p.id, p.name, ""); err != nil {
			t.Fatalf("UpsertProfile(%s): %v", p.id, err)
		}
		if p.rt == "" {
			continue
		}
		if _, err := w.Community.Join(ctx, p.id, p.rt); err != nil {
			t.Fatalf("Join(%s): %v", p.id, err)
		}
	}

	w.Item, err = w.Items.Create(ctx, "donor", CreateItemInput{Title: "Baby  stroller", Category: "Kids"})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}
	return w
}

// accepted files a request by alice and has the donor accept it.
func (w *world) accepted(t *testing.T) *domain.Request {
	t.Helper()
	ctx := context.Background()
	req, _, err := w.Requests.Create(ctx, "alice", w.Item.ID, CreateRequestInput{Message: "for my son"})
	if err != nil {
		t.Fatalf("Create request: %v", err)
	}
	req, err = w.Requests.Accept(ctx, "donor", req.ID, "tomorrow at 5")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return req
}

package repo

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// newTestDB opens a private in-memory database and migrates the given models.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := "file:repo_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
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
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// newRepoDB opens a database with the full schema.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newTestDB(t, domain.All()...)
}

type fixture struct {
	RT   *domain.RT
	Item *domain.Item
}

// seed creates one RT and one available item donated by "donor".
func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	ctx := context.Background()
	rt, err := CreateRT(ctx, db, "RT 03", "Cipete", "Cilandak")
	if err != nil {
		t.Fatalf("CreateRT: %v", err)
	}
	it := &domain.Item{DonorID: "donor", RTID: rt.ID, Title: "Baby stroller", Category: "kids",
		Condition: domain.ConditionGood, Quantity: 1, Unit: "pcs"}
	if err := CreateItem(ctx, db, it); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return fixture{RT: rt, Item: it}
}

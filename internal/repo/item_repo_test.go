package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rtshare/exchange-backend/internal/domain"
)

func TestCreateItem_DefaultsAndGet(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	if fx.Item.ID == "" || fx.Item.Status != domain.ItemAvailable || fx.Item.CreatedAt.IsZero() {
		t.Fatalf("CreateItem did not fill defaults: %+v", fx.Item)
	}
	got, err := GetItem(ctx, db, fx.Item.ID)
	if err != nil || got.Title != "Baby stroller" || got.Unit != "pcs" {
		t.Fatalf("GetItem: %+v err=%v", got, err)
	}
	if _, err := GetItem(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListItems_FilterAndPaging(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	for i, cat := range []string{"kitchen", "kitchen", "books"} {
		it := &domain.Item{DonorID: "d2", RTID: fx.RT.ID, Title: "thing", Category: cat, Quantity: i + 1, Condition: domain.ConditionNew}
		if err := CreateItem(ctx, db, it); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	n, err := CountItems(ctx, db, fx.RT.ID, ItemFilter{})
	if err != nil || n != 4 {
		t.Fatalf("CountItems = %d err=%v; want 4", n, err)
	}
	n, _ = CountItems(ctx, db, fx.RT.ID, ItemFilter{Category: "kitchen"})
	if n != 2 {
		t.Fatalf("category filter count = %d; want 2", n)
	}
	n, _ = CountItems(ctx, db, fx.RT.ID, ItemFilter{DonorID: "donor"})
	if n != 1 {
		t.Fatalf("donor filter count = %d; want 1", n)
	}

	page, err := ListItemsPage(ctx, db, fx.RT.ID, ItemFilter{}, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListItemsPage: %d err=%v", len(page), err)
	}
	if page[0].Category != "books" {
		t.Fatalf("expected newest first, got %+v", page[0])
	}
	page2, _ := ListItemsPage(ctx, db, fx.RT.ID, ItemFilter{}, 2, 2)
	if len(page2) != 2 || page2[1].ID != fx.Item.ID {
		t.Fatalf("second page unexpected: %+v", page2)
	}
}

func TestTransitionItem_AndReserve(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	if err := TransitionItem(ctx, db, fx.Item.ID, domain.ItemRequested, domain.ItemAvailable); err != nil {
		t.Fatalf("available -> requested: %v", err)
	}
	if err := ReserveItem(ctx, db, fx.Item.ID); err != nil {
		t.Fatalf("ReserveItem: %v", err)
	}
	if err := ReserveItem(ctx, db, fx.Item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second reserve must fail the guard, got %v", err)
	}
	got, _ := GetItem(ctx, db, fx.Item.ID)
	if got.Status != domain.ItemReserved {
		t.Fatalf("status = %s; want reserved", got.Status)
	}
}

func TestListOpenItems_ExcludesReserved(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	other := &domain.Item{DonorID: "d", RTID: fx.RT.ID, Title: "Desk", Quantity: 1, Condition: domain.ConditionGood}
	_ = CreateItem(ctx, db, other)
	_ = ReserveItem(ctx, db, other.ID)

	open, err := ListOpenItems(ctx, db, fx.RT.ID, 0)
	if err != nil || len(open) != 1 || open[0].ID != fx.Item.ID {
		t.Fatalf("ListOpenItems: %+v err=%v", open, err)
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	if err := UpdateItem(ctx, db, fx.Item.ID, map[string]any{"title": "Stroller (blue)", "quantity": 2}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, _ := GetItem(ctx, db, fx.Item.ID)
	if got.Title != "Stroller (blue)" || got.Quantity != 2 || !got.UpdatedAt.After(fx.Item.UpdatedAt.Add(-time.Second)) {
		t.Fatalf("update not applied: %+v", got)
	}
	if err := UpdateItem(ctx, db, "missing", map[string]any{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	if err := DeleteItem(ctx, db, fx.Item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := GetRequest(ctx, db, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("requests should cascade with their item, got %v", err)
	}
	if err := DeleteItem(ctx, db, fx.Item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

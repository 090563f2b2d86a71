package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rtshare/exchange-backend/internal/domain"
)

func TestCreateRequest_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	r, err := CreateRequest(context.Background(), db, "i1", "u1", RequestDetails{})
	if err == nil || r != nil {
		t.Fatalf("expected error creating without table, got r=%v err=%v", r, err)
	}
}

func TestCreateAndGetRequest_PreloadsItem(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	when := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	r, err := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{Message: "for my son", PickupAddress: "Jl. Melati 4", ScheduledPickupDate: &when})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if r.Status != domain.RequestPending || r.PickupCode != nil || r.PickupCodeUsedAt != nil {
		t.Fatalf("new request must be pending without code: %+v", r)
	}

	got, err := GetRequest(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Item == nil || got.Item.ID != fx.Item.ID || got.Item.DonorID != "donor" {
		t.Fatalf("item not preloaded: %+v", got.Item)
	}
	if got.Message != "for my son" || got.PickupAddress != "Jl. Melati 4" || got.ScheduledPickupDate == nil {
		t.Fatalf("details not persisted: %+v", got)
	}

	if _, err := GetRequest(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptPending_CAS(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	now := time.Now().UTC()
	if err := AcceptPending(ctx, db, r.ID, "code-1", "see you at 5", now); err != nil {
		t.Fatalf("AcceptPending: %v", err)
	}
	got, _ := GetRequest(ctx, db, r.ID)
	if got.Status != domain.RequestAccepted || got.PickupCode == nil || *got.PickupCode != "code-1" ||
		got.RepliedAt == nil || got.ReplyMessage != "see you at 5" {
		t.Fatalf("unexpected accepted row: %+v", got)
	}

	// second accept and a reject both lose the guard
	if err := AcceptPending(ctx, db, r.ID, "code-2", "", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on non-pending accept, got %v", err)
	}
	if err := RejectPending(ctx, db, r.ID, "", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on non-pending reject, got %v", err)
	}
	got, _ = GetRequest(ctx, db, r.ID)
	if *got.PickupCode != "code-1" {
		t.Fatalf("code must not change, got %q", *got.PickupCode)
	}
}

func TestRejectPending_LeavesCodeNull(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "bob", RequestDetails{})
	if err := RejectPending(ctx, db, r.ID, "sorry", time.Now().UTC()); err != nil {
		t.Fatalf("RejectPending: %v", err)
	}
	got, _ := GetRequest(ctx, db, r.ID)
	if got.Status != domain.RequestRejected || got.PickupCode != nil || got.ReplyMessage != "sorry" || got.RepliedAt == nil {
		t.Fatalf("unexpected rejected row: %+v", got)
	}
}

func TestFindRedeemableByCode_AndMarkCollected(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	if _, err := FindRedeemableByCode(ctx, db, "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	_ = AcceptPending(ctx, db, r.ID, "tok", "", time.Now().UTC())

	found, err := FindRedeemableByCode(ctx, db, "tok")
	if err != nil || found.ID != r.ID || found.Item == nil {
		t.Fatalf("FindRedeemableByCode: got %+v err=%v", found, err)
	}

	if err := MarkCollected(ctx, db, r.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	got, _ := GetRequest(ctx, db, r.ID)
	if got.Status != domain.RequestCollected || got.PickupCodeUsedAt == nil {
		t.Fatalf("unexpected collected row: %+v", got)
	}

	// used codes are indistinguishable from unknown ones
	if _, err := FindRedeemableByCode(ctx, db, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for used code, got %v", err)
	}
	if err := MarkCollected(ctx, db, r.ID, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second MarkCollected must not match, got %v", err)
	}
}

func TestMarkCollected_PendingDoesNotMatch(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	if err := MarkCollected(ctx, db, r.ID, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending request must not be collectable, got %v", err)
	}
}

func TestMarkCollected_ConcurrentOnlyOneWins(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	// Shared-cache SQLite reports table locks instead of waiting; one
	// connection serializes the statements while still racing the goroutines.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	_ = AcceptPending(ctx, db, r.ID, "race", "", time.Now().UTC())

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := MarkCollected(ctx, db, r.ID, time.Now().UTC()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", wins)
	}
}

func TestHasOpenRequest(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	open, err := HasOpenRequest(ctx, db, fx.Item.ID, "alice")
	if err != nil || open {
		t.Fatalf("expected no open request, got %v err=%v", open, err)
	}
	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	if open, _ = HasOpenRequest(ctx, db, fx.Item.ID, "alice"); !open {
		t.Fatalf("pending request should count as open")
	}
	_ = RejectPending(ctx, db, r.ID, "", time.Now().UTC())
	if open, _ = HasOpenRequest(ctx, db, fx.Item.ID, "alice"); open {
		t.Fatalf("rejected request should not count as open")
	}
}

func TestListRequests_ByRequesterAndDonor(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	other := &domain.Item{DonorID: "someone-else", RTID: fx.RT.ID, Title: "Chair", Quantity: 1, Condition: domain.ConditionFair}
	if err := CreateItem(ctx, db, other); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	r1, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	time.Sleep(2 * time.Millisecond)
	r2, _ := CreateRequest(ctx, db, fx.Item.ID, "bob", RequestDetails{})
	_, _ = CreateRequest(ctx, db, other.ID, "alice", RequestDetails{})
	_ = RejectPending(ctx, db, r1.ID, "", time.Now().UTC())

	n, err := CountRequestsByRequester(ctx, db, "alice", RequestFilter{})
	if err != nil || n != 2 {
		t.Fatalf("CountRequestsByRequester = %d err=%v; want 2", n, err)
	}
	mine, err := ListRequestsByRequester(ctx, db, "alice", RequestFilter{Status: domain.RequestRejected}, 0, 10)
	if err != nil || len(mine) != 1 || mine[0].ID != r1.ID || mine[0].Item == nil {
		t.Fatalf("filtered requester list unexpected: %+v err=%v", mine, err)
	}

	n, err = CountRequestsForDonor(ctx, db, "donor", RequestFilter{})
	if err != nil || n != 2 {
		t.Fatalf("CountRequestsForDonor = %d err=%v; want 2", n, err)
	}
	incoming, err := ListRequestsForDonor(ctx, db, "donor", RequestFilter{}, 0, 10)
	if err != nil || len(incoming) != 2 {
		t.Fatalf("ListRequestsForDonor: %+v err=%v", incoming, err)
	}
	if incoming[0].ID != r2.ID {
		t.Fatalf("expected newest first, got %s", incoming[0].ID)
	}
	pending, _ := ListRequestsForDonor(ctx, db, "donor", RequestFilter{Status: domain.RequestPending}, 0, 10)
	if len(pending) != 1 || pending[0].ID != r2.ID {
		t.Fatalf("pending filter unexpected: %+v", pending)
	}
}

func TestSetReply_GuardsOnStatus(t *testing.T) {
	db := newRepoDB(t)
	fx := seed(t, db)
	ctx := context.Background()

	r, _ := CreateRequest(ctx, db, fx.Item.ID, "alice", RequestDetails{})
	now := time.Now().UTC()
	if err := SetReply(ctx, db, r.ID, "still there?", now); err != nil {
		t.Fatalf("SetReply: %v", err)
	}
	got, _ := GetRequest(ctx, db, r.ID)
	if got.ReplyMessage != "still there?" || got.RepliedAt == nil || got.Status != domain.RequestPending {
		t.Fatalf("reply not stored: %+v", got)
	}

	if err := AcceptPending(ctx, db, r.ID, "code-1", "come at 5", now); err != nil {
		t.Fatalf("AcceptPending: %v", err)
	}
	if err := SetReply(ctx, db, r.ID, "x", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reply on accepted should not match, got %v", err)
	}
	got, _ = GetRequest(ctx, db, r.ID)
	if got.ReplyMessage != "come at 5" {
		t.Fatalf("accept reply overwritten: %q", got.ReplyMessage)
	}
}

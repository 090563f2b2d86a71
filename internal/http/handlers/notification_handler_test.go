package handlers

import (
	"net/http"
	"testing"
)

func TestNotificationInbox(t *testing.T) {
	a := newAPI(t)
	a.createRequest("alice", "n-1")
	a.do(http.MethodPost, "/api/items/"+a.itemID+"/like", "alice", nil)

	w := a.do(http.MethodGet, "/api/notifications/unread-count", "donor", nil)
	if got := decode[CountResponse](t, w); got.Count != 2 {
		t.Fatalf("unread = %d, want 2", got.Count)
	}

	w = a.do(http.MethodGet, "/api/notifications?unread=true&limit=1", "donor", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	list := decode[ListNotificationsResponse](t, w).Notifications
	if len(list) != 1 {
		t.Fatalf("limit ignored: %d", len(list))
	}
	first := list[0]

	// Inboxes are private.
	expectError(t, a.do(http.MethodPost, "/api/notifications/"+first.ID+"/read", "alice", nil),
		http.StatusNotFound, ErrCodeNotFound)

	if w := a.do(http.MethodPost, "/api/notifications/"+first.ID+"/read", "donor", nil); w.Code != http.StatusNoContent {
		t.Fatalf("read: %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodGet, "/api/notifications/unread-count", "donor", nil)
	if got := decode[CountResponse](t, w); got.Count != 1 {
		t.Fatalf("unread = %d, want 1", got.Count)
	}

	w = a.do(http.MethodPost, "/api/notifications/read-all", "donor", nil)
	if got := decode[CountResponse](t, w); got.Count != 1 {
		t.Fatalf("read-all changed %d, want 1", got.Count)
	}

	if w := a.do(http.MethodDelete, "/api/notifications/"+first.ID, "donor", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	expectError(t, a.do(http.MethodDelete, "/api/notifications/"+first.ID, "donor", nil),
		http.StatusNotFound, ErrCodeNotFound)

	w = a.do(http.MethodGet, "/api/notifications", "donor", nil)
	if got := decode[ListNotificationsResponse](t, w).Notifications; len(got) != 1 || !got[0].IsRead {
		t.Fatalf("remaining = %+v", got)
	}
}

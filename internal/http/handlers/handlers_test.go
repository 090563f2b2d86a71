package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/http/middleware"
	"github.com/rtshare/exchange-backend/internal/services"
)

// ---------- test DB + fixture ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:handlers_" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
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
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// api is a running router over real services. "admin" founded RT 03,
// "donor" and "alice" joined it, "bob" lives in another RT, "eve" has a
// profile but no RT. The donor listed one item.
type api struct {
	t      *testing.T
	r      *gin.Engine
	db     *gorm.DB
	rtID   string
	itemID string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)

	community := services.NewCommunityService(db)
	items := services.NewItemService(db)

	rt, err := community.CreateRT(ctx, "RT 03", "Cipete Utara", "Kebayoran Baru")
	if err != nil {
		t.Fatalf("CreateRT: %v", err)
	}
	other, err := community.CreateRT(ctx, "RT 07", "Gandaria", "Kebayoran Baru")
	if err != nil {
		t.Fatalf("CreateRT: %v", err)
	}
	for _, p := range []struct{ id, rt string }{
		{"admin", rt.ID}, {"donor", rt.ID}, {"alice", rt.ID}, {"bob", other.ID}, {"eve", ""},
	} {
		if _, err := community.UpsertProfile(ctx, p.id, "Name "+p.id, ""); err != nil {
			t.Fatalf("UpsertProfile: %v", err)
		}
		if p.rt != "" {
			if _, err := community.Join(ctx, p.id, p.rt); err != nil {
				t.Fatalf("Join: %v", err)
			}
		}
	}
	it, err := items.Create(ctx, "donor", services.CreateItemInput{Title: "Baby stroller", Category: "Kids"})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}

	h := New(Deps{
		Requests:      services.NewRequestService(db, 0),
		Pickups:       services.NewPickupService(db),
		Items:         items,
		Community:     community,
		Social:        services.NewSocialService(db),
		Notifications: services.NewNotificationService(db),
		QRSize:        128,
	})

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Identify(middleware.AuthOptions{AllowDevHeader: true}),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil),
	)
	mount(r.Group("/api", middleware.RequireUser()), h)

	return &api{t: t, r: r, db: db, rtID: rt.ID, itemID: it.ID}
}

func mount(g *gin.RouterGroup, h *Handlers) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpsertProfile)
	g.POST("/rts", h.CreateRT)
	g.GET("/rts", h.ListRTs)
	g.POST("/rts/:id/join", h.JoinRT)
	g.GET("/rts/:id/members", h.ListMembers)
	g.GET("/membership", h.GetMembership)
	g.PUT("/members/:id/role", h.SetMemberRole)

	g.POST("/items", h.CreateItem)
	g.GET("/items", h.ListItems)
	g.GET("/items/search", h.SearchItems)
	g.GET("/items/:id", h.GetItem)
	g.PATCH("/items/:id", h.UpdateItem)
	g.DELETE("/items/:id", h.DeleteItem)
	g.GET("/items/:id/stats", h.ItemStats)
	g.POST("/items/:id/like", h.ToggleLike)
	g.GET("/items/:id/comments", h.ListComments)
	g.POST("/items/:id/comments", h.AddComment)
	g.DELETE("/comments/:id", h.DeleteComment)

	g.POST("/items/:id/requests", h.CreateRequest)
	g.GET("/requests", h.ListMyRequests)
	g.GET("/requests/incoming", h.ListIncomingRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.POST("/requests/:id/accept", h.AcceptRequest)
	g.POST("/requests/:id/reject", h.RejectRequest)
	g.POST("/requests/:id/reply", h.ReplyToRequest)
	g.GET("/requests/:id/pickup-code.png", h.PickupCodePNG)
	g.POST("/requests/:id/redeem", h.RedeemRequest)

	g.POST("/pickups/scan", h.ScanPickup)
	g.POST("/pickups/confirm", h.ConfirmPickup)

	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	g.POST("/notifications/:id/read", h.MarkNotificationRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// do sends a request as user. body may be nil, a string, or a value to JSON
// encode. Extra headers come as key/value pairs.
func (a *api) do(method, path, user string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderDevUser, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code = %q, want %q (%s)", er.Code, code, er.Message)
	}
	if er.RequestID == "" {
		t.Fatal("error envelope without request_id")
	}
	return er
}

// ---------- helpers ----------

func TestClampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query          string
		page, pageSize int
	}{
		{"", 1, 20},
		{"page=3&page_size=10", 3, 10},
		{"page=0&page_size=0", 1, 1},
		{"page=-2&page_size=1000", 1, 100},
		{"page=x&page_size=y", 1, 20},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		p, s := clampPagination(c)
		if p != tc.page || s != tc.pageSize {
			t.Fatalf("%q -> (%d,%d), want (%d,%d)", tc.query, p, s, tc.page, tc.pageSize)
		}
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 10, 25)
	if p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("unexpected %+v", p)
	}
	p = newPagination(1, 20, 0)
	if p.TotalPages != 0 || p.HasNext {
		t.Fatalf("unexpected %+v", p)
	}
}

func TestRequireUser_Unauthenticated(t *testing.T) {
	a := newAPI(t)
	expectError(t, a.do(http.MethodGet, "/api/items", "", nil), http.StatusUnauthorized, ErrCodeUnauthorized)
}

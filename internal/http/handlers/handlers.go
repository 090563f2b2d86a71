// Package handlers exposes the REST API of the exchange backend.
//
// Handlers are transport-thin: they bind and validate input, take the caller
// from the identity middleware, call a service, and translate the result (or
// the service error, see errors.go) into an HTTP response.
package handlers

import (
	"context"
	"math"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/http/middleware"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/services"
	"github.com/rtshare/exchange-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RequestService is the request lifecycle consumed by the handlers.
type RequestService interface {
	Create(ctx context.Context, userID, itemID string, in services.CreateRequestInput) (*domain.Request, bool, error)
	Accept(ctx context.Context, userID, requestID, reply string) (*domain.Request, error)
	Reject(ctx context.Context, userID, requestID, reply string) (*domain.Request, error)
	Reply(ctx context.Context, userID, requestID, message string) (*domain.Request, error)
	Get(ctx context.Context, userID, requestID string) (*domain.Request, error)
	ListMine(ctx context.Context, userID string, status domain.RequestStatus, page, pageSize int) ([]domain.Request, int64, error)
	ListIncoming(ctx context.Context, userID string, status domain.RequestStatus, page, pageSize int) ([]domain.Request, int64, error)
	PickupCode(ctx context.Context, userID, requestID string) (string, error)
}

// PickupService validates and redeems pickup codes.
type PickupService interface {
	Scan(ctx context.Context, userID, code string) (*domain.Request, error)
	Confirm(ctx context.Context, userID, code string) (*domain.Request, error)
	Redeem(ctx context.Context, userID, requestID string) (*domain.Request, bool, error)
}

// ItemService manages listings.
type ItemService interface {
	Create(ctx context.Context, userID string, in services.CreateItemInput) (*domain.Item, error)
	List(ctx context.Context, userID string, f repo.ItemFilter, page, pageSize int) ([]domain.Item, int64, error)
	Get(ctx context.Context, userID, itemID string) (*domain.Item, error)
	Update(ctx context.Context, userID, itemID string, in services.UpdateItemInput) (*domain.Item, error)
	Delete(ctx context.Context, userID, itemID string) error
	Search(ctx context.Context, userID, query string, k int) ([]services.ItemHit, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// CommunityService manages RTs, memberships and profiles.
type CommunityService interface {
	CreateRT(ctx context.Context, name, kelurahan, kecamatan string) (*domain.RT, error)
	ListRTs(ctx context.Context) ([]domain.RT, error)
	Join(ctx context.Context, userID, rtID string) (*domain.Member, error)
	Membership(ctx context.Context, userID string) (*domain.Member, error)
	Members(ctx context.Context, userID, rtID string) ([]domain.Member, error)
	SetRole(ctx context.Context, userID, memberID string, role domain.Role) (*domain.Member, error)
	UpsertProfile(ctx context.Context, userID, name, phone string) (*domain.Profile, error)
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
}

// SocialService manages likes and comments.
type SocialService interface {
	ToggleLike(ctx context.Context, userID, itemID string) (bool, error)
	Stats(ctx context.Context, userID, itemID string) (*services.ItemStats, error)
	ListComments(ctx context.Context, userID, itemID string, page, pageSize int) ([]domain.Comment, int64, error)
	AddComment(ctx context.Context, userID, itemID, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID string) error
}

// NotificationService exposes the caller's inbox.
type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

//
// Handler wiring
//

// Deps are the services the handlers call.
type Deps struct {
	Requests      RequestService
	Pickups       PickupService
	Items         ItemService
	Community     CommunityService
	Social        SocialService
	Notifications NotificationService

	// QRSize is the default edge of rendered pickup QR codes in pixels.
	QRSize int
}

// Handlers groups every API endpoint.
type Handlers struct {
	requests      RequestService
	pickups       PickupService
	items         ItemService
	community     CommunityService
	social        SocialService
	notifications NotificationService
	qrSize        int
}

// New constructs Handlers and installs the custom binding rules its DTOs use.
func New(d Deps) *Handlers {
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
	return &Handlers{
		requests:      d.Requests,
		pickups:       d.Pickups,
		items:         d.Items,
		community:     d.Community,
		social:        d.Social,
		notifications: d.Notifications,
		qrSize:        d.QRSize,
	}
}

// userID returns the caller set by the identity middleware. Routes are
// mounted behind RequireUser, so it is never empty there.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

//
// Pagination
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size, bounding them to sane values.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.IntInRange(c.Query("page"), defaultPage, 1, math.MaxInt32)
	pageSize = utils.IntInRange(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return page, pageSize
}

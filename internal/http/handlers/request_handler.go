// Request HTTP handlers.
//
//   - POST /items/{id}/requests          (Idempotency-Key aware)
//   - GET  /requests, GET /requests/incoming, GET /requests/{id}
//   - POST /requests/{id}/accept, /reject, /reply
//   - GET  /requests/{id}/pickup-code.png (requester only)
//   - POST /requests/{id}/redeem         (retry-safe redemption by id)
//
// Pickup codes are bearer secrets. A request is only serialized with its
// code for the requester; everyone else gets it with the code stripped.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/barcode"
	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/http/middleware"
	"github.com/rtshare/exchange-backend/internal/services"
	"github.com/rtshare/exchange-backend/internal/utils"
)

// HeaderIdempotencyReplayed marks a response replayed from an earlier POST.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// CreateRequestRequest is the JSON payload for POST /items/{id}/requests.
type CreateRequestRequest struct {
	Message             string     `json:"message"               binding:"max=2000" example:"Could I pick it up on Saturday?"`
	PickupAddress       string     `json:"pickup_address"        binding:"max=500"  example:"Jl. Melati 4"`
	ScheduledPickupDate *time.Time `json:"scheduled_pickup_date" example:"2026-10-20T09:00:00Z"`
}

// DecisionRequest is the optional JSON payload for accept and reject.
type DecisionRequest struct {
	ReplyMessage string `json:"reply_message" binding:"max=4000" example:"Sure, come by after 5pm"`
}

// ReplyRequest is the JSON payload for POST /requests/{id}/reply.
type ReplyRequest struct {
	Message string `json:"message" binding:"notblank,max=4000" example:"Still interested?"`
}

// ListRequestsResponse wraps a page of requests.
type ListRequestsResponse struct {
	Requests   []domain.Request `json:"requests"`
	Pagination Pagination       `json:"pagination"`
}

// RedeemResponse is returned by POST /requests/{id}/redeem.
type RedeemResponse struct {
	Request          *domain.Request `json:"request"`
	AlreadyCollected bool            `json:"already_collected"`
}

// forViewer returns req as uid may see it: without the pickup code unless
// uid is the requester.
func forViewer(req *domain.Request, uid string) *domain.Request {
	if req == nil || req.PickupCode == nil || req.RequesterID == uid {
		return req
	}
	cp := *req
	cp.PickupCode = nil
	return &cp
}

func forViewerAll(reqs []domain.Request, uid string) []domain.Request {
	for i := range reqs {
		if reqs[i].RequesterID != uid {
			reqs[i].PickupCode = nil
		}
	}
	return reqs
}

// parseRequestStatus reads ?status=, reporting false for unknown values.
func parseRequestStatus(c *gin.Context) (domain.RequestStatus, bool) {
	s := domain.RequestStatus(strings.TrimSpace(c.Query("status")))
	if s != "" && !s.Valid() {
		return "", false
	}
	return s, true
}

// CreateRequest godoc
// @ID          createRequest
// @Summary     Request an item
// @Description Files a pending request. With an Idempotency-Key, retries return the original request
// @Description with status 200 and Idempotency-Replayed: true.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id    path      string                          true  "Item ID"  format(uuid)
// @Param       body  body      handlers.CreateRequestRequest   true  "Request"
// @Success     201   {object}  domain.Request
// @Success     200   {object}  domain.Request  "Replayed"
// @Header      200   {string}  Idempotency-Replayed  "true when replayed"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Item not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Unavailable or duplicate"
// @Router      /items/{id}/requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request payload")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	out, replayed, err := h.requests.Create(c.Request.Context(), userID(c), c.Param("id"), services.CreateRequestInput{
		Message:             req.Message,
		PickupAddress:       req.PickupAddress,
		ScheduledPickupDate: req.ScheduledPickupDate,
		IdempotencyKey:      key,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, out)
		return
	}
	ok(c, http.StatusCreated, out)
}

// ListMyRequests godoc
// @ID          listMyRequests
// @Summary     List the caller's requests
// @Tags        Requests
// @Produce     json
// @Security    BearerAuth
// @Param       status     query  string  false  "pending|accepted|rejected|collected"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListRequestsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad status"
// @Router      /requests [get]
func (h *Handlers) ListMyRequests(c *gin.Context) {
	h.listRequests(c, h.requests.ListMine)
}

// ListIncomingRequests godoc
// @ID          listIncomingRequests
// @Summary     List requests for items the caller donated
// @Tags        Requests
// @Produce     json
// @Security    BearerAuth
// @Param       status     query  string  false  "pending|accepted|rejected|collected"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListRequestsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad status"
// @Router      /requests/incoming [get]
func (h *Handlers) ListIncomingRequests(c *gin.Context) {
	h.listRequests(c, h.requests.ListIncoming)
}

func (h *Handlers) listRequests(c *gin.Context, list func(ctx context.Context, userID string, status domain.RequestStatus, page, pageSize int) ([]domain.Request, int64, error)) {
	status, valid := parseRequestStatus(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be pending, accepted, rejected or collected")
		return
	}
	page, pageSize := clampPagination(c)
	uid := userID(c)
	out, total, err := list(c.Request.Context(), uid, status, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: forViewerAll(out, uid), Pagination: newPagination(page, pageSize, total)})
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Get a request
// @Description Visible to the requester, the donor, and admins of the item's RT.
// @Tags        Requests
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Request ID"  format(uuid)
// @Success     200  {object}  domain.Request
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	uid := userID(c)
	req, err := h.requests.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, forViewer(req, uid))
}

// AcceptRequest godoc
// @ID          acceptRequest
// @Summary     Accept a pending request
// @Description Assigns a fresh pickup code and reserves the item. Only pending requests can be accepted.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                     true   "Request ID"  format(uuid)
// @Param       body  body      handlers.DecisionRequest   false  "Optional reply"
// @Success     200   {object}  domain.Request
// @Failure     403   {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Not pending or item unavailable"
// @Router      /requests/{id}/accept [post]
func (h *Handlers) AcceptRequest(c *gin.Context) {
	reply, okBind := bindDecision(c)
	if !okBind {
		return
	}
	uid := userID(c)
	req, err := h.requests.Accept(c.Request.Context(), uid, c.Param("id"), reply)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, forViewer(req, uid))
}

// RejectRequest godoc
// @ID          rejectRequest
// @Summary     Reject a pending request
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                     true   "Request ID"  format(uuid)
// @Param       body  body      handlers.DecisionRequest   false  "Optional reply"
// @Success     200   {object}  domain.Request
// @Failure     403   {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Not pending"
// @Router      /requests/{id}/reject [post]
func (h *Handlers) RejectRequest(c *gin.Context) {
	reply, okBind := bindDecision(c)
	if !okBind {
		return
	}
	uid := userID(c)
	req, err := h.requests.Reject(c.Request.Context(), uid, c.Param("id"), reply)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, forViewer(req, uid))
}

// bindDecision reads the optional reply body. An empty body is allowed.
func bindDecision(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid reply payload")
		return "", false
	}
	return req.ReplyMessage, true
}

// ReplyToRequest godoc
// @ID          replyToRequest
// @Summary     Send the requester a message without changing the status
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true  "Request ID"  format(uuid)
// @Param       body  body      handlers.ReplyRequest   true  "Reply"
// @Success     200   {object}  domain.Request
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse  "Request is closed"
// @Router      /requests/{id}/reply [post]
func (h *Handlers) ReplyToRequest(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	uid := userID(c)
	out, err := h.requests.Reply(c.Request.Context(), uid, c.Param("id"), req.Message)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, forViewer(out, uid))
}

// PickupCodePNG godoc
// @ID          pickupCodePNG
// @Summary     Render the pickup code as a QR PNG
// @Description Only the requester of an accepted, unredeemed request may fetch it. Never cached.
// @Tags        Requests
// @Produce     png
// @Security    BearerAuth
// @Param       id    path   string  true   "Request ID"  format(uuid)
// @Param       size  query  int     false  "Edge in pixels"  minimum(64) maximum(2048)
// @Success     200  {file}    binary
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "No usable code"
// @Router      /requests/{id}/pickup-code.png [get]
func (h *Handlers) PickupCodePNG(c *gin.Context) {
	code, err := h.requests.PickupCode(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	png, err := barcode.PNG(code, utils.IntInRange(c.Query("size"), h.qrSize, 64, 2048))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// RedeemRequest godoc
// @ID          redeemRequest
// @Summary     Mark an accepted request as collected
// @Description Retry-safe: redeeming an already collected request succeeds with already_collected=true.
// @Tags        Requests
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Request ID"  format(uuid)
// @Success     200  {object}  handlers.RedeemResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not donor or RT admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not accepted"
// @Router      /requests/{id}/redeem [post]
func (h *Handlers) RedeemRequest(c *gin.Context) {
	uid := userID(c)
	req, already, err := h.pickups.Redeem(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, RedeemResponse{Request: forViewer(req, uid), AlreadyCollected: already})
}

// Pickup HTTP handlers.
//
//   - POST /pickups/scan     preview a scanned code (no state change)
//   - POST /pickups/confirm  redeem a scanned code exactly once
//
// Unknown, forged and used codes all answer 404 invalid_pickup_code. A valid
// code presented by someone who may not redeem it answers 403 with no
// request data.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// PickupCodeRequest carries a code decoded from the requester's QR.
type PickupCodeRequest struct {
	Code string `json:"code" binding:"notblank" example:"3f2b8c1e-5d7a-4e21-9a0b-7c6d5e4f3a21"`
}

// ScanResponse previews the pickup a valid code unlocks.
type ScanResponse struct {
	Valid   bool            `json:"valid"`
	Request *domain.Request `json:"request"`
}

// ScanPickup godoc
// @ID          scanPickup
// @Summary     Validate a pickup code without redeeming it
// @Tags        Pickups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.PickupCodeRequest  true  "Scanned code"
// @Success     200   {object}  handlers.ScanResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing code"
// @Failure     403   {object}  handlers.ErrorResponse  "Not donor or RT admin"
// @Failure     404   {object}  handlers.ErrorResponse  "Invalid or expired pickup code"
// @Router      /pickups/scan [post]
func (h *Handlers) ScanPickup(c *gin.Context) {
	code, okBind := bindPickupCode(c)
	if !okBind {
		return
	}
	uid := userID(c)
	req, err := h.pickups.Scan(c.Request.Context(), uid, code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ScanResponse{Valid: true, Request: forViewer(req, uid)})
}

// ConfirmPickup godoc
// @ID          confirmPickup
// @Summary     Redeem a pickup code
// @Description Atomically marks the request collected. A second confirmation of the same code fails
// @Description with invalid_pickup_code.
// @Tags        Pickups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.PickupCodeRequest  true  "Scanned code"
// @Success     200   {object}  domain.Request
// @Failure     400   {object}  handlers.ErrorResponse  "Missing code"
// @Failure     403   {object}  handlers.ErrorResponse  "Not donor or RT admin"
// @Failure     404   {object}  handlers.ErrorResponse  "Invalid or expired pickup code"
// @Router      /pickups/confirm [post]
func (h *Handlers) ConfirmPickup(c *gin.Context) {
	code, okBind := bindPickupCode(c)
	if !okBind {
		return
	}
	uid := userID(c)
	req, err := h.pickups.Confirm(c.Request.Context(), uid, code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, forViewer(req, uid))
}

// bindPickupCode reads the code. Only a malformed body or a blank code is a
// 400; any other string goes to the lookup, so oversize and forged codes
// share the invalid_pickup_code answer.
func bindPickupCode(c *gin.Context) (string, bool) {
	var req PickupCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a non-empty code is required")
		return "", false
	}
	return req.Code, true
}

// Community HTTP handlers.
//
//   - GET  /profile, PUT /profile
//   - POST /rts, GET /rts
//   - POST /rts/{id}/join, GET /rts/{id}/members
//   - GET  /membership
//   - PUT  /members/{id}/role
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// UpsertProfileRequest is the JSON payload for PUT /profile.
type UpsertProfileRequest struct {
	Name  string `json:"name"  binding:"notblank,max=120" example:"Sari Wulandari"`
	Phone string `json:"phone" binding:"max=32"           example:"081234567890"`
}

// CreateRTRequest is the JSON payload for POST /rts.
type CreateRTRequest struct {
	Name      string `json:"name"      binding:"notblank,max=120" example:"RT 03 / RW 05"`
	Kelurahan string `json:"kelurahan" binding:"notblank,max=120" example:"Menteng"`
	Kecamatan string `json:"kecamatan" binding:"notblank,max=120" example:"Menteng"`
}

// SetRoleRequest is the JSON payload for PUT /members/{id}/role.
type SetRoleRequest struct {
	Role domain.Role `json:"role" binding:"required,oneof=admin member" example:"admin"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the caller's profile
// @Tags        Community
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Profile
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "No profile yet"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.community.Profile(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpsertProfile godoc
// @ID          upsertProfile
// @Summary     Create or update the caller's profile
// @Tags        Community
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.UpsertProfileRequest  true  "Profile"
// @Success     200   {object}  domain.Profile
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Router      /profile [put]
func (h *Handlers) UpsertProfile(c *gin.Context) {
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required (max 120 chars), phone max 32 chars")
		return
	}
	p, err := h.community.UpsertProfile(c.Request.Context(), userID(c), req.Name, req.Phone)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// CreateRT godoc
// @ID          createRT
// @Summary     Register a neighbourhood (RT)
// @Tags        Community
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateRTRequest  true  "RT"
// @Success     201   {object}  domain.RT
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse  "RT already exists"
// @Router      /rts [post]
func (h *Handlers) CreateRT(c *gin.Context) {
	var req CreateRTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, kelurahan and kecamatan are required")
		return
	}
	rt, err := h.community.CreateRT(c.Request.Context(), req.Name, req.Kelurahan, req.Kecamatan)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, rt)
}

// ListRTs godoc
// @ID          listRTs
// @Summary     List RTs
// @Tags        Community
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   domain.RT
// @Router      /rts [get]
func (h *Handlers) ListRTs(c *gin.Context) {
	rts, err := h.community.ListRTs(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rts)
}

// JoinRT godoc
// @ID          joinRT
// @Summary     Join an RT
// @Description The first member of an RT becomes its admin. A profile is required.
// @Tags        Community
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "RT ID"  format(uuid)
// @Success     201  {object}  domain.Member
// @Failure     404  {object}  handlers.ErrorResponse  "RT or profile not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already a member of an RT"
// @Router      /rts/{id}/join [post]
func (h *Handlers) JoinRT(c *gin.Context) {
	m, err := h.community.Join(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListMembers godoc
// @ID          listMembers
// @Summary     List members of the caller's RT
// @Tags        Community
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "RT ID"  format(uuid)
// @Success     200  {array}   domain.Member
// @Failure     403  {object}  handlers.ErrorResponse  "Not a member"
// @Router      /rts/{id}/members [get]
func (h *Handlers) ListMembers(c *gin.Context) {
	ms, err := h.community.Members(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ms)
}

// GetMembership godoc
// @ID          getMembership
// @Summary     Get the caller's RT membership
// @Tags        Community
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Member
// @Failure     403  {object}  handlers.ErrorResponse  "Not a member of any RT"
// @Router      /membership [get]
func (h *Handlers) GetMembership(c *gin.Context) {
	m, err := h.community.Membership(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// SetMemberRole godoc
// @ID          setMemberRole
// @Summary     Change a member's role
// @Description Only admins of the same RT may change roles; the last admin cannot be demoted.
// @Tags        Community
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                     true  "Member ID"  format(uuid)
// @Param       body  body      handlers.SetRoleRequest    true  "Role"
// @Success     200   {object}  domain.Member
// @Failure     403   {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     409   {object}  handlers.ErrorResponse  "Last admin"
// @Router      /members/{id}/role [put]
func (h *Handlers) SetMemberRole(c *gin.Context) {
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be admin or member")
		return
	}
	m, err := h.community.SetRole(c.Request.Context(), userID(c), c.Param("id"), req.Role)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

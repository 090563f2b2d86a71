// Notification HTTP handlers.
//
//   - GET    /notifications?unread=true&limit=
//   - GET    /notifications/unread-count
//   - POST   /notifications/{id}/read, POST /notifications/read-all
//   - DELETE /notifications/{id}
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/utils"
)

// ListNotificationsResponse wraps the newest notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// CountResponse carries a single count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications (newest first)
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       unread  query  bool  false  "Only unread"
// @Param       limit   query  int   false  "Max results"  minimum(1) maximum(100) default(100)
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.Query("unread"))
	ns, err := h.notifications.List(c.Request.Context(), userID(c), unread, utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		failErr(c, err)
		return
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: ns})
}

// UnreadCount godoc
// @ID          unreadNotificationCount
// @Summary     Count unread notifications
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CountResponse
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark one notification as read
// @Tags        Notifications
// @Security    BearerAuth
// @Param       id   path      string  true  "Notification ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark every notification as read
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CountResponse  "Number of notifications changed"
// @Router      /notifications/read-all [post]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}

// DeleteNotification godoc
// @ID          deleteNotification
// @Summary     Delete a notification
// @Tags        Notifications
// @Security    BearerAuth
// @Param       id   path      string  true  "Notification ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /notifications/{id} [delete]
func (h *Handlers) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

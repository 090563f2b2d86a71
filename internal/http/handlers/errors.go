// Package handlers defines HTTP-layer error codes and the mapping from service
// errors to HTTP responses.
//
// Codes are stable, lowercase snake_case strings that clients branch on. The
// handler layer is the only place where service errors become status codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_pickup_code",
//	  "message": "invalid or expired pickup code"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/services"
)

const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeInvalidPickupCode = "invalid_pickup_code"
	ErrCodeRateLimited       = "too_many_requests"
	ErrCodeInternal          = "internal_error"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is scanned in order with errors.Is. Service messages are safe to
// show; anything not listed becomes a generic 500.
var errorTable = []errorMapping{
	// Pickup. Unknown, forged and used codes share one outcome.
	{services.ErrInvalidPickupCode, http.StatusNotFound, ErrCodeInvalidPickupCode},
	{services.ErrPickupForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrPickupCodeUnavailable, http.StatusConflict, ErrCodeConflict},

	// Requests.
	{services.ErrRequestNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrRequestNotPending, http.StatusConflict, ErrCodeConflict},
	{services.ErrRequestNotAccepted, http.StatusConflict, ErrCodeConflict},
	{services.ErrDuplicateRequest, http.StatusConflict, ErrCodeConflict},
	{services.ErrOwnItem, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidReply, http.StatusBadRequest, ErrCodeBadRequest},

	// Items.
	{services.ErrItemNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrItemUnavailable, http.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidItem, http.StatusBadRequest, ErrCodeBadRequest},

	// Community.
	{services.ErrRTNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrMemberNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrDuplicateRT, http.StatusConflict, ErrCodeConflict},
	{services.ErrAlreadyMember, http.StatusConflict, ErrCodeConflict},
	{services.ErrLastAdmin, http.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidRT, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidRole, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidProfile, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNotMember, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},

	// Social.
	{services.ErrCommentNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrInvalidComment, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNotificationNotFound, http.StatusNotFound, ErrCodeNotFound},
}

// mapError translates a service error into status, code and message.
func mapError(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error()
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrCodeInternal, "service temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
	}
}

// failErr writes the response for a service error. Unmapped errors are
// logged with their cause; the client only sees the generic message.
func failErr(c *gin.Context, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, code, msg)
}

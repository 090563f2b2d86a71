// Package services defines the business logic for neighbourhood communities,
// shared items, requests and their pickup codes, and the social records
// around them. This file centralizes service-level error values so that they
// can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Request lifecycle errors.
var (
	// ErrRequestNotFound indicates that the request does not exist or is not
	// visible to the caller.
	ErrRequestNotFound = errors.New("request not found")

	// ErrRequestNotPending is returned by accept/reject on a request that has
	// already left the pending state, including when a concurrent writer won.
	ErrRequestNotPending = errors.New("request is not pending")

	// ErrRequestNotAccepted is returned when redeeming a request that was
	// never accepted.
	ErrRequestNotAccepted = errors.New("request is not accepted")

	// ErrDuplicateRequest is returned when the caller already has an open
	// request for the same item.
	ErrDuplicateRequest = errors.New("an open request for this item already exists")

	// ErrOwnItem is returned when a donor requests their own item.
	ErrOwnItem = errors.New("cannot request your own item")

	// ErrInvalidReply is returned when a reply message is empty or too long.
	ErrInvalidReply = errors.New("reply message must be between 1 and 1000 characters")
)

// Pickup code errors.
var (
	// ErrInvalidPickupCode covers unknown, forged and already used codes.
	// The cases are deliberately indistinguishable.
	ErrInvalidPickupCode = errors.New("invalid or expired pickup code")

	// ErrPickupForbidden is returned when the presenter of a valid code is
	// neither the donor nor an admin of the item's RT.
	ErrPickupForbidden = errors.New("you do not have permission to validate this pickup code")

	// ErrPickupCodeUnavailable is returned when a requester asks for the code
	// of a request that has none or whose code was used.
	ErrPickupCodeUnavailable = errors.New("pickup code is not available for this request")
)

// Item errors.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrItemUnavailable = errors.New("item is no longer available")
	ErrInvalidItem     = errors.New("invalid item")
)

// Community and access errors.
var (
	ErrRTNotFound      = errors.New("rt not found")
	ErrDuplicateRT     = errors.New("rt already exists")
	ErrInvalidRT       = errors.New("rt name, kelurahan and kecamatan are required")
	ErrNotMember       = errors.New("caller is not a member of this rt")
	ErrAlreadyMember   = errors.New("caller already belongs to an rt")
	ErrMemberNotFound  = errors.New("member not found")
	ErrInvalidRole     = errors.New("role must be admin or member")
	ErrLastAdmin       = errors.New("an rt must keep at least one admin")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("profile name is required")

	// ErrForbidden is returned when the caller may see a record but not
	// change it.
	ErrForbidden = errors.New("forbidden")
)

// Social errors.
var (
	ErrCommentNotFound      = errors.New("comment not found")
	ErrInvalidComment       = errors.New("comment must be between 1 and 1000 characters")
	ErrNotificationNotFound = errors.New("notification not found")
)

package domain

// RequestStatus is the lifecycle state of a Request.
//
//	pending --accept--> accepted --redeem--> collected
//	pending --reject--> rejected
//
// rejected and collected are terminal.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCollected RequestStatus = "collected"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestRejected, RequestCollected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCollected
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestAccepted || next == RequestRejected
	case RequestAccepted:
		return next == RequestCollected
	}
	return false
}

// Open reports whether the request still blocks a new request for the same
// item by the same requester.
func (s RequestStatus) Open() bool {
	return s == RequestPending || s == RequestAccepted
}

// ItemStatus is the availability of a shared item.
type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemRequested ItemStatus = "requested"
	ItemReserved  ItemStatus = "reserved"
	ItemCollected ItemStatus = "collected"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemAvailable, ItemRequested, ItemReserved, ItemCollected:
		return true
	}
	return false
}

// Requestable reports whether new requests may be filed against the item.
func (s ItemStatus) Requestable() bool {
	return s == ItemAvailable || s == ItemRequested
}

// ItemCondition describes the physical state of an item.
type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like_new"
	ConditionGood    ItemCondition = "good"
	ConditionFair    ItemCondition = "fair"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// Role is a member's role within an RT.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifyRequest NotificationType = "request"
	NotifyAccept  NotificationType = "accept"
	NotifyReject  NotificationType = "reject"
	NotifyReply   NotificationType = "reply"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyLike, NotifyComment, NotifyRequest, NotifyAccept, NotifyReject, NotifyReply:
		return true
	}
	return false
}

// RelatedType names the kind of record a notification points at.
type RelatedType string

const (
	RelatedItem    RelatedType = "item"
	RelatedRequest RelatedType = "request"
	RelatedComment RelatedType = "comment"
)

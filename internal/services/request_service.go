// Package services – RequestService
//
// This file implements RequestService, which owns the request lifecycle:
//
//	pending --accept--> accepted --redeem--> collected
//	pending --reject--> rejected
//
// Every transition is one conditional UPDATE guarded on the current status,
// run in the same transaction as its side effects (item status, requester
// notification). A caller that loses a race sees the same error as one that
// violated the precondition.
//
// Observability: lifecycle methods are OpenTelemetry-instrumented and each
// successful transition increments exchange_request_transitions_total.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/observability"
	"github.com/rtshare/exchange-backend/internal/repo"
)

const maxReplyRunes = 1000

// errIdemRace signals that a concurrent call stored the same idempotency key
// first; the transaction rolls back and the stored result is replayed.
var errIdemRace = errors.New("idempotency key raced")

// RequestService coordinates the request lifecycle.
type RequestService struct {
	DB *gorm.DB

	// NewCode returns a fresh pickup code. Defaults to a random UUID.
	NewCode func() string

	// IdempotencyTTL bounds how long an Idempotency-Key replays the request
	// it created. Defaults to 24h.
	IdempotencyTTL time.Duration

	// Now is the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// NewRequestService returns a RequestService with default code generator
// and clock.
func NewRequestService(db *gorm.DB, idemTTL time.Duration) *RequestService {
	return &RequestService{DB: db, IdempotencyTTL: idemTTL}
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *RequestService) newCode() string {
	if s.NewCode != nil {
		return s.NewCode()
	}
	return uuid.NewString()
}

func (s *RequestService) idemTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// CreateRequestInput carries what a requester submits.
type CreateRequestInput struct {
	Message             string
	PickupAddress       string
	ScheduledPickupDate *time.Time

	// IdempotencyKey, when set, makes retries return the first request.
	IdempotencyKey string
}

// Create files a pending request by userID for itemID. The caller must be a
// member of the item's RT (others get ErrItemNotFound), must not be the
// donor, and must not already hold an open request for the item. The first
// request moves the item from available to requested, and the donor is
// notified.
//
// With an IdempotencyKey, a retry returns the original request and
// replayed=true without repeating side effects.
func (s *RequestService) Create(ctx context.Context, userID, itemID string, in CreateRequestInput) (req *domain.Request, replayed bool, err error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("item.id", itemID),
			attribute.String("user.id", userID),
			attribute.Bool("idempotent", in.IdempotencyKey != ""),
		),
	)
	defer span.End()

	key := strings.TrimSpace(in.IdempotencyKey)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			rec, err := repo.GetIdempotency(ctx, tx, userID, itemID, key, s.now())
			switch {
			case err == nil:
				prev, err := repo.GetRequest(ctx, tx, rec.ResourceID)
				if err != nil {
					return err
				}
				req, replayed = prev, true
				return nil
			case !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}

		it, err := visibleItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if it.DonorID == userID {
			return ErrOwnItem
		}
		if !it.Status.Requestable() {
			return ErrItemUnavailable
		}
		open, err := repo.HasOpenRequest(ctx, tx, itemID, userID)
		if err != nil {
			return err
		}
		if open {
			return ErrDuplicateRequest
		}

		created, err := repo.CreateRequest(ctx, tx, itemID, userID, repo.RequestDetails{
			Message:             strings.TrimSpace(in.Message),
			PickupAddress:       strings.TrimSpace(in.PickupAddress),
			ScheduledPickupDate: in.ScheduledPickupDate,
		})
		if err != nil {
			return err
		}

		// Only the first request flips the item; later ones find it requested.
		if err := repo.TransitionItem(ctx, tx, itemID, domain.ItemRequested, domain.ItemAvailable); err != nil && !isNotFound(err) {
			return err
		}

		if err := notify(ctx, tx, userID, requestedNotice(it.DonorID, displayName(ctx, tx, userID), it.Title, created.ID)); err != nil {
			return err
		}

		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, userID, itemID, key, created.ID, 201, s.idemTTL()); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return errIdemRace
				}
				return err
			}
		}

		created.Item = it
		req = created
		return nil
	})

	if errors.Is(err, errIdemRace) {
		rec, gerr := repo.GetIdempotency(ctx, s.DB, userID, itemID, key, s.now())
		if gerr != nil {
			return nil, false, gerr
		}
		prev, gerr := repo.GetRequest(ctx, s.DB, rec.ResourceID)
		if gerr != nil {
			return nil, false, gerr
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !replayed {
		observability.RecordTransition(string(domain.RequestPending))
	}
	return req, replayed, nil
}

// loadManaged loads a request and checks that userID may decide on it (the
// item's donor or an admin of its RT). Requests the caller cannot see are
// reported as ErrRequestNotFound; visible but unmanageable ones as
// ErrForbidden.
func loadManaged(ctx context.Context, tx *gorm.DB, userID, requestID string) (*domain.Request, error) {
	req, err := repo.GetRequest(ctx, tx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	ok, err := canManageItem(ctx, tx, userID, req.Item)
	if err != nil {
		return nil, err
	}
	if !ok {
		if req.RequesterID == userID {
			return nil, ErrForbidden
		}
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func normalizeReply(reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if utf8.RuneCountInString(reply) > maxReplyRunes {
		return "", ErrInvalidReply
	}
	return reply, nil
}

// Accept moves a pending request to accepted on behalf of the item's donor
// or an RT admin. It stamps replied_at, stores the optional reply, assigns a
// fresh pickup code and reserves the item. If the item is already reserved
// or collected (for example through a sibling request) nothing changes and
// ErrItemUnavailable is returned.
func (s *RequestService) Accept(ctx context.Context, userID, requestID, reply string) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Accept",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	reply, err := normalizeReply(reply)
	if err != nil {
		return nil, err
	}

	var out *domain.Request
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadManaged(ctx, tx, userID, requestID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(domain.RequestAccepted) {
			return ErrRequestNotPending
		}

		if err := repo.AcceptPending(ctx, tx, req.ID, s.newCode(), reply, s.now()); err != nil {
			if isNotFound(err) {
				return ErrRequestNotPending
			}
			return err
		}
		if err := repo.ReserveItem(ctx, tx, req.ItemID); err != nil {
			if isNotFound(err) {
				return ErrItemUnavailable
			}
			return err
		}
		if err := notify(ctx, tx, userID, acceptedNotice(req.RequesterID, req.Item.Title, req.ID)); err != nil {
			return err
		}

		out, err = repo.GetRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.RecordTransition(string(domain.RequestAccepted))
	return out, nil
}

// Reject moves a pending request to rejected. The pickup code stays null and
// the item status is left alone.
func (s *RequestService) Reject(ctx context.Context, userID, requestID, reply string) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	reply, err := normalizeReply(reply)
	if err != nil {
		return nil, err
	}

	var out *domain.Request
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadManaged(ctx, tx, userID, requestID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(domain.RequestRejected) {
			return ErrRequestNotPending
		}
		if err := repo.RejectPending(ctx, tx, req.ID, reply, s.now()); err != nil {
			if isNotFound(err) {
				return ErrRequestNotPending
			}
			return err
		}
		if err := notify(ctx, tx, userID, rejectedNotice(req.RequesterID, req.Item.Title, req.ID)); err != nil {
			return err
		}
		out, err = repo.GetRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.RecordTransition(string(domain.RequestRejected))
	return out, nil
}

// Reply stores a message for the requester on a pending request without
// changing its status. Once accepted or rejected, the decision's reply stands
// and ErrRequestNotPending is returned.
func (s *RequestService) Reply(ctx context.Context, userID, requestID, message string) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Reply",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	message, err := normalizeReply(message)
	if err != nil {
		return nil, err
	}
	if message == "" {
		return nil, ErrInvalidReply
	}

	var out *domain.Request
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadManaged(ctx, tx, userID, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.RequestPending {
			return ErrRequestNotPending
		}
		if err := repo.SetReply(ctx, tx, req.ID, message, s.now()); err != nil {
			if isNotFound(err) {
				return ErrRequestNotPending
			}
			return err
		}
		if err := notify(ctx, tx, userID, replyNotice(req.RequesterID, req.Item.Title, req.ID)); err != nil {
			return err
		}
		out, err = repo.GetRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a request visible to its requester, the item's donor, or an
// admin of the item's RT.
func (s *RequestService) Get(ctx context.Context, userID, requestID string) (*domain.Request, error) {
	req, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.RequesterID == userID {
		return req, nil
	}
	ok, err := canManageItem(ctx, s.DB, userID, req.Item)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListMine returns a page of the caller's own requests.
func (s *RequestService) ListMine(ctx context.Context, userID string, status domain.RequestStatus, page, pageSize int) ([]domain.Request, int64, error) {
	_, pageSize, offset := pageBounds(page, pageSize)
	f := repo.RequestFilter{Status: status}

	total, err := repo.CountRequestsByRequester(ctx, s.DB, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Request{}, 0, nil
	}
	out, err := repo.ListRequestsByRequester(ctx, s.DB, userID, f, offset, pageSize)
	return out, total, err
}

// ListIncoming returns a page of requests for items donated by the caller.
func (s *RequestService) ListIncoming(ctx context.Context, userID string, status domain.RequestStatus, page, pageSize int) ([]domain.Request, int64, error) {
	_, pageSize, offset := pageBounds(page, pageSize)
	f := repo.RequestFilter{Status: status}

	total, err := repo.CountRequestsForDonor(ctx, s.DB, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Request{}, 0, nil
	}
	out, err := repo.ListRequestsForDonor(ctx, s.DB, userID, f, offset, pageSize)
	return out, total, err
}

// PickupCode returns the unused pickup code of an accepted request. Only the
// requester may fetch it; everyone else gets ErrRequestNotFound.
func (s *RequestService) PickupCode(ctx context.Context, userID, requestID string) (string, error) {
	req, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrRequestNotFound
		}
		return "", err
	}
	if req.RequesterID != userID {
		return "", ErrRequestNotFound
	}
	if req.Status != domain.RequestAccepted || req.PickupCode == nil || req.PickupCodeUsedAt != nil {
		return "", ErrPickupCodeUnavailable
	}
	return *req.PickupCode, nil
}

// Package services – PickupService
//
// This file implements the redemption half of the pickup protocol. A pickup
// code is consumed exactly once: the lookup (code matches, unused, request
// accepted) and the state change (accepted -> collected, used_at stamped) are
// one conditional UPDATE inside one transaction, so two scanners racing on
// the same code cannot both succeed.
//
// Unknown, forged and already used codes all yield ErrInvalidPickupCode.
// A valid code presented by someone who is neither the donor nor an admin of
// the item's RT yields ErrPickupForbidden, and the request is not returned.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/observability"
	"github.com/rtshare/exchange-backend/internal/repo"
)

// PickupService validates and redeems pickup codes.
type PickupService struct {
	DB *gorm.DB

	// Now is the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// NewPickupService constructs a PickupService.
func NewPickupService(db *gorm.DB) *PickupService {
	return &PickupService{DB: db}
}

func (s *PickupService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Validate returns the accepted, unredeemed request whose pickup code equals
// code, or ErrInvalidPickupCode.
func (s *PickupService) Validate(ctx context.Context, code string) (*domain.Request, error) {
	return validateCode(ctx, s.DB, code)
}

// maxPickupCodeLen is the width of requests.pickup_code.
const maxPickupCodeLen = 64

func validateCode(ctx context.Context, db *gorm.DB, code string) (*domain.Request, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > maxPickupCodeLen {
		return nil, ErrInvalidPickupCode
	}
	req, err := repo.FindRedeemableByCode(ctx, db, code)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidPickupCode
		}
		return nil, err
	}
	return req, nil
}

// Authorize checks that userID may redeem req: the item's donor, or an
// admin of the item's RT.
func (s *PickupService) Authorize(ctx context.Context, userID string, req *domain.Request) error {
	return authorizePickup(ctx, s.DB, userID, req)
}

func authorizePickup(ctx context.Context, db *gorm.DB, userID string, req *domain.Request) error {
	ok, err := canManageItem(ctx, db, userID, req.Item)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPickupForbidden
	}
	return nil
}

// Scan validates code and authorizes userID without redeeming, so the
// scanner can show what is about to be handed over.
func (s *PickupService) Scan(ctx context.Context, userID, code string) (*domain.Request, error) {
	tr := otel.Tracer("services/PickupService")
	ctx, span := tr.Start(ctx, "Scan", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	req, err := validateCode(ctx, s.DB, code)
	if err != nil {
		recordScanErr(err)
		return nil, err
	}
	if err := authorizePickup(ctx, s.DB, userID, req); err != nil {
		recordScanErr(err)
		return nil, err
	}
	observability.RecordScan(observability.ScanValid)
	span.SetAttributes(attribute.String("request.id", req.ID))
	return req, nil
}

// Confirm redeems code on behalf of userID. The request becomes collected,
// pickup_code_used_at is stamped, and the item is marked collected. A second
// Confirm with the same code returns ErrInvalidPickupCode.
func (s *PickupService) Confirm(ctx context.Context, userID, code string) (*domain.Request, error) {
	tr := otel.Tracer("services/PickupService")
	ctx, span := tr.Start(ctx, "Confirm", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var out *domain.Request
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := validateCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := authorizePickup(ctx, tx, userID, req); err != nil {
			return err
		}
		if err := s.collect(ctx, tx, req); err != nil {
			if isNotFound(err) {
				return ErrInvalidPickupCode
			}
			return err
		}
		out, err = repo.GetRequest(ctx, tx, req.ID)
		return err
	})
	if err != nil {
		recordScanErr(err)
		return nil, err
	}
	observability.RecordScan(observability.ScanRedeemed)
	observability.RecordTransition(string(domain.RequestCollected))
	span.SetAttributes(attribute.String("request.id", out.ID))
	return out, nil
}

// Redeem redeems an accepted request by id. It is retry-safe: redeeming a
// request that is already collected succeeds with alreadyCollected=true and
// changes nothing. Pending or rejected requests yield ErrRequestNotAccepted.
func (s *PickupService) Redeem(ctx context.Context, userID, requestID string) (req *domain.Request, alreadyCollected bool, err error) {
	tr := otel.Tracer("services/PickupService")
	ctx, span := tr.Start(ctx, "Redeem",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			if isNotFound(err) {
				return ErrRequestNotFound
			}
			return err
		}
		if err := authorizePickup(ctx, tx, userID, cur); err != nil {
			if errors.Is(err, ErrPickupForbidden) && cur.RequesterID != userID {
				return ErrRequestNotFound
			}
			return err
		}

		switch cur.Status {
		case domain.RequestCollected:
			req, alreadyCollected = cur, true
			return nil
		case domain.RequestAccepted:
		default:
			return ErrRequestNotAccepted
		}

		if err := s.collect(ctx, tx, cur); err != nil {
			if !isNotFound(err) {
				return err
			}
			// Lost the race: report the winner's result.
			again, gerr := repo.GetRequest(ctx, tx, requestID)
			if gerr != nil {
				return gerr
			}
			if again.Status != domain.RequestCollected {
				return ErrRequestNotAccepted
			}
			req, alreadyCollected = again, true
			return nil
		}
		req, err = repo.GetRequest(ctx, tx, requestID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if alreadyCollected {
		observability.RecordScan(observability.ScanReplayed)
	} else {
		observability.RecordScan(observability.ScanRedeemed)
		observability.RecordTransition(string(domain.RequestCollected))
	}
	return req, alreadyCollected, nil
}

// collect performs the accepted -> collected compare-and-swap and moves the
// item to collected.
func (s *PickupService) collect(ctx context.Context, tx *gorm.DB, req *domain.Request) error {
	if err := repo.MarkCollected(ctx, tx, req.ID, s.now()); err != nil {
		return err
	}
	err := repo.TransitionItem(ctx, tx, req.ItemID, domain.ItemCollected,
		domain.ItemReserved, domain.ItemRequested, domain.ItemAvailable)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func recordScanErr(err error) {
	switch {
	case errors.Is(err, ErrInvalidPickupCode):
		observability.RecordScan(observability.ScanInvalid)
	case errors.Is(err, ErrPickupForbidden):
		observability.RecordScan(observability.ScanForbidden)
	}
}

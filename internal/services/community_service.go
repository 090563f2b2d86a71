// Package services – CommunityService
//
// CommunityService manages RTs, profiles and memberships. A profile belongs
// to at most one RT. The first member to join an RT becomes its admin, and an
// RT never loses its last admin through a role change.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
)

// CommunityService provides RT, profile and membership operations.
type CommunityService struct {
	DB *gorm.DB
}

// NewCommunityService constructs a CommunityService.
func NewCommunityService(db *gorm.DB) *CommunityService {
	return &CommunityService{DB: db}
}

// CreateRT registers a new RT. Name, kelurahan and kecamatan together are
// unique.
func (s *CommunityService) CreateRT(ctx context.Context, name, kelurahan, kecamatan string) (*domain.RT, error) {
	name, kelurahan, kecamatan = normalizeTitle(name), normalizeTitle(kelurahan), normalizeTitle(kecamatan)
	if name == "" || kelurahan == "" || kecamatan == "" {
		return nil, ErrInvalidRT
	}
	rt, err := repo.CreateRT(ctx, s.DB, name, kelurahan, kecamatan)
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrDuplicateRT
		}
		return nil, err
	}
	return rt, nil
}

// ListRTs returns every RT.
func (s *CommunityService) ListRTs(ctx context.Context) ([]domain.RT, error) {
	return repo.ListRTs(ctx, s.DB)
}

// Join makes userID a member of rtID. The profile must exist. The first
// member of an RT is made its admin.
func (s *CommunityService) Join(ctx context.Context, userID, rtID string) (*domain.Member, error) {
	var out *domain.Member
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetRT(ctx, tx, rtID); err != nil {
			if isNotFound(err) {
				return ErrRTNotFound
			}
			return err
		}
		if _, err := repo.GetProfile(ctx, tx, userID); err != nil {
			if isNotFound(err) {
				return ErrProfileNotFound
			}
			return err
		}
		if _, err := repo.GetMemberByProfile(ctx, tx, userID); err == nil {
			return ErrAlreadyMember
		} else if !isNotFound(err) {
			return err
		}

		n, err := repo.CountMembers(ctx, tx, rtID)
		if err != nil {
			return err
		}
		role := domain.RoleMember
		if n == 0 {
			role = domain.RoleAdmin
		}
		out, err = repo.CreateMember(ctx, tx, userID, rtID, role)
		if repo.IsDuplicate(err) {
			return ErrAlreadyMember
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Membership returns the caller's membership or ErrNotMember.
func (s *CommunityService) Membership(ctx context.Context, userID string) (*domain.Member, error) {
	return membership(ctx, s.DB, userID)
}

// Members lists the members of rtID. Only members of that RT may list it.
func (s *CommunityService) Members(ctx context.Context, userID, rtID string) ([]domain.Member, error) {
	m, err := membership(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if m.RTID != rtID {
		return nil, ErrNotMember
	}
	return repo.ListMembers(ctx, s.DB, rtID)
}

// SetRole changes the role of membership memberID. The caller must be an
// admin of the same RT. Demoting the last admin yields ErrLastAdmin.
func (s *CommunityService) SetRole(ctx context.Context, userID, memberID string, role domain.Role) (*domain.Member, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	var out *domain.Member
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		caller, err := membership(ctx, tx, userID)
		if err != nil {
			return err
		}
		target, err := repo.GetMember(ctx, tx, memberID)
		if err != nil {
			if isNotFound(err) {
				return ErrMemberNotFound
			}
			return err
		}
		if target.RTID != caller.RTID {
			return ErrMemberNotFound
		}
		if caller.Role != domain.RoleAdmin {
			return ErrForbidden
		}
		if target.Role == role {
			out = target
			return nil
		}
		if target.Role == domain.RoleAdmin {
			n, err := repo.CountMembersByRole(ctx, tx, target.RTID, domain.RoleAdmin)
			if err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}
		if err := repo.UpdateMemberRole(ctx, tx, target.ID, role); err != nil {
			return err
		}
		out, err = repo.GetMember(ctx, tx, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertProfile creates or updates the caller's profile.
func (s *CommunityService) UpsertProfile(ctx context.Context, userID, name, phone string) (*domain.Profile, error) {
	name = normalizeTitle(name)
	if name == "" {
		return nil, ErrInvalidProfile
	}
	return repo.UpsertProfile(ctx, s.DB, userID, name, strings.TrimSpace(phone))
}

// Profile returns the profile of userID.
func (s *CommunityService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

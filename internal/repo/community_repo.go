// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for RTs, profiles
// and memberships.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rtshare/exchange-backend/internal/domain"
)

// CreateRT inserts a new neighbourhood community.
func CreateRT(ctx context.Context, db *gorm.DB, name, kelurahan, kecamatan string) (*domain.RT, error) {
	now := time.Now().UTC()
	rt := &domain.RT{
		ID:        uuid.NewString(),
		Name:      name,
		Kelurahan: kelurahan,
		Kecamatan: kecamatan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(rt).Error; err != nil {
		return nil, err
	}
	return rt, nil
}

// ListRTs returns all RTs ordered by kecamatan, kelurahan, name.
func ListRTs(ctx context.Context, db *gorm.DB) ([]domain.RT, error) {
	var out []domain.RT
	err := db.WithContext(ctx).
		Order("kecamatan asc, kelurahan asc, name asc").
		Find(&out).Error
	return out, err
}

// GetRT fetches an RT by id.
func GetRT(ctx context.Context, db *gorm.DB, id string) (*domain.RT, error) {
	var rt domain.RT
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// UpsertProfile creates the profile for id or updates its name and phone.
func UpsertProfile(ctx context.Context, db *gorm.DB, id, name, phone string) (*domain.Profile, error) {
	now := time.Now().UTC()
	p := &domain.Profile{ID: id, Name: name, Phone: phone, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, id)
}

// GetProfile fetches a profile by id.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateMember adds profileID to rtID with role.
func CreateMember(ctx context.Context, db *gorm.DB, profileID, rtID string, role domain.Role) (*domain.Member, error) {
	m := &domain.Member{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		RTID:      rtID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMember fetches a membership by its id.
func GetMember(ctx context.Context, db *gorm.DB, id string) (*domain.Member, error) {
	var m domain.Member
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemberByProfile returns the single membership of profileID.
func GetMemberByProfile(ctx context.Context, db *gorm.DB, profileID string) (*domain.Member, error) {
	var m domain.Member
	if err := db.WithContext(ctx).Where("profile_id = ?", profileID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns the members of rtID, earliest joiners first.
func ListMembers(ctx context.Context, db *gorm.DB, rtID string) ([]domain.Member, error) {
	var out []domain.Member
	err := db.WithContext(ctx).
		Where("rt_id = ?", rtID).
		Order("joined_at asc, id asc").
		Find(&out).Error
	return out, err
}

// CountMembers returns the member count of rtID.
func CountMembers(ctx context.Context, db *gorm.DB, rtID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Member{}).Where("rt_id = ?", rtID).Count(&n).Error
	return n, err
}

// UpdateMemberRole sets the role of membership id.
func UpdateMemberRole(ctx context.Context, db *gorm.DB, id string, role domain.Role) error {
	res := db.WithContext(ctx).Model(&domain.Member{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMembersByRole returns how many members of rtID hold role.
func CountMembersByRole(ctx context.Context, db *gorm.DB, rtID string, role domain.Role) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("rt_id = ? AND role = ?", rtID, role).
		Count(&n).Error
	return n, err
}

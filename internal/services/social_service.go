// Package services – SocialService
//
// Likes and comments on items. Both are limited to members of the item's RT,
// and both notify the donor inside the same transaction as the write.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
)

// maxCommentRunes caps comment length.
const maxCommentRunes = 1000

// SocialService provides like and comment operations.
type SocialService struct {
	DB *gorm.DB
}

// NewSocialService constructs a SocialService.
func NewSocialService(db *gorm.DB) *SocialService {
	return &SocialService{DB: db}
}

// ItemStats summarises the social activity on an item.
type ItemStats struct {
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
	LikedByMe bool  `json:"liked_by_me"`
}

// ToggleLike likes the item, or removes the caller's like if present. It
// returns whether the item is liked afterwards.
func (s *SocialService) ToggleLike(ctx context.Context, userID, itemID string) (bool, error) {
	var liked bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := visibleItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		_, err = repo.GetLike(ctx, tx, it.ID, userID)
		switch {
		case err == nil:
			liked = false
			return repo.DeleteLike(ctx, tx, it.ID, userID)
		case !isNotFound(err):
			return err
		}

		if _, err := repo.CreateLike(ctx, tx, it.ID, userID); err != nil {
			return err
		}
		liked = true
		return notify(ctx, tx, userID, likedNotice(it.DonorID, displayName(ctx, tx, userID), it.Title, it.ID))
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// Stats returns like and comment counts for the item.
func (s *SocialService) Stats(ctx context.Context, userID, itemID string) (*ItemStats, error) {
	it, err := visibleItem(ctx, s.DB, userID, itemID)
	if err != nil {
		return nil, err
	}
	var st ItemStats
	if st.Likes, err = repo.CountLikes(ctx, s.DB, it.ID); err != nil {
		return nil, err
	}
	if st.Comments, err = repo.CountComments(ctx, s.DB, it.ID); err != nil {
		return nil, err
	}
	if _, err := repo.GetLike(ctx, s.DB, it.ID, userID); err == nil {
		st.LikedByMe = true
	} else if !isNotFound(err) {
		return nil, err
	}
	return &st, nil
}

// ListComments returns a page of comments on the item, oldest first.
func (s *SocialService) ListComments(ctx context.Context, userID, itemID string, page, pageSize int) ([]domain.Comment, int64, error) {
	it, err := visibleItem(ctx, s.DB, userID, itemID)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := pageBounds(page, pageSize)
	total, err := repo.CountComments(ctx, s.DB, it.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Comment{}, 0, nil
	}
	out, err := repo.ListCommentsPage(ctx, s.DB, it.ID, offset, size)
	return out, total, err
}

// AddComment posts content on the item and notifies the donor.
func (s *SocialService) AddComment(ctx context.Context, userID, itemID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxCommentRunes {
		return nil, ErrInvalidComment
	}
	var out *domain.Comment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := visibleItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		out, err = repo.CreateComment(ctx, tx, it.ID, userID, content)
		if err != nil {
			return err
		}
		return notify(ctx, tx, userID, commentedNotice(it.DonorID, displayName(ctx, tx, userID), it.Title, out.ID))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteComment removes a comment written by the caller.
func (s *SocialService) DeleteComment(ctx context.Context, userID, commentID string) error {
	c, err := repo.GetComment(ctx, s.DB, commentID)
	if err != nil {
		if isNotFound(err) {
			return ErrCommentNotFound
		}
		return err
	}
	if c.UserID != userID {
		if _, verr := visibleItem(ctx, s.DB, userID, c.ItemID); verr != nil {
			return ErrCommentNotFound
		}
		return ErrForbidden
	}
	if err := repo.DeleteComment(ctx, s.DB, c.ID, userID); err != nil {
		if isNotFound(err) {
			return ErrCommentNotFound
		}
		return err
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
)

// notice describes a notification before it is stored.
type notice struct {
	to          string
	typ         domain.NotificationType
	title       string
	message     string
	relatedID   string
	relatedType domain.RelatedType
}

// notify appends a notification inside the caller's transaction. Users are
// never notified about their own actions.
func notify(ctx context.Context, tx *gorm.DB, actorID string, n notice) error {
	if n.to == "" || n.to == actorID {
		return nil
	}
	return repo.CreateNotification(ctx, tx, &domain.Notification{
		UserID:      n.to,
		Type:        n.typ,
		Title:       n.title,
		Message:     n.message,
		RelatedID:   n.relatedID,
		RelatedType: n.relatedType,
	})
}

// displayName returns the profile name of userID, or "Someone".
func displayName(ctx context.Context, db *gorm.DB, userID string) string {
	p, err := repo.GetProfile(ctx, db, userID)
	if err != nil || strings.TrimSpace(p.Name) == "" {
		return "Someone"
	}
	return p.Name
}

func requestedNotice(donorID, requester, itemTitle, requestID string) notice {
	return notice{
		to:          donorID,
		typ:         domain.NotifyRequest,
		title:       "New request",
		message:     fmt.Sprintf("%s requested %q", requester, itemTitle),
		relatedID:   requestID,
		relatedType: domain.RelatedRequest,
	}
}

func acceptedNotice(requesterID, itemTitle, requestID string) notice {
	return notice{
		to:          requesterID,
		typ:         domain.NotifyAccept,
		title:       "Request accepted",
		message:     fmt.Sprintf("Your request for %q was accepted", itemTitle),
		relatedID:   requestID,
		relatedType: domain.RelatedRequest,
	}
}

func rejectedNotice(requesterID, itemTitle, requestID string) notice {
	return notice{
		to:          requesterID,
		typ:         domain.NotifyReject,
		title:       "Request rejected",
		message:     fmt.Sprintf("Your request for %q was rejected", itemTitle),
		relatedID:   requestID,
		relatedType: domain.RelatedRequest,
	}
}

func replyNotice(requesterID, itemTitle, requestID string) notice {
	return notice{
		to:          requesterID,
		typ:         domain.NotifyReply,
		title:       "Reply to your request",
		message:     fmt.Sprintf("There is a reply to your request for %q", itemTitle),
		relatedID:   requestID,
		relatedType: domain.RelatedRequest,
	}
}

func likedNotice(donorID, liker, itemTitle, itemID string) notice {
	return notice{
		to:          donorID,
		typ:         domain.NotifyLike,
		title:       "Item liked",
		message:     fmt.Sprintf("%s liked %q", liker, itemTitle),
		relatedID:   itemID,
		relatedType: domain.RelatedItem,
	}
}

func commentedNotice(donorID, commenter, itemTitle, commentID string) notice {
	return notice{
		to:          donorID,
		typ:         domain.NotifyComment,
		title:       "New comment",
		message:     fmt.Sprintf("%s commented on %q", commenter, itemTitle),
		relatedID:   commentID,
		relatedType: domain.RelatedComment,
	}
}

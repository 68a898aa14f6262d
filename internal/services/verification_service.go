package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kidswap/backend/internal/models"
)

// VerificationService resolves the parent-link requests opened at kid
// signup. Resolution is an admin action: staff check the claimed parent
// before the kid may trade. A verified resolution stamps the link and
// unlocks trading for the kid; each request resolves exactly once.
type VerificationService struct {
	requests      VerificationStore
	profiles      ProfileStore
	notifications *NotificationService
}

func NewVerificationService(requests VerificationStore, profiles ProfileStore, notifications *NotificationService) *VerificationService {
	return &VerificationService{
		requests:      requests,
		profiles:      profiles,
		notifications: notifications,
	}
}

func (s *VerificationService) Get(ctx context.Context, id string) (*models.VerificationRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// ListPending returns every open request, oldest first. Admin view.
func (s *VerificationService) ListPending(ctx context.Context) ([]*models.VerificationRequest, error) {
	return s.requests.ListPending(ctx)
}

// ListPendingForParent returns the parent's open requests, oldest first.
func (s *VerificationService) ListPendingForParent(ctx context.Context, parentID string) ([]*models.VerificationRequest, error) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	own := make([]*models.VerificationRequest, 0, len(pending))
	for _, r := range pending {
		if r.ParentID == parentID {
			own = append(own, r)
		}
	}
	return own, nil
}

// Resolve records an admin's confirmation or denial of the link. Only
// admin-role profiles may resolve, and only while pending. A confirmation
// stamps the link and marks the kid parent-verified, which gates trade
// proposals.
func (s *VerificationService) Resolve(ctx context.Context, actorID string, actorRole models.Role, requestID string, confirm bool) (*models.VerificationRequest, error) {
	if !actorRole.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin can resolve verification requests", ErrUnauthorized)
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}

	status := models.VerificationVerified
	if !confirm {
		status = models.VerificationRejected
	}

	resolved, err := s.requests.Resolve(ctx, requestID, status, actorID, time.Now().UTC())
	if err == errStaleWrite {
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		return nil, err
	}

	if confirm {
		now := time.Now().UTC()
		if err := s.profiles.SetKidParentVerified(ctx, resolved.KidID, true); err != nil {
			log.Printf("[VerificationService] Failed to mark kid %s parent-verified: %v", resolved.KidID, err)
		}
		if err := s.profiles.MarkLinkVerified(ctx, resolved.ParentID, resolved.KidID, now); err != nil {
			log.Printf("[VerificationService] Failed to stamp link %s/%s: %v", resolved.ParentID, resolved.KidID, err)
		}
		s.notifications.Notify(ctx, resolved.KidID, models.NotifVerificationResolved,
			"Parent link confirmed",
			"The parent link on your account was confirmed. You can now propose trades!",
			requestID)
	} else {
		s.notifications.Notify(ctx, resolved.KidID, models.NotifVerificationResolved,
			"Parent link declined",
			"The parent link on your account could not be confirmed. Check the parent email and try again.",
			requestID)
	}

	log.Printf("[VerificationService] Request %s resolved: %s", requestID, status)
	return resolved, nil
}

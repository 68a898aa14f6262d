package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// NotificationService writes per-user notifications and serves them back.
// Notify is fire-and-forget: a failed write is logged and never propagated,
// so a notification outage can't fail a trade transition.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) Notify(ctx context.Context, userID, notifType, title, message, relatedID string) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, n); err != nil {
		log.Printf("[NotificationService] Failed to notify user %s (%s): %v", userID, notifType, err)
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.store.MarkRead(ctx, id, userID)
}

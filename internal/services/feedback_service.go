package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// FeedbackService records post-trade ratings. One review per reviewer per
// trade, available only on completed trades, and each submitted review earns
// the reviewer points.
type FeedbackService struct {
	feedback FeedbackStore
	trades   TradeStore
	rewards  *RewardService
}

func NewFeedbackService(feedback FeedbackStore, trades TradeStore, rewards *RewardService) *FeedbackService {
	return &FeedbackService{
		feedback: feedback,
		trades:   trades,
		rewards:  rewards,
	}
}

// Submit rates the other party of a completed trade.
func (s *FeedbackService) Submit(ctx context.Context, reviewerID, tradeID string, req *models.SubmitFeedbackRequest) (*models.Feedback, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	side, ok := trade.SideOfKid(reviewerID)
	if !ok {
		return nil, fmt.Errorf("%w: only trade participants can leave feedback", ErrUnauthorized)
	}
	if trade.Status != models.TradeCompleted {
		return nil, fmt.Errorf("%w: feedback opens once the trade completes", ErrInvalidTransition)
	}

	fb := &models.Feedback{
		ID:         uuid.New().String(),
		TradeID:    tradeID,
		ReviewerID: reviewerID,
		RevieweeID: trade.KidFor(side.Other()),
		Rating:     req.Rating,
		Review:     req.Review,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.feedback.Insert(ctx, fb); err != nil {
		return nil, err
	}

	if err := s.rewards.Credit(ctx, reviewerID, models.PointsReview, models.ReasonReview, fb.ID); err != nil {
		log.Printf("[FeedbackService] Failed to credit review points to %s: %v", reviewerID, err)
	}

	return fb, nil
}

// ForUser returns received feedback plus the average rating.
func (s *FeedbackService) ForUser(ctx context.Context, userID string) ([]*models.Feedback, float64, error) {
	received, err := s.feedback.ListForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(received) == 0 {
		return received, 0, nil
	}
	sum := 0
	for _, f := range received {
		sum += f.Rating
	}
	return received, float64(sum) / float64(len(received)), nil
}

func (s *FeedbackService) ForTrade(ctx context.Context, tradeID string) ([]*models.Feedback, error) {
	return s.feedback.ListByTrade(ctx, tradeID)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func completedTradeFixture(t *testing.T) (*tradeFixture, *FeedbackService, string) {
	t.Helper()
	f := newTradeFixture(t)
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)
	f.schedule(t, f.kid1, trade.ID)
	_, err := f.svc.Complete(context.Background(), f.kid1, trade.ID)
	require.NoError(t, err)

	svc := NewFeedbackService(NewMemoryFeedbackStore(), f.trades, f.rewards)
	return f, svc, trade.ID
}

func TestSubmitFeedbackOnCompletedTrade(t *testing.T) {
	f, svc, tradeID := completedTradeFixture(t)
	ctx := context.Background()

	before, err := f.rewards.Balance(ctx, f.kid1)
	require.NoError(t, err)

	fb, err := svc.Submit(ctx, f.kid1, tradeID, &models.SubmitFeedbackRequest{
		Rating: 5, Review: "Great trade, the book was exactly as described.",
	})
	require.NoError(t, err)
	require.Equal(t, f.kid2, fb.RevieweeID)
	require.Equal(t, 5, fb.Rating)

	after, err := f.rewards.Balance(ctx, f.kid1)
	require.NoError(t, err)
	require.Equal(t, before.Balance+models.PointsReview, after.Balance)
}

func TestSubmitFeedbackOncePerReviewer(t *testing.T) {
	f, svc, tradeID := completedTradeFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, f.kid1, tradeID, &models.SubmitFeedbackRequest{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, f.kid1, tradeID, &models.SubmitFeedbackRequest{Rating: 1})
	require.ErrorIs(t, err, ErrFeedbackExists)

	// Both sides may each leave one.
	_, err = svc.Submit(ctx, f.kid2, tradeID, &models.SubmitFeedbackRequest{Rating: 5})
	require.NoError(t, err)

	all, err := svc.ForTrade(ctx, tradeID)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSubmitFeedbackRequiresCompletion(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	svc := NewFeedbackService(NewMemoryFeedbackStore(), f.trades, f.rewards)

	_, err := svc.Submit(context.Background(), f.kid1, trade.ID, &models.SubmitFeedbackRequest{Rating: 4})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitFeedbackRequiresParticipant(t *testing.T) {
	_, svc, tradeID := completedTradeFixture(t)

	_, err := svc.Submit(context.Background(), "stranger", tradeID, &models.SubmitFeedbackRequest{Rating: 4})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestForUserAveragesRatings(t *testing.T) {
	f, svc, tradeID := completedTradeFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, f.kid1, tradeID, &models.SubmitFeedbackRequest{Rating: 5})
	require.NoError(t, err)

	received, avg, err := svc.ForUser(ctx, f.kid2)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, 5.0, avg)

	// No feedback yet: zero average, no error.
	none, avg, err := svc.ForUser(ctx, f.kid1)
	require.NoError(t, err)
	require.Empty(t, none)
	require.Zero(t, avg)
}

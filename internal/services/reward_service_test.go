package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func TestBalanceDerivesFromLedger(t *testing.T) {
	svc := NewRewardService(NewMemoryRewardStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "kid-1", models.PointsFirstListing, models.ReasonFirstListing, "listing-1"))
	require.NoError(t, svc.Credit(ctx, "kid-1", models.PointsCompletedTrade, models.ReasonCompletedTrade, "trade-1"))
	require.NoError(t, svc.Credit(ctx, "kid-1", models.PointsReview, models.ReasonReview, "feedback-1"))

	_, err := svc.Redeem(ctx, "kid-1", &models.RedeemRequest{RewardType: "badge", PointsRequired: 4})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 12, balance.TotalEarned)
	require.Equal(t, 4, balance.TotalSpent)
	require.Equal(t, 8, balance.Balance)
}

func TestRedeemRejectsInsufficientBalance(t *testing.T) {
	svc := NewRewardService(NewMemoryRewardStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "kid-1", 5, models.ReasonFirstListing, ""))

	_, err := svc.Redeem(ctx, "kid-1", &models.RedeemRequest{RewardType: "badge", PointsRequired: 8})

	var ipe *InsufficientPointsError
	require.True(t, errors.As(err, &ipe))
	require.Equal(t, 5, ipe.Balance)
	require.Equal(t, 8, ipe.Required)
	require.Equal(t, 3, ipe.Shortfall())

	// A failed redemption must not touch the ledger.
	balance, err := svc.Balance(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 5, balance.Balance)
}

func TestCreditNeverRejectedForBalance(t *testing.T) {
	svc := NewRewardService(NewMemoryRewardStore())
	ctx := context.Background()

	// Earning with a zero balance is always fine.
	require.NoError(t, svc.Credit(ctx, "kid-1", models.PointsReferral, models.ReasonReferral, "kid-2"))

	balance, err := svc.Balance(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, models.PointsReferral, balance.Balance)
}

func TestConcurrentRedemptionsNeverOverspend(t *testing.T) {
	svc := NewRewardService(NewMemoryRewardStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "kid-1", 10, models.ReasonCompletedTrade, "trade-1"))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, "kid-1", &models.RedeemRequest{RewardType: "badge", PointsRequired: 10})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var ipe *InsufficientPointsError
			require.True(t, errors.As(err, &ipe))
		}
	}
	require.Equal(t, 1, succeeded)

	balance, err := svc.Balance(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 0, balance.Balance)
}

func TestHistoryReturnsBothSides(t *testing.T) {
	svc := NewRewardService(NewMemoryRewardStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, "kid-1", 5, models.ReasonFirstListing, ""))
	require.NoError(t, svc.Credit(ctx, "kid-1", 5, models.ReasonCompletedTrade, ""))
	_, err := svc.Redeem(ctx, "kid-1", &models.RedeemRequest{RewardType: "badge", PointsRequired: 5})
	require.NoError(t, err)

	credits, redemptions, err := svc.History(ctx, "kid-1")
	require.NoError(t, err)
	require.Len(t, credits, 2)
	require.Len(t, redemptions, 1)
}

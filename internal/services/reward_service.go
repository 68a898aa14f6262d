package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// RewardService owns the append-only point ledger. Earning events and
// redemption events are never mutated; a balance is always recomputed from
// the two logs.
//
// Redemptions are serialized per user twice over: a keyed mutex covers
// callers inside this process, and the store's version guard covers
// concurrent processes. Credits never contend; they append unconditionally.
type RewardService struct {
	store RewardStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRewardService(store RewardStore) *RewardService {
	return &RewardService{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *RewardService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.locks[userID]
	if !exists {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Credit appends an earning event. It must not be rejected for balance
// reasons; the ledger only ever refuses spends.
func (s *RewardService) Credit(ctx context.Context, userID string, points int, reason, relatedID string) error {
	r := &models.Reward{
		ID:        uuid.New().String(),
		UserID:    userID,
		Points:    points,
		Reason:    reason,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}
	return s.store.AppendCredit(ctx, r)
}

// Balance derives the current totals from the full event history.
func (s *RewardService) Balance(ctx context.Context, userID string) (*models.RewardBalance, error) {
	credits, err := s.store.Credits(ctx, userID)
	if err != nil {
		return nil, err
	}
	redemptions, err := s.store.Redemptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance := &models.RewardBalance{UserID: userID}
	for _, c := range credits {
		balance.TotalEarned += c.Points
	}
	for _, r := range redemptions {
		balance.TotalSpent += r.PointsUsed
	}
	balance.Balance = balance.TotalEarned - balance.TotalSpent
	return balance, nil
}

// Redeem spends points if and only if the derived balance covers the cost.
// The check and the append happen under the user's lock and behind the
// store's version guard, so two concurrent redemptions can never both
// succeed against a balance that covers only one.
func (s *RewardService) Redeem(ctx context.Context, userID string, req *models.RedeemRequest) (*models.RewardRedemption, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	for attempt := 0; attempt < 3; attempt++ {
		version, err := s.store.Version(ctx, userID)
		if err != nil {
			return nil, err
		}

		balance, err := s.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		if balance.Balance < req.PointsRequired {
			return nil, &InsufficientPointsError{Balance: balance.Balance, Required: req.PointsRequired}
		}

		if err := s.store.BumpVersion(ctx, userID, version); err != nil {
			if err == errStaleWrite {
				log.Printf("[RewardService] Redemption version conflict for user %s, retrying", userID)
				continue
			}
			return nil, err
		}

		redemption := &models.RewardRedemption{
			ID:         uuid.New().String(),
			UserID:     userID,
			PointsUsed: req.PointsRequired,
			RewardType: req.RewardType,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.store.AppendRedemption(ctx, redemption); err != nil {
			return nil, err
		}
		return redemption, nil
	}

	return nil, errors.New("redemption conflicted with a concurrent request, try again")
}

// History returns both sides of the ledger for display.
func (s *RewardService) History(ctx context.Context, userID string) ([]models.Reward, []models.RewardRedemption, error) {
	credits, err := s.store.Credits(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	redemptions, err := s.store.Redemptions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return credits, redemptions, nil
}

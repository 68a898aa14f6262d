package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

// tradeFixture wires a TradeService over in-memory stores with two
// parent-verified kids, their linked parents, and one visible listing each.
type tradeFixture struct {
	svc      *TradeService
	profiles *MemoryProfileStore
	listings *MemoryListingStore
	trades   *MemoryTradeStore
	rewards  *RewardService

	kid1, kid2       string
	parent1, parent2 string
	listing1         string
	listing2         string
}

func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	ctx := context.Background()

	profiles := NewMemoryProfileStore()
	listings := NewMemoryListingStore()
	trades := NewMemoryTradeStore()
	rewards := NewRewardService(NewMemoryRewardStore())
	notifications := NewNotificationService(NewMemoryNotificationStore())

	f := &tradeFixture{
		svc:      NewTradeService(trades, listings, profiles, rewards, notifications),
		profiles: profiles,
		listings: listings,
		trades:   trades,
		rewards:  rewards,
		kid1:     "kid-1",
		kid2:     "kid-2",
		parent1:  "parent-1",
		parent2:  "parent-2",
		listing1: "listing-1",
		listing2: "listing-2",
	}

	now := time.Now().UTC()
	for _, kid := range []string{f.kid1, f.kid2} {
		require.NoError(t, profiles.InsertProfile(ctx, &models.Profile{
			ID: kid, Email: kid + "@example.com", DisplayName: kid, Role: models.RoleKid,
			CreatedAt: now, UpdatedAt: now,
		}))
		require.NoError(t, profiles.InsertKid(ctx, &models.Kid{
			ProfileID: kid, Age: 10, ParentVerified: true,
			Membership: models.MembershipFree, CreatedAt: now, UpdatedAt: now,
		}))
	}
	for i, parent := range []string{f.parent1, f.parent2} {
		require.NoError(t, profiles.InsertProfile(ctx, &models.Profile{
			ID: parent, Email: parent + "@example.com", DisplayName: parent, Role: models.RoleParent,
			CreatedAt: now, UpdatedAt: now,
		}))
		kid := f.kid1
		if i == 1 {
			kid = f.kid2
		}
		require.NoError(t, profiles.InsertLink(ctx, &models.ParentChildLink{
			ID: "link-" + parent, ParentID: parent, KidID: kid, IsPrimary: true, CreatedAt: now,
		}))
	}

	require.NoError(t, listings.Insert(ctx, &models.Listing{
		ID: f.listing1, KidID: f.kid1, Title: "Lego castle", Category: "Toys",
		Condition: models.ConditionGood, IsActive: true, IsModerated: true,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, listings.Insert(ctx, &models.Listing{
		ID: f.listing2, KidID: f.kid2, Title: "Dinosaur book", Category: "Books",
		Condition: models.ConditionLikeNew, IsActive: true, IsModerated: true,
		CreatedAt: now, UpdatedAt: now,
	}))

	return f
}

func (f *tradeFixture) propose(t *testing.T) *models.Trade {
	t.Helper()
	trade, err := f.svc.Propose(context.Background(), f.kid1, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: f.listing2,
	})
	require.NoError(t, err)
	return trade
}

func (f *tradeFixture) decide(t *testing.T, parentID, tradeID string, side models.TradeSide, approved bool) *models.Trade {
	t.Helper()
	trade, err := f.svc.ParentDecision(context.Background(), parentID, tradeID, &models.ParentDecisionRequest{
		Side: side, Approved: approved,
	})
	require.NoError(t, err)
	return trade
}

func (f *tradeFixture) schedule(t *testing.T, kidID, tradeID string) *models.Trade {
	t.Helper()
	at := time.Now().UTC().Add(48 * time.Hour)
	trade, err := f.svc.Schedule(context.Background(), kidID, tradeID, &models.ScheduleTradeRequest{
		Date:     at.Format("2006-01-02"),
		Time:     at.Format("15:04"),
		Location: "Library parking lot",
	})
	require.NoError(t, err)
	return trade
}

func TestProposeCreatesProposedTrade(t *testing.T) {
	f := newTradeFixture(t)

	trade := f.propose(t)
	require.Equal(t, models.TradeProposed, trade.Status)
	require.Equal(t, f.kid1, trade.InitiatorKidID)
	require.Equal(t, f.kid2, trade.ResponderKidID)
	require.Nil(t, trade.InitiatorParentApproved)
	require.Nil(t, trade.ResponderParentApproved)
	require.Equal(t, models.ApprovalPending, trade.ParentApprovalStatus())
}

func TestProposeRejectsUnverifiedKid(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	require.NoError(t, f.profiles.SetKidParentVerified(ctx, f.kid1, false))

	_, err := f.svc.Propose(ctx, f.kid1, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: f.listing2,
	})
	require.ErrorIs(t, err, ErrInvalidProposal)
}

func TestProposeRejectsForeignListing(t *testing.T) {
	f := newTradeFixture(t)

	// kid2 tries to offer kid1's listing.
	_, err := f.svc.Propose(context.Background(), f.kid2, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: f.listing2,
	})
	require.ErrorIs(t, err, ErrInvalidProposal)
}

func TestProposeRejectsSelfTrade(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.listings.Insert(ctx, &models.Listing{
		ID: "listing-3", KidID: f.kid1, Title: "Scooter", Category: "Sports",
		Condition: models.ConditionFair, IsActive: true, IsModerated: true,
	}))

	_, err := f.svc.Propose(ctx, f.kid1, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: "listing-3",
	})
	require.ErrorIs(t, err, ErrInvalidProposal)
}

func TestProposeRejectsHiddenListing(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	require.NoError(t, f.listings.SetActive(ctx, f.listing2, false))

	_, err := f.svc.Propose(ctx, f.kid1, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: f.listing2,
	})
	require.ErrorIs(t, err, ErrInvalidProposal)
}

func TestProposeRejectsDuplicateOpenTrade(t *testing.T) {
	f := newTradeFixture(t)
	f.propose(t)

	_, err := f.svc.Propose(context.Background(), f.kid1, &models.ProposeTradeRequest{
		InitiatorListingID: f.listing1,
		ResponderListingID: f.listing2,
	})
	require.ErrorIs(t, err, ErrInvalidProposal)
}

func TestParentDecisionRequiresLinkedParent(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	// parent2 is linked to kid2, not to the initiator side's kid.
	_, err := f.svc.ParentDecision(context.Background(), f.parent2, trade.ID, &models.ParentDecisionRequest{
		Side: models.SideInitiator, Approved: true,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDualApprovalApprovesTrade(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	first := f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	require.Equal(t, models.TradeProposed, first.Status)
	require.NotNil(t, first.InitiatorParentApproved)
	require.True(t, *first.InitiatorParentApproved)
	require.Equal(t, models.ApprovalPending, first.ParentApprovalStatus())

	second := f.decide(t, f.parent2, trade.ID, models.SideResponder, true)
	require.Equal(t, models.TradeApproved, second.Status)
	require.Equal(t, models.ApprovalApproved, second.ParentApprovalStatus())
}

func TestRejectionCancelsTrade(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	cancelled := f.decide(t, f.parent1, trade.ID, models.SideInitiator, false)
	require.Equal(t, models.TradeCancelled, cancelled.Status)
	require.Equal(t, models.ApprovalRejected, cancelled.ParentApprovalStatus())

	// The other parent's approval can no longer change anything.
	_, err := f.svc.ParentDecision(context.Background(), f.parent2, trade.ID, &models.ParentDecisionRequest{
		Side: models.SideResponder, Approved: true,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParentDecisionIsFinalPerSide(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)

	_, err := f.svc.ParentDecision(context.Background(), f.parent1, trade.ID, &models.ParentDecisionRequest{
		Side: models.SideInitiator, Approved: false,
	})
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestScheduleRequiresApprovedTrade(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	_, err := f.svc.Schedule(context.Background(), f.kid1, trade.ID, &models.ScheduleTradeRequest{
		Date: "2030-06-01", Time: "14:00", Location: "Park",
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScheduleRejectsPastMeetup(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)

	_, err := f.svc.Schedule(context.Background(), f.kid1, trade.ID, &models.ScheduleTradeRequest{
		Date: "2020-01-01", Time: "10:00", Location: "Park",
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScheduleRequiresParticipant(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)

	_, err := f.svc.Schedule(context.Background(), "stranger", trade.ID, &models.ScheduleTradeRequest{
		Date: "2030-06-01", Time: "14:00", Location: "Park",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCompleteCreditsBothKidsAndClosesListings(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)
	f.schedule(t, f.kid1, trade.ID)

	completed, err := f.svc.Complete(ctx, f.kid2, trade.ID)
	require.NoError(t, err)
	require.Equal(t, models.TradeCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	for _, kid := range []string{f.kid1, f.kid2} {
		balance, err := f.rewards.Balance(ctx, kid)
		require.NoError(t, err)
		require.Equal(t, models.PointsCompletedTrade, balance.Balance)
	}
	for _, id := range []string{f.listing1, f.listing2} {
		l, err := f.listings.GetByID(ctx, id)
		require.NoError(t, err)
		require.False(t, l.IsActive)
	}
}

func TestCompleteIsNotRepeatable(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)
	f.schedule(t, f.kid1, trade.ID)

	_, err := f.svc.Complete(ctx, f.kid1, trade.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.kid1, trade.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// The losing call must not re-issue completion points.
	balance, err := f.rewards.Balance(ctx, f.kid1)
	require.NoError(t, err)
	require.Equal(t, models.PointsCompletedTrade, balance.Balance)
}

func TestCancelFromProposedAndApprovedOnly(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()

	trade := f.propose(t)
	cancelled, err := f.svc.Cancel(ctx, f.kid1, trade.ID)
	require.NoError(t, err)
	require.Equal(t, models.TradeCancelled, cancelled.Status)

	// A scheduled trade can no longer be cancelled.
	f2 := newTradeFixture(t)
	trade2 := f2.propose(t)
	f2.decide(t, f2.parent1, trade2.ID, models.SideInitiator, true)
	f2.decide(t, f2.parent2, trade2.ID, models.SideResponder, true)
	f2.schedule(t, f2.kid1, trade2.ID)

	_, err = f2.svc.Cancel(ctx, f2.kid1, trade2.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelByLinkedParent(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	cancelled, err := f.svc.Cancel(context.Background(), f.parent2, trade.ID)
	require.NoError(t, err)
	require.Equal(t, models.TradeCancelled, cancelled.Status)
}

func TestCancelRequiresPartyOrParent(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)

	_, err := f.svc.Cancel(context.Background(), "stranger", trade.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetHidesTradeFromOutsiders(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "stranger", models.RoleKid, trade.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Admins bypass the participant check.
	got, err := f.svc.Get(ctx, "moderator", models.RoleAdmin, trade.ID)
	require.NoError(t, err)
	require.Equal(t, trade.ID, got.ID)
}

func TestListPendingApprovalForParent(t *testing.T) {
	f := newTradeFixture(t)
	ctx := context.Background()
	trade := f.propose(t)

	pending, err := f.svc.ListPendingApprovalForParent(ctx, f.parent1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, trade.ID, pending[0].ID)

	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)

	pending, err = f.svc.ListPendingApprovalForParent(ctx, f.parent1)
	require.NoError(t, err)
	require.Empty(t, pending)

	// The undecided side still sees it.
	pending, err = f.svc.ListPendingApprovalForParent(ctx, f.parent2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestConcurrentDecisionsOneSideWinsOnce(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	ctx := context.Background()

	// Two racing decisions for the same side: exactly one may land.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.svc.ParentDecision(ctx, f.parent1, trade.ID, &models.ParentDecisionRequest{
				Side: models.SideInitiator, Approved: true,
			})
			results <- err
		}()
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			require.ErrorIs(t, err, ErrAlreadyDecided)
			failures++
		}
	}
	require.Equal(t, 1, failures)

	current, err := f.trades.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	require.NotNil(t, current.InitiatorParentApproved)
	require.True(t, *current.InitiatorParentApproved)
}

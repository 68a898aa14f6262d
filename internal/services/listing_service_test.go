package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func newListingFixture(t *testing.T) (*ListingService, *RewardService, string) {
	t.Helper()
	ctx := context.Background()

	profiles := NewMemoryProfileStore()
	rewards := NewRewardService(NewMemoryRewardStore())
	svc := NewListingService(NewMemoryListingStore(), profiles, rewards, nil)

	now := time.Now().UTC()
	kidID := "kid-1"
	require.NoError(t, profiles.InsertProfile(ctx, &models.Profile{
		ID: kidID, Email: "sam@example.com", DisplayName: "Sam", Role: models.RoleKid,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, profiles.InsertKid(ctx, &models.Kid{
		ProfileID: kidID, Age: 11, ParentVerified: true,
		Membership: models.MembershipFree, CreatedAt: now, UpdatedAt: now,
	}))
	return svc, rewards, kidID
}

func TestFirstListingEarnsPointsOnce(t *testing.T) {
	svc, rewards, kidID := newListingFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
	})
	require.NoError(t, err)

	balance, err := rewards.Balance(ctx, kidID)
	require.NoError(t, err)
	require.Equal(t, models.PointsFirstListing, balance.Balance)

	_, err = svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Scooter", Category: "Sports", Condition: models.ConditionFair,
	})
	require.NoError(t, err)

	balance, err = rewards.Balance(ctx, kidID)
	require.NoError(t, err)
	require.Equal(t, models.PointsFirstListing, balance.Balance)
}

func TestCreateRequiresKidAccount(t *testing.T) {
	svc, _, _ := newListingFixture(t)

	_, err := svc.Create(context.Background(), "nobody", &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
	})
	require.ErrorIs(t, err, ErrKidNotFound)
}

func TestUpdateOnlyByOwner(t *testing.T) {
	svc, _, kidID := newListingFixture(t)
	ctx := context.Background()

	listing, err := svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "other-kid", listing.ID, &models.UpdateListingRequest{
		Title: "Stolen", Condition: models.ConditionGood,
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := svc.Update(ctx, kidID, listing.ID, &models.UpdateListingRequest{
		Title: "Lego castle (complete set)", Category: "Toys", Condition: models.ConditionLikeNew,
	})
	require.NoError(t, err)
	require.Equal(t, "Lego castle (complete set)", updated.Title)
}

func TestRetractHidesFromDiscovery(t *testing.T) {
	svc, _, kidID := newListingFixture(t)
	ctx := context.Background()

	listing, err := svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
	})
	require.NoError(t, err)

	visible, err := svc.Discover(ctx, models.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	require.NoError(t, svc.Retract(ctx, kidID, listing.ID))

	visible, err = svc.Discover(ctx, models.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Empty(t, visible)

	// Still present in the owner's own list.
	mine, err := svc.ListMine(ctx, kidID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, svc.Reactivate(ctx, kidID, listing.ID))
	visible, err = svc.Discover(ctx, models.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestDiscoverFilters(t *testing.T) {
	svc, _, kidID := newListingFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, kidID, &models.CreateListingRequest{
		Title: "Dinosaur encyclopedia", Category: "Books", Condition: models.ConditionLikeNew,
	})
	require.NoError(t, err)

	books, err := svc.Discover(ctx, models.ListingFilter{Category: "Books"}, 0)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Dinosaur encyclopedia", books[0].Title)

	matched, err := svc.Discover(ctx, models.ListingFilter{Query: "dinosaur"}, 0)
	require.NoError(t, err)
	require.Len(t, matched, 1)

	// A kid browsing never sees their own items.
	excluded, err := svc.Discover(ctx, models.ListingFilter{ExcludeKidID: kidID}, 0)
	require.NoError(t, err)
	require.Empty(t, excluded)
}

func TestPendingPhotosHideListingUntilReviewed(t *testing.T) {
	ctx := context.Background()

	profiles := NewMemoryProfileStore()
	listings := NewMemoryListingStore()
	rewards := NewRewardService(NewMemoryRewardStore())
	// No inline moderation: pending photos wait for the async worker.
	svc := NewListingService(listings, profiles, rewards, nil)

	now := time.Now().UTC()
	require.NoError(t, profiles.InsertProfile(ctx, &models.Profile{
		ID: "kid-1", Email: "sam@example.com", Role: models.RoleKid, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, profiles.InsertKid(ctx, &models.Kid{
		ProfileID: "kid-1", Age: 11, ParentVerified: true,
		Membership: models.MembershipFree, CreatedAt: now, UpdatedAt: now,
	}))

	listing, err := svc.Create(ctx, "kid-1", &models.CreateListingRequest{
		Title: "Lego castle", Category: "Toys", Condition: models.ConditionGood,
		PhotoURLs: []string{"pending/castle.jpg"},
	})
	require.NoError(t, err)
	require.False(t, listing.IsModerated)

	visible, err := svc.Discover(ctx, models.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Empty(t, visible)

	// The worker promoting the last pending photo returns it to discovery.
	actions := &ModerationActions{Listings: listings}
	require.NoError(t, actions.Promote(ctx, "kid-1", "pending/castle.jpg", "https://cdn.example.com/castle.jpg", "listing_photo"))

	visible, err = svc.Discover(ctx, models.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.True(t, visible[0].IsModerated)
	require.Equal(t, []string{"https://cdn.example.com/castle.jpg"}, visible[0].PhotoURLs)
}

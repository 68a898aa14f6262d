package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func TestStrikeAndClearRemovesPhotoAndRestoresListing(t *testing.T) {
	ctx := context.Background()

	listings := NewMemoryListingStore()
	flags := NewMemoryFlagStore()
	actions := &ModerationActions{
		Listings:      listings,
		Flags:         flags,
		Notifications: NewNotificationService(NewMemoryNotificationStore()),
	}

	now := time.Now().UTC()
	require.NoError(t, listings.Insert(ctx, &models.Listing{
		ID: "listing-1", KidID: "kid-1", Title: "Lego castle",
		PhotoURLs: []string{"https://cdn.example.com/front.jpg", "pending/back.jpg"},
		IsActive:  true, IsModerated: false,
		CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, actions.StrikeAndClear(ctx, "kid-1", "pending/back.jpg", "listing_photo"))

	listing, err := listings.GetByID(ctx, "listing-1")
	require.NoError(t, err)
	require.Equal(t, []string{"https://cdn.example.com/front.jpg"}, listing.PhotoURLs)
	// No pending photos remain, so the listing is moderated again.
	require.True(t, listing.IsModerated)

	flag, err := flags.AddStrike(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 2, flag.Strikes)
}

func TestPromoteKeepsListingHiddenWhilePhotosPend(t *testing.T) {
	ctx := context.Background()

	listings := NewMemoryListingStore()
	actions := &ModerationActions{Listings: listings}

	now := time.Now().UTC()
	require.NoError(t, listings.Insert(ctx, &models.Listing{
		ID: "listing-1", KidID: "kid-1", Title: "Lego castle",
		PhotoURLs: []string{"pending/front.jpg", "pending/back.jpg"},
		IsActive:  true, IsModerated: false,
		CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, actions.Promote(ctx, "kid-1", "pending/front.jpg", "https://cdn.example.com/front.jpg", "listing_photo"))

	listing, err := listings.GetByID(ctx, "listing-1")
	require.NoError(t, err)
	require.False(t, listing.IsModerated)

	require.NoError(t, actions.Promote(ctx, "kid-1", "pending/back.jpg", "https://cdn.example.com/back.jpg", "listing_photo"))

	listing, err = listings.GetByID(ctx, "listing-1")
	require.NoError(t, err)
	require.True(t, listing.IsModerated)
}

func TestPromoteProfilePhoto(t *testing.T) {
	ctx := context.Background()

	profiles := NewMemoryProfileStore()
	actions := &ModerationActions{Profiles: profiles}

	now := time.Now().UTC()
	require.NoError(t, profiles.InsertProfile(ctx, &models.Profile{
		ID: "parent-1", Email: "dee@example.com", Role: models.RoleParent,
		CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, actions.Promote(ctx, "parent-1", "pending/avatar.jpg", "https://cdn.example.com/avatar.jpg", "profile_photo"))

	p, err := profiles.GetProfile(ctx, "parent-1")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/avatar.jpg", p.PhotoURL)

	require.NoError(t, actions.StrikeAndClear(ctx, "parent-1", "pending/avatar.jpg", "profile_photo"))

	p, err = profiles.GetProfile(ctx, "parent-1")
	require.NoError(t, err)
	require.Empty(t, p.PhotoURL)
}

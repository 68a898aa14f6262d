package services

import (
	"context"
	"log"

	"github.com/kidswap/backend/internal/models"
)

// ModerationActions reacts to asynchronous image rejections coming from the
// moderation worker: the offending reference is cleared from whatever record
// holds it, the owner takes a strike, and the owner is told why the photo
// disappeared.
type ModerationActions struct {
	Listings      ListingStore
	Profiles      ProfileStore
	Flags         FlagStore
	Notifications *NotificationService
}

// StrikeAndClear clears references for a rejected image and records a strike.
// path is the pending-path (or stored URL) the worker saw rejected.
func (m *ModerationActions) StrikeAndClear(ctx context.Context, userID, path, typ string) error {
	if m.Flags != nil && userID != "" {
		if _, err := m.Flags.AddStrike(ctx, userID); err != nil {
			log.Printf("[moderation] strike failed userID=%s err=%v", userID, err)
		}
	}

	switch typ {
	case "listing_photo":
		if m.Listings == nil {
			return nil
		}
		listingID, err := m.Listings.RejectPendingPhoto(ctx, path)
		if err != nil {
			return err
		}
		if listingID != "" && m.Notifications != nil && userID != "" {
			m.Notifications.Notify(ctx, userID, models.NotifListingRejected,
				"Photo removed",
				"One of your listing photos did not pass review and was removed.",
				listingID)
		}
		m.refreshModerated(ctx, listingID)
	case "profile_photo":
		if m.Profiles == nil {
			return nil
		}
		// Profile photos are always user-owned; clear unconditionally.
		return m.Profiles.UpdateProfilePhoto(ctx, userID, "")
	}
	return nil
}

// Promote records an approved photo's final URL on whatever record
// referenced its pending path.
func (m *ModerationActions) Promote(ctx context.Context, userID, pendingPath, approvedURL, typ string) error {
	switch typ {
	case "listing_photo":
		if m.Listings == nil {
			return nil
		}
		listingID, err := m.Listings.ApprovePendingPhoto(ctx, pendingPath, approvedURL)
		if err != nil {
			return err
		}
		m.refreshModerated(ctx, listingID)
		return nil
	case "profile_photo":
		if m.Profiles == nil || userID == "" {
			return nil
		}
		return m.Profiles.UpdateProfilePhoto(ctx, userID, approvedURL)
	}
	return nil
}

// refreshModerated flips is_moderated on once the listing's last pending
// photo has been promoted or removed, returning it to discovery.
func (m *ModerationActions) refreshModerated(ctx context.Context, listingID string) {
	if listingID == "" {
		return
	}
	listing, err := m.Listings.GetByID(ctx, listingID)
	if err != nil {
		log.Printf("[moderation] refresh lookup failed listing=%s err=%v", listingID, err)
		return
	}
	if listing.IsModerated || hasPendingPhotos(listing.PhotoURLs) {
		return
	}
	if err := m.Listings.SetModerated(ctx, listingID, true); err != nil {
		log.Printf("[moderation] refresh failed listing=%s err=%v", listingID, err)
	}
}

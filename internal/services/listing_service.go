package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// ListingService owns listing creation, editing, discovery and retraction.
// Photos referenced under pending/ run through image moderation inline at
// create/update time; a listing with no photos skips moderation entirely.
// When inline moderation is not configured, pending photos are left for the
// async worker and the listing stays unmoderated (hidden from discovery)
// until the worker clears its last pending photo.
type ListingService struct {
	listings   ListingStore
	profiles   ProfileStore
	rewards    *RewardService
	moderation *ModerationService // nil when Vision/GCS is not configured
}

func NewListingService(listings ListingStore, profiles ProfileStore, rewards *RewardService, moderation *ModerationService) *ListingService {
	return &ListingService{
		listings:   listings,
		profiles:   profiles,
		rewards:    rewards,
		moderation: moderation,
	}
}

// Create publishes a new listing for the kid. Their very first listing earns
// points; the credit keys on the count before insert so a failed insert
// never leaves a stray credit.
func (s *ListingService) Create(ctx context.Context, kidID string, req *models.CreateListingRequest) (*models.Listing, error) {
	if _, err := s.profiles.GetKid(ctx, kidID); err != nil {
		return nil, err
	}

	photos, err := s.moderatePhotos(ctx, req.PhotoURLs, kidID)
	if err != nil {
		return nil, err
	}

	existing, err := s.listings.CountByKid(ctx, kidID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		ID:              uuid.New().String(),
		KidID:           kidID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Condition:       req.Condition,
		Brand:           req.Brand,
		AgeRange:        req.AgeRange,
		Color:           req.Color,
		Size:            req.Size,
		DesiredExchange: req.DesiredExchange,
		PhotoURLs:       photos,
		IsActive:        true,
		IsModerated:     !hasPendingPhotos(photos),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.listings.Insert(ctx, listing); err != nil {
		return nil, err
	}

	log.Printf("[ListingService] Listing %s created by %s", listing.ID, kidID)

	if existing == 0 {
		if err := s.rewards.Credit(ctx, kidID, models.PointsFirstListing, models.ReasonFirstListing, listing.ID); err != nil {
			log.Printf("[ListingService] Failed to credit first-listing points to %s: %v", kidID, err)
		}
	}

	return listing, nil
}

// Update edits an owned listing; new pending photos are moderated inline.
func (s *ListingService) Update(ctx context.Context, kidID, listingID string, req *models.UpdateListingRequest) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.KidID != kidID {
		return nil, fmt.Errorf("%w: you can only edit your own listing", ErrUnauthorized)
	}

	photos, err := s.moderatePhotos(ctx, req.PhotoURLs, kidID)
	if err != nil {
		return nil, err
	}

	listing.Title = req.Title
	listing.Description = req.Description
	listing.Category = req.Category
	listing.Condition = req.Condition
	listing.Brand = req.Brand
	listing.AgeRange = req.AgeRange
	listing.Color = req.Color
	listing.Size = req.Size
	listing.DesiredExchange = req.DesiredExchange
	listing.PhotoURLs = photos
	listing.IsModerated = !hasPendingPhotos(photos)
	listing.UpdatedAt = time.Now().UTC()

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) Get(ctx context.Context, listingID string) (*models.Listing, error) {
	return s.listings.GetByID(ctx, listingID)
}

// Discover returns visible listings matching the filter, excluding the
// browsing kid's own items.
func (s *ListingService) Discover(ctx context.Context, filter models.ListingFilter, limit int) ([]*models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.listings.List(ctx, filter, limit)
}

// ListMine returns all of the kid's listings, including retracted ones.
func (s *ListingService) ListMine(ctx context.Context, kidID string) ([]*models.Listing, error) {
	return s.listings.ListByKid(ctx, kidID)
}

// Retract hides an owned listing from discovery without deleting it.
func (s *ListingService) Retract(ctx context.Context, kidID, listingID string) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.KidID != kidID {
		return fmt.Errorf("%w: you can only retract your own listing", ErrUnauthorized)
	}
	return s.listings.SetActive(ctx, listingID, false)
}

// Reactivate puts a retracted owned listing back into discovery.
func (s *ListingService) Reactivate(ctx context.Context, kidID, listingID string) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.KidID != kidID {
		return fmt.Errorf("%w: you can only reactivate your own listing", ErrUnauthorized)
	}
	return s.listings.SetActive(ctx, listingID, true)
}

func (s *ListingService) moderatePhotos(ctx context.Context, photos []string, kidID string) ([]string, error) {
	if s.moderation == nil || len(photos) == 0 {
		return photos, nil
	}
	return s.moderation.ModerateMultiple(ctx, photos, kidID)
}

// hasPendingPhotos reports whether any photo still references an unreviewed
// pending/ upload.
func hasPendingPhotos(photos []string) bool {
	for _, p := range photos {
		if strings.HasPrefix(p, "pending/") {
			return true
		}
	}
	return false
}

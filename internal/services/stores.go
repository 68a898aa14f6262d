package services

import (
	"context"
	"time"

	"github.com/kidswap/backend/internal/models"
)

// Store contracts consumed by the services. Each has an in-memory
// implementation for dev/tests and a Mongo implementation for production;
// services receive them by injection and never reach into shared globals.

type ProfileStore interface {
	InsertProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfilePhoto(ctx context.Context, id, photoURL string) error

	InsertKid(ctx context.Context, k *models.Kid) error
	GetKid(ctx context.Context, profileID string) (*models.Kid, error)
	SetKidParentVerified(ctx context.Context, profileID string, verified bool) error
	SetKidMembership(ctx context.Context, profileID string, tier models.MembershipTier) error

	InsertParent(ctx context.Context, p *models.Parent) error
	GetParent(ctx context.Context, profileID string) (*models.Parent, error)
	SetParentVerifiedFlags(ctx context.Context, profileID string, phone, email *bool) error

	InsertLink(ctx context.Context, l *models.ParentChildLink) error
	LinksForKid(ctx context.Context, kidID string) ([]models.ParentChildLink, error)
	LinksForParent(ctx context.Context, parentID string) ([]models.ParentChildLink, error)
	// MarkLinkVerified stamps verified_at on the parent/kid link when its
	// verification request resolves verified.
	MarkLinkVerified(ctx context.Context, parentID, kidID string, at time.Time) error

	DeleteProfileData(ctx context.Context, profileID string) error
}

type ListingStore interface {
	Insert(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Update(ctx context.Context, l *models.Listing) error
	SetActive(ctx context.Context, id string, active bool) error
	SetModerated(ctx context.Context, id string, moderated bool) error
	List(ctx context.Context, filter models.ListingFilter, limit int) ([]*models.Listing, error)
	ListByKid(ctx context.Context, kidID string) ([]*models.Listing, error)
	CountByKid(ctx context.Context, kidID string) (int, error)
	// ApprovePendingPhoto swaps a pending/ photo path for its approved URL on
	// whichever listing references it; RejectPendingPhoto drops the path.
	// Both return the affected listing id, or "" when nothing matched.
	ApprovePendingPhoto(ctx context.Context, pendingPath, approvedURL string) (string, error)
	RejectPendingPhoto(ctx context.Context, pendingPath string) (string, error)
	DeleteByKid(ctx context.Context, kidID string) ([]string, error)
}

// TradeCondition guards a trade write: the current status must be one of
// Status, and when SideUndecided is set that side's approval flag must still
// be nil. A write whose condition no longer holds fails with errStaleWrite.
type TradeCondition struct {
	Status        []models.TradeStatus
	SideUndecided models.TradeSide
}

// TradePatch is the set of fields a transition may write.
type TradePatch struct {
	Status                  *models.TradeStatus
	InitiatorParentApproved *bool
	ResponderParentApproved *bool
	ScheduledAt             *time.Time
	MeetupLocation          *string
	MeetupLat               *float64
	MeetupLng               *float64
	CompletedAt             *time.Time
}

type TradeStore interface {
	Insert(ctx context.Context, t *models.Trade) error
	GetByID(ctx context.Context, id string) (*models.Trade, error)
	// UpdateGuarded applies patch only while cond holds (compare-and-set) and
	// returns the updated trade, or errStaleWrite when the guard misses.
	UpdateGuarded(ctx context.Context, id string, cond TradeCondition, patch TradePatch) (*models.Trade, error)
	// CountOpenBetween counts non-terminal trades linking the same two
	// listings in either orientation.
	CountOpenBetween(ctx context.Context, listingA, listingB string) (int, error)
	ListByKid(ctx context.Context, kidID string) ([]*models.Trade, error)
	ListProposedForKids(ctx context.Context, kidIDs []string) ([]*models.Trade, error)
}

type RewardStore interface {
	AppendCredit(ctx context.Context, r *models.Reward) error
	AppendRedemption(ctx context.Context, r *models.RewardRedemption) error
	Credits(ctx context.Context, userID string) ([]models.Reward, error)
	Redemptions(ctx context.Context, userID string) ([]models.RewardRedemption, error)
	// Version / BumpVersion implement the per-user monotonic guard that
	// serializes redemption check-then-append across processes.
	Version(ctx context.Context, userID string) (int64, error)
	BumpVersion(ctx context.Context, userID string, expected int64) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type ChatStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	ListByTrade(ctx context.Context, tradeID string) ([]*models.ChatMessage, error)
	// Subscribe streams messages appended to the trade's chat after the call.
	// The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, tradeID string) (<-chan models.ChatMessage, error)
}

type FeedbackStore interface {
	// Insert fails with ErrFeedbackExists when the (trade, reviewer) pair
	// already has feedback.
	Insert(ctx context.Context, f *models.Feedback) error
	ListByTrade(ctx context.Context, tradeID string) ([]*models.Feedback, error)
	ListForUser(ctx context.Context, revieweeID string) ([]*models.Feedback, error)
}

type VerificationStore interface {
	Insert(ctx context.Context, v *models.VerificationRequest) error
	GetByID(ctx context.Context, id string) (*models.VerificationRequest, error)
	ListPending(ctx context.Context) ([]*models.VerificationRequest, error)
	// Resolve transitions pending -> status; errStaleWrite once resolved.
	Resolve(ctx context.Context, id string, status models.VerificationStatus, reviewerID string, at time.Time) (*models.VerificationRequest, error)
}

type FlagStore interface {
	AddStrike(ctx context.Context, userID string) (*models.UserFlag, error)
}

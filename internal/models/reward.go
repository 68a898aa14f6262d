package models

import (
	"strings"
	"time"
)

// Point schedule. Policy constants, not engine logic.
const (
	PointsFirstListing   = 5
	PointsCompletedTrade = 5
	PointsReview         = 2
	PointsReferral       = 2
)

// Reward reasons.
const (
	ReasonFirstListing   = "first_listing"
	ReasonCompletedTrade = "completed_trade"
	ReasonReview         = "review_submitted"
	ReasonReferral       = "referral"
)

// Reward is an immutable point-earning event. Balances are always derived
// from the event log, never stored.
type Reward struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Points    int       `json:"points" bson:"points"`
	Reason    string    `json:"reason" bson:"reason"`
	RelatedID string    `json:"related_id,omitempty" bson:"related_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// RewardRedemption is an immutable point-spending event.
type RewardRedemption struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	PointsUsed int       `json:"points_used" bson:"points_used"`
	RewardType string    `json:"reward_type" bson:"reward_type"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// RewardBalance is the derived view of a user's ledger.
type RewardBalance struct {
	UserID      string `json:"user_id"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	Balance     int    `json:"balance"`
}

type RedeemRequest struct {
	RewardType     string `json:"reward_type"`
	PointsRequired int    `json:"points_required"`
}

func (r *RedeemRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.RewardType) == "" {
		errors["reward_type"] = "Reward type is required"
	}
	if r.PointsRequired <= 0 {
		errors["points_required"] = "Points required must be positive"
	}

	return errors
}

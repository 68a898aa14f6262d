package models

import "time"

// Notification types emitted by the services.
const (
	NotifTradeProposed        = "trade_proposed"
	NotifTradeApproved        = "trade_approved"
	NotifTradeRejected        = "trade_rejected"
	NotifTradeScheduled       = "trade_scheduled"
	NotifTradeCompleted       = "trade_completed"
	NotifVerificationResolved = "verification_resolved"
	NotifListingRejected      = "listing_rejected"
)

// Notification is addressed to one profile. Creation is fire-and-forget;
// only the read flag is ever mutated afterwards.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Type      string    `json:"type" bson:"type"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	RelatedID string    `json:"related_id,omitempty" bson:"related_id,omitempty"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

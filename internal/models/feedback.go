package models

import "time"

// Feedback is one rating per (trade, reviewer) pair, allowed only once the
// trade has completed.
type Feedback struct {
	ID         string    `json:"id" bson:"_id"`
	TradeID    string    `json:"trade_id" bson:"trade_id"`
	ReviewerID string    `json:"reviewer_id" bson:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id" bson:"reviewee_id"`
	Rating     int       `json:"rating" bson:"rating"`
	Review     string    `json:"review,omitempty" bson:"review,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

type SubmitFeedbackRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (r *SubmitFeedbackRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Rating < 1 || r.Rating > 5 {
		errors["rating"] = "Rating must be between 1 and 5"
	}
	if len(r.Review) > 2000 {
		errors["review"] = "Review is too long"
	}

	return errors
}

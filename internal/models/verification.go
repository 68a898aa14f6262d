package models

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// VerificationRequest asks an admin to confirm a parent-child relationship.
// Resolving it as verified flips the kid's parent_verified flag.
type VerificationRequest struct {
	ID         string             `json:"id" bson:"_id"`
	KidID      string             `json:"kid_id" bson:"kid_id"`
	ParentID   string             `json:"parent_id" bson:"parent_id"`
	Status     VerificationStatus `json:"status" bson:"status"`
	ReviewedBy string             `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt *time.Time         `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

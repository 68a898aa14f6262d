package models

import (
	"encoding/json"
	"strings"
	"time"
)

type TradeStatus string

const (
	TradeProposed  TradeStatus = "proposed"
	TradeApproved  TradeStatus = "approved"
	TradeScheduled TradeStatus = "scheduled"
	TradeCompleted TradeStatus = "completed"
	TradeCancelled TradeStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s TradeStatus) Terminal() bool {
	return s == TradeCompleted || s == TradeCancelled
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type TradeSide string

const (
	SideInitiator TradeSide = "initiator"
	SideResponder TradeSide = "responder"
)

func (s TradeSide) IsValid() bool {
	return s == SideInitiator || s == SideResponder
}

// Other returns the opposite side.
func (s TradeSide) Other() TradeSide {
	if s == SideInitiator {
		return SideResponder
	}
	return SideInitiator
}

// Trade links two listings owned by two different kids and walks them through
// proposal, dual parental approval, scheduling and completion. The two
// per-side approval flags are the source of truth; the aggregate approval
// status is always derived from them and never stored.
type Trade struct {
	ID                 string      `json:"id" bson:"_id"`
	InitiatorListingID string      `json:"initiator_listing_id" bson:"initiator_listing_id"`
	ResponderListingID string      `json:"responder_listing_id" bson:"responder_listing_id"`
	InitiatorKidID     string      `json:"initiator_kid_id" bson:"initiator_kid_id"`
	ResponderKidID     string      `json:"responder_kid_id" bson:"responder_kid_id"`
	Status             TradeStatus `json:"status" bson:"status"`

	// nil = that side's parent has not decided yet.
	InitiatorParentApproved *bool `json:"initiator_parent_approved" bson:"initiator_parent_approved,omitempty"`
	ResponderParentApproved *bool `json:"responder_parent_approved" bson:"responder_parent_approved,omitempty"`

	ProposedExchange string     `json:"proposed_exchange,omitempty" bson:"proposed_exchange,omitempty"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	MeetupLocation   string     `json:"meetup_location,omitempty" bson:"meetup_location,omitempty"`
	MeetupLat        *float64   `json:"meetup_lat,omitempty" bson:"meetup_lat,omitempty"`
	MeetupLng        *float64   `json:"meetup_lng,omitempty" bson:"meetup_lng,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

// ParentApprovalStatus derives the aggregate approval state from the two
// per-side flags. Any recorded rejection wins; both approvals are required
// for the aggregate to read approved.
func (t *Trade) ParentApprovalStatus() ApprovalStatus {
	if falseSet(t.InitiatorParentApproved) || falseSet(t.ResponderParentApproved) {
		return ApprovalRejected
	}
	if trueSet(t.InitiatorParentApproved) && trueSet(t.ResponderParentApproved) {
		return ApprovalApproved
	}
	return ApprovalPending
}

// ApprovalFor returns the recorded decision for one side, nil if undecided.
func (t *Trade) ApprovalFor(side TradeSide) *bool {
	if side == SideInitiator {
		return t.InitiatorParentApproved
	}
	return t.ResponderParentApproved
}

// KidFor returns the kid owning the listing on the given side.
func (t *Trade) KidFor(side TradeSide) string {
	if side == SideInitiator {
		return t.InitiatorKidID
	}
	return t.ResponderKidID
}

// SideOfKid returns which side a kid participates on, false if not a party.
func (t *Trade) SideOfKid(kidID string) (TradeSide, bool) {
	switch kidID {
	case t.InitiatorKidID:
		return SideInitiator, true
	case t.ResponderKidID:
		return SideResponder, true
	}
	return "", false
}

// MarshalJSON adds the derived parent_approval_status field so API clients
// never see it drift from the per-side flags.
func (t *Trade) MarshalJSON() ([]byte, error) {
	type alias Trade
	return json.Marshal(struct {
		*alias
		ParentApprovalStatus ApprovalStatus `json:"parent_approval_status"`
	}{
		alias:                (*alias)(t),
		ParentApprovalStatus: t.ParentApprovalStatus(),
	})
}

func trueSet(b *bool) bool  { return b != nil && *b }
func falseSet(b *bool) bool { return b != nil && !*b }

type ProposeTradeRequest struct {
	InitiatorListingID string `json:"initiator_listing_id"`
	ResponderListingID string `json:"responder_listing_id"`
	ProposedExchange   string `json:"proposed_exchange"`
}

func (r *ProposeTradeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.InitiatorListingID) == "" {
		errors["initiator_listing_id"] = "Your listing is required"
	}
	if strings.TrimSpace(r.ResponderListingID) == "" {
		errors["responder_listing_id"] = "The listing you want to trade for is required"
	}
	if r.InitiatorListingID != "" && r.InitiatorListingID == r.ResponderListingID {
		errors["responder_listing_id"] = "A trade needs two different listings"
	}

	return errors
}

type ParentDecisionRequest struct {
	Side     TradeSide `json:"side"`
	Approved bool      `json:"approved"`
}

func (r *ParentDecisionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !r.Side.IsValid() {
		errors["side"] = "Side must be initiator or responder"
	}

	return errors
}

type ScheduleTradeRequest struct {
	Date     string   `json:"date"` // YYYY-MM-DD
	Time     string   `json:"time"` // HH:MM, 24h
	Location string   `json:"location"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

func (r *ScheduleTradeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Location) == "" {
		errors["location"] = "Meetup location is required"
	}
	if _, err := r.Instant(); err != nil {
		errors["date"] = "Date and time must be valid (YYYY-MM-DD and HH:MM)"
	}

	return errors
}

// Instant combines the date and time fields into a single UTC instant.
func (r *ScheduleTradeRequest) Instant() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", strings.TrimSpace(r.Date)+" "+strings.TrimSpace(r.Time))
}

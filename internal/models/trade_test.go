package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestParentApprovalStatusDerivation(t *testing.T) {
	cases := []struct {
		name      string
		initiator *bool
		responder *bool
		want      ApprovalStatus
	}{
		{"both undecided", nil, nil, ApprovalPending},
		{"one approval", boolPtr(true), nil, ApprovalPending},
		{"other approval", nil, boolPtr(true), ApprovalPending},
		{"both approved", boolPtr(true), boolPtr(true), ApprovalApproved},
		{"one rejection", boolPtr(false), nil, ApprovalRejected},
		{"rejection beats approval", boolPtr(true), boolPtr(false), ApprovalRejected},
		{"both rejected", boolPtr(false), boolPtr(false), ApprovalRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trade := &Trade{
				InitiatorParentApproved: tc.initiator,
				ResponderParentApproved: tc.responder,
			}
			require.Equal(t, tc.want, trade.ParentApprovalStatus())
		})
	}
}

func TestTradeJSONCarriesDerivedStatus(t *testing.T) {
	trade := &Trade{
		ID:                      "t-1",
		Status:                  TradeProposed,
		InitiatorParentApproved: boolPtr(true),
	}

	raw, err := json.Marshal(trade)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "pending", decoded["parent_approval_status"])
	require.Equal(t, true, decoded["initiator_parent_approved"])
	require.Nil(t, decoded["responder_parent_approved"])
}

func TestTradeSideHelpers(t *testing.T) {
	trade := &Trade{InitiatorKidID: "kid-1", ResponderKidID: "kid-2"}

	side, ok := trade.SideOfKid("kid-1")
	require.True(t, ok)
	require.Equal(t, SideInitiator, side)

	side, ok = trade.SideOfKid("kid-2")
	require.True(t, ok)
	require.Equal(t, SideResponder, side)

	_, ok = trade.SideOfKid("kid-3")
	require.False(t, ok)

	require.Equal(t, SideResponder, SideInitiator.Other())
	require.Equal(t, SideInitiator, SideResponder.Other())
	require.Equal(t, "kid-2", trade.KidFor(SideResponder))
}

func TestProposeTradeRequestValidate(t *testing.T) {
	req := &ProposeTradeRequest{}
	errs := req.Validate()
	require.Contains(t, errs, "initiator_listing_id")
	require.Contains(t, errs, "responder_listing_id")

	req = &ProposeTradeRequest{InitiatorListingID: "a", ResponderListingID: "a"}
	errs = req.Validate()
	require.Contains(t, errs, "responder_listing_id")

	req = &ProposeTradeRequest{InitiatorListingID: "a", ResponderListingID: "b"}
	require.Empty(t, req.Validate())
}

func TestParentDecisionRequestValidate(t *testing.T) {
	req := &ParentDecisionRequest{Side: "guardian"}
	require.Contains(t, req.Validate(), "side")

	req = &ParentDecisionRequest{Side: SideResponder, Approved: false}
	require.Empty(t, req.Validate())
}

func TestScheduleTradeRequestInstant(t *testing.T) {
	req := &ScheduleTradeRequest{Date: "2030-06-01", Time: "14:30", Location: "Park"}
	at, err := req.Instant()
	require.NoError(t, err)
	require.Equal(t, time.Date(2030, 6, 1, 14, 30, 0, 0, time.UTC), at)
	require.Empty(t, req.Validate())

	bad := &ScheduleTradeRequest{Date: "June 1st", Time: "2pm", Location: "Park"}
	_, err = bad.Instant()
	require.Error(t, err)
	require.Contains(t, bad.Validate(), "date")

	noWhere := &ScheduleTradeRequest{Date: "2030-06-01", Time: "14:30"}
	require.Contains(t, noWhere.Validate(), "location")
}

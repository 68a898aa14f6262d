package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    models.TradeStatus
		to      models.TradeStatus
		allowed bool
	}{
		{models.TradeProposed, models.TradeApproved, true},
		{models.TradeProposed, models.TradeCancelled, true},
		{models.TradeProposed, models.TradeScheduled, false},
		{models.TradeProposed, models.TradeCompleted, false},
		{models.TradeApproved, models.TradeScheduled, true},
		{models.TradeApproved, models.TradeCancelled, true},
		{models.TradeApproved, models.TradeCompleted, false},
		{models.TradeScheduled, models.TradeCompleted, true},
		{models.TradeScheduled, models.TradeCancelled, false},
		{models.TradeCompleted, models.TradeCancelled, false},
		{models.TradeCompleted, models.TradeProposed, false},
		{models.TradeCancelled, models.TradeApproved, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, canTransition(tc.from, tc.to),
			"transition %s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, models.TradeCompleted.Terminal())
	require.True(t, models.TradeCancelled.Terminal())
	require.False(t, models.TradeProposed.Terminal())
	require.False(t, models.TradeApproved.Terminal())
	require.False(t, models.TradeScheduled.Terminal())
}

func TestDecisionOutcome(t *testing.T) {
	yes := true
	no := false

	// A rejection cancels regardless of the other side.
	require.Equal(t, models.TradeCancelled, decisionOutcome(false, nil))
	require.Equal(t, models.TradeCancelled, decisionOutcome(false, &yes))
	require.Equal(t, models.TradeCancelled, decisionOutcome(false, &no))

	// First approval leaves the trade proposed; second approves it.
	require.Equal(t, models.TradeProposed, decisionOutcome(true, nil))
	require.Equal(t, models.TradeApproved, decisionOutcome(true, &yes))
}

package services

import "github.com/kidswap/backend/internal/models"

// allowedTransitions is the full edge set of the trade state machine. Any
// write that would move a trade along an edge not listed here is rejected
// before it reaches a store.
var allowedTransitions = map[models.TradeStatus][]models.TradeStatus{
	models.TradeProposed:  {models.TradeApproved, models.TradeCancelled},
	models.TradeApproved:  {models.TradeScheduled, models.TradeCancelled},
	models.TradeScheduled: {models.TradeCompleted},
	models.TradeCompleted: {},
	models.TradeCancelled: {},
}

func canTransition(from, to models.TradeStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// decisionOutcome computes the status a parent decision moves the trade to,
// given the other side's recorded flag. A rejection cancels immediately; an
// approval completes the aggregate only when the other side already approved.
func decisionOutcome(approved bool, otherSide *bool) models.TradeStatus {
	if !approved {
		return models.TradeCancelled
	}
	if otherSide != nil && *otherSide {
		return models.TradeApproved
	}
	return models.TradeProposed
}

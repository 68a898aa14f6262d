package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// TradeService owns the trade state machine: proposal, dual parental
// approval, scheduling, completion and cancellation. Every state-changing
// write goes through the store's guarded update so concurrent actors can
// never double-apply a transition; reward credits and notifications fire
// only on the transition that actually won.
type TradeService struct {
	trades        TradeStore
	listings      ListingStore
	profiles      ProfileStore
	rewards       *RewardService
	notifications *NotificationService
}

func NewTradeService(trades TradeStore, listings ListingStore, profiles ProfileStore, rewards *RewardService, notifications *NotificationService) *TradeService {
	return &TradeService{
		trades:        trades,
		listings:      listings,
		profiles:      profiles,
		rewards:       rewards,
		notifications: notifications,
	}
}

// Propose creates a trade in the proposed state. The initiator must be a
// parent-verified kid offering their own visible listing against another
// kid's visible listing, with no open trade already linking the two.
func (s *TradeService) Propose(ctx context.Context, kidID string, req *models.ProposeTradeRequest) (*models.Trade, error) {
	kid, err := s.profiles.GetKid(ctx, kidID)
	if err != nil {
		return nil, err
	}
	if !kid.ParentVerified {
		return nil, fmt.Errorf("%w: a verified parent link is required before trading", ErrInvalidProposal)
	}

	offered, err := s.listings.GetByID(ctx, req.InitiatorListingID)
	if err != nil {
		return nil, err
	}
	wanted, err := s.listings.GetByID(ctx, req.ResponderListingID)
	if err != nil {
		return nil, err
	}

	if offered.KidID != kidID {
		return nil, fmt.Errorf("%w: you can only offer your own listing", ErrInvalidProposal)
	}
	if wanted.KidID == kidID {
		return nil, fmt.Errorf("%w: you cannot trade with yourself", ErrInvalidProposal)
	}
	if !offered.Visible() || !wanted.Visible() {
		return nil, fmt.Errorf("%w: both listings must be active", ErrInvalidProposal)
	}

	open, err := s.trades.CountOpenBetween(ctx, offered.ID, wanted.ID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, fmt.Errorf("%w: an open trade already exists between these listings", ErrInvalidProposal)
	}

	now := time.Now().UTC()
	trade := &models.Trade{
		ID:                 uuid.New().String(),
		InitiatorListingID: offered.ID,
		ResponderListingID: wanted.ID,
		InitiatorKidID:     kidID,
		ResponderKidID:     wanted.KidID,
		Status:             models.TradeProposed,
		ProposedExchange:   req.ProposedExchange,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.trades.Insert(ctx, trade); err != nil {
		return nil, err
	}

	log.Printf("[TradeService] Trade %s proposed: %s -> %s", trade.ID, kidID, wanted.KidID)

	s.notifications.Notify(ctx, wanted.KidID, models.NotifTradeProposed,
		"New trade proposal",
		fmt.Sprintf("Someone wants to trade for your %q", wanted.Title),
		trade.ID)
	s.notifyParentsOf(ctx, wanted.KidID, models.NotifTradeProposed,
		"Trade proposal needs your review",
		"A trade involving your child is waiting for your decision.",
		trade.ID)
	s.notifyParentsOf(ctx, kidID, models.NotifTradeProposed,
		"Trade proposal needs your review",
		"A trade involving your child is waiting for your decision.",
		trade.ID)

	return trade, nil
}

// ParentDecision records one side's parental approval or rejection. A
// rejection cancels the trade immediately; the second approval moves it to
// approved. A side that already carries a decision is never overwritten.
func (s *TradeService) ParentDecision(ctx context.Context, parentID, tradeID string, req *models.ParentDecisionRequest) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	kidID := trade.KidFor(req.Side)
	linked, err := s.parentLinkedTo(ctx, parentID, kidID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, fmt.Errorf("%w: you are not linked to the kid on this side of the trade", ErrUnauthorized)
	}

	if trade.Status != models.TradeProposed {
		return nil, fmt.Errorf("%w: decisions are only accepted while the trade is proposed", ErrInvalidTransition)
	}
	if trade.ApprovalFor(req.Side) != nil {
		return nil, ErrAlreadyDecided
	}

	next := decisionOutcome(req.Approved, trade.ApprovalFor(req.Side.Other()))

	patch := TradePatch{}
	flag := req.Approved
	if req.Side == models.SideInitiator {
		patch.InitiatorParentApproved = &flag
	} else {
		patch.ResponderParentApproved = &flag
	}
	if next != models.TradeProposed {
		patch.Status = &next
	}

	updated, err := s.trades.UpdateGuarded(ctx, tradeID, TradeCondition{
		Status:        []models.TradeStatus{models.TradeProposed},
		SideUndecided: req.Side,
	}, patch)
	if err == errStaleWrite {
		// Lost the race: re-read to report what actually happened.
		current, readErr := s.trades.GetByID(ctx, tradeID)
		if readErr != nil {
			return nil, readErr
		}
		if current.ApprovalFor(req.Side) != nil {
			return nil, ErrAlreadyDecided
		}
		return nil, fmt.Errorf("%w: decisions are only accepted while the trade is proposed", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[TradeService] Trade %s decision: side=%s approved=%t -> %s", tradeID, req.Side, req.Approved, updated.Status)

	switch updated.Status {
	case models.TradeCancelled:
		s.notifyBothKids(ctx, updated, models.NotifTradeRejected,
			"Trade not approved",
			"A parent declined this trade, so it has been cancelled.")
	case models.TradeApproved:
		s.notifyBothKids(ctx, updated, models.NotifTradeApproved,
			"Trade approved",
			"Both parents approved your trade. Time to schedule a meetup!")
	}

	return updated, nil
}

// Schedule moves an approved trade to scheduled with a future meetup time.
// Either participating kid may schedule.
func (s *TradeService) Schedule(ctx context.Context, kidID, tradeID string, req *models.ScheduleTradeRequest) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if _, ok := trade.SideOfKid(kidID); !ok {
		return nil, fmt.Errorf("%w: only a trade participant can schedule it", ErrUnauthorized)
	}

	at, err := req.Instant()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid meetup date/time", ErrInvalidTransition)
	}
	if !at.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: meetup must be in the future", ErrInvalidTransition)
	}

	status := models.TradeScheduled
	patch := TradePatch{
		Status:         &status,
		ScheduledAt:    &at,
		MeetupLocation: &req.Location,
		MeetupLat:      req.Lat,
		MeetupLng:      req.Lng,
	}
	updated, err := s.trades.UpdateGuarded(ctx, tradeID, TradeCondition{
		Status: []models.TradeStatus{models.TradeApproved},
	}, patch)
	if err == errStaleWrite {
		return nil, fmt.Errorf("%w: only an approved trade can be scheduled", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[TradeService] Trade %s scheduled for %s at %q", tradeID, at.Format(time.RFC3339), req.Location)

	s.notifyBothKids(ctx, updated, models.NotifTradeScheduled,
		"Trade scheduled",
		fmt.Sprintf("Meetup set for %s at %s.", at.Format("Jan 2 at 15:04"), req.Location))

	return updated, nil
}

// Complete finishes a scheduled trade: both listings are deactivated and
// both kids earn completion points. Rewards are emitted only by the winning
// transition write, so a repeat call can never re-issue them.
func (s *TradeService) Complete(ctx context.Context, kidID, tradeID string) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if _, ok := trade.SideOfKid(kidID); !ok {
		return nil, fmt.Errorf("%w: only a trade participant can complete it", ErrUnauthorized)
	}

	status := models.TradeCompleted
	now := time.Now().UTC()
	updated, err := s.trades.UpdateGuarded(ctx, tradeID, TradeCondition{
		Status: []models.TradeStatus{models.TradeScheduled},
	}, TradePatch{Status: &status, CompletedAt: &now})
	if err == errStaleWrite {
		return nil, fmt.Errorf("%w: only a scheduled trade can be completed", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[TradeService] Trade %s completed", tradeID)

	for _, listingID := range []string{updated.InitiatorListingID, updated.ResponderListingID} {
		if err := s.listings.SetActive(ctx, listingID, false); err != nil {
			log.Printf("[TradeService] Failed to deactivate listing %s after trade %s: %v", listingID, tradeID, err)
		}
	}
	for _, kid := range []string{updated.InitiatorKidID, updated.ResponderKidID} {
		if err := s.rewards.Credit(ctx, kid, models.PointsCompletedTrade, models.ReasonCompletedTrade, tradeID); err != nil {
			log.Printf("[TradeService] Failed to credit completion points to %s for trade %s: %v", kid, tradeID, err)
		}
	}

	s.notifyBothKids(ctx, updated, models.NotifTradeCompleted,
		"Trade completed",
		fmt.Sprintf("Nice trade! You both earned %d points.", models.PointsCompletedTrade))

	return updated, nil
}

// Cancel withdraws a trade that has not yet been scheduled. Participating
// kids and their linked parents may cancel.
func (s *TradeService) Cancel(ctx context.Context, actorID, tradeID string) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.canActOn(ctx, actorID, trade)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: only participants or their parents can cancel", ErrUnauthorized)
	}

	status := models.TradeCancelled
	updated, err := s.trades.UpdateGuarded(ctx, tradeID, TradeCondition{
		Status: []models.TradeStatus{models.TradeProposed, models.TradeApproved},
	}, TradePatch{Status: &status})
	if err == errStaleWrite {
		return nil, fmt.Errorf("%w: this trade can no longer be cancelled", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[TradeService] Trade %s cancelled by %s", tradeID, actorID)

	s.notifyBothKids(ctx, updated, models.NotifTradeRejected,
		"Trade cancelled",
		"This trade was cancelled.")

	return updated, nil
}

// Get returns a trade to participants, their linked parents, and admins.
func (s *TradeService) Get(ctx context.Context, actorID string, actorRole models.Role, tradeID string) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if actorRole.IsAdmin() {
		return trade, nil
	}
	allowed, err := s.canActOn(ctx, actorID, trade)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrUnauthorized
	}
	return trade, nil
}

// ListForKid returns every trade the kid participates in, newest first.
func (s *TradeService) ListForKid(ctx context.Context, kidID string) ([]*models.Trade, error) {
	return s.trades.ListByKid(ctx, kidID)
}

// ListPendingApprovalForParent returns proposed trades where one of the
// parent's linked kids sits on a side the parent has not yet decided.
func (s *TradeService) ListPendingApprovalForParent(ctx context.Context, parentID string) ([]*models.Trade, error) {
	links, err := s.profiles.LinksForParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	kidIDs := make([]string, 0, len(links))
	kidSet := make(map[string]struct{}, len(links))
	for _, l := range links {
		kidIDs = append(kidIDs, l.KidID)
		kidSet[l.KidID] = struct{}{}
	}
	if len(kidIDs) == 0 {
		return []*models.Trade{}, nil
	}

	proposed, err := s.trades.ListProposedForKids(ctx, kidIDs)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.Trade, 0, len(proposed))
	for _, t := range proposed {
		for _, side := range []models.TradeSide{models.SideInitiator, models.SideResponder} {
			if _, mine := kidSet[t.KidFor(side)]; mine && t.ApprovalFor(side) == nil {
				pending = append(pending, t)
				break
			}
		}
	}
	return pending, nil
}

func (s *TradeService) parentLinkedTo(ctx context.Context, parentID, kidID string) (bool, error) {
	links, err := s.profiles.LinksForParent(ctx, parentID)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.KidID == kidID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TradeService) canActOn(ctx context.Context, actorID string, trade *models.Trade) (bool, error) {
	if _, ok := trade.SideOfKid(actorID); ok {
		return true, nil
	}
	links, err := s.profiles.LinksForParent(ctx, actorID)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.KidID == trade.InitiatorKidID || l.KidID == trade.ResponderKidID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TradeService) notifyBothKids(ctx context.Context, trade *models.Trade, notifType, title, message string) {
	s.notifications.Notify(ctx, trade.InitiatorKidID, notifType, title, message, trade.ID)
	s.notifications.Notify(ctx, trade.ResponderKidID, notifType, title, message, trade.ID)
}

func (s *TradeService) notifyParentsOf(ctx context.Context, kidID, notifType, title, message, relatedID string) {
	links, err := s.profiles.LinksForKid(ctx, kidID)
	if err != nil {
		log.Printf("[TradeService] Failed to load parent links for kid %s: %v", kidID, err)
		return
	}
	for _, l := range links {
		s.notifications.Notify(ctx, l.ParentID, notifType, title, message, relatedID)
	}
}

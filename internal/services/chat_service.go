package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

// ChatService gates the per-trade chat. Messaging opens once both parents
// have approved the trade and stays open through scheduling and completion;
// a proposed or cancelled trade has no chat. Parents of either kid can read
// but not write.
type ChatService struct {
	messages ChatStore
	trades   TradeStore
	profiles ProfileStore
}

func NewChatService(messages ChatStore, trades TradeStore, profiles ProfileStore) *ChatService {
	return &ChatService{
		messages: messages,
		trades:   trades,
		profiles: profiles,
	}
}

// Send appends a message from a participating kid.
func (s *ChatService) Send(ctx context.Context, senderID, tradeID string, req *models.SendMessageRequest) (*models.ChatMessage, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if _, ok := trade.SideOfKid(senderID); !ok {
		return nil, fmt.Errorf("%w: only trade participants can send messages", ErrUnauthorized)
	}
	if !chatOpen(trade.Status) {
		return nil, ErrChatDisabled
	}

	msg := &models.ChatMessage{
		ID:        uuid.New().String(),
		TradeID:   tradeID,
		SenderID:  senderID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns the full chat history, oldest first.
func (s *ChatService) Messages(ctx context.Context, actorID, tradeID string) ([]*models.ChatMessage, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, actorID, trade); err != nil {
		return nil, err
	}
	return s.messages.ListByTrade(ctx, tradeID)
}

// Stream subscribes to messages appended after the call. The returned
// channel closes when ctx is cancelled, which deregisters the listener.
func (s *ChatService) Stream(ctx context.Context, actorID, tradeID string) (<-chan models.ChatMessage, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, actorID, trade); err != nil {
		return nil, err
	}
	if !chatOpen(trade.Status) {
		return nil, ErrChatDisabled
	}

	log.Printf("[ChatService] Stream opened on trade %s by %s", tradeID, actorID)
	return s.messages.Subscribe(ctx, tradeID)
}

func (s *ChatService) canRead(ctx context.Context, actorID string, trade *models.Trade) error {
	if _, ok := trade.SideOfKid(actorID); ok {
		return nil
	}
	links, err := s.profiles.LinksForParent(ctx, actorID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.KidID == trade.InitiatorKidID || l.KidID == trade.ResponderKidID {
			return nil
		}
	}
	return fmt.Errorf("%w: only participants and their parents can read this chat", ErrUnauthorized)
}

func chatOpen(status models.TradeStatus) bool {
	switch status {
	case models.TradeApproved, models.TradeScheduled, models.TradeCompleted:
		return true
	}
	return false
}

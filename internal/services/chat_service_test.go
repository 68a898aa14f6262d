package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func approvedTradeChatFixture(t *testing.T) (*tradeFixture, *ChatService, string) {
	t.Helper()
	f := newTradeFixture(t)
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, true)
	f.decide(t, f.parent2, trade.ID, models.SideResponder, true)

	svc := NewChatService(NewMemoryChatStore(), f.trades, f.profiles)
	return f, svc, trade.ID
}

func TestChatClosedBeforeApproval(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	svc := NewChatService(NewMemoryChatStore(), f.trades, f.profiles)

	_, err := svc.Send(context.Background(), f.kid1, trade.ID, &models.SendMessageRequest{Body: "hey"})
	require.ErrorIs(t, err, ErrChatDisabled)
}

func TestChatClosedAfterCancellation(t *testing.T) {
	f := newTradeFixture(t)
	trade := f.propose(t)
	f.decide(t, f.parent1, trade.ID, models.SideInitiator, false)
	svc := NewChatService(NewMemoryChatStore(), f.trades, f.profiles)

	_, err := svc.Send(context.Background(), f.kid1, trade.ID, &models.SendMessageRequest{Body: "hey"})
	require.ErrorIs(t, err, ErrChatDisabled)
}

func TestChatOpensOnceApproved(t *testing.T) {
	f, svc, tradeID := approvedTradeChatFixture(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, f.kid1, tradeID, &models.SendMessageRequest{Body: "When can you meet?"})
	require.NoError(t, err)
	require.Equal(t, f.kid1, msg.SenderID)

	_, err = svc.Send(ctx, f.kid2, tradeID, &models.SendMessageRequest{Body: "Saturday works"})
	require.NoError(t, err)

	history, err := svc.Messages(ctx, f.kid1, tradeID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "When can you meet?", history[0].Body)
}

func TestChatSendRequiresParticipant(t *testing.T) {
	f, svc, tradeID := approvedTradeChatFixture(t)

	// A linked parent can read but not write.
	_, err := svc.Send(context.Background(), f.parent1, tradeID, &models.SendMessageRequest{Body: "hi"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestChatParentCanRead(t *testing.T) {
	f, svc, tradeID := approvedTradeChatFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, f.kid1, tradeID, &models.SendMessageRequest{Body: "hello"})
	require.NoError(t, err)

	history, err := svc.Messages(ctx, f.parent2, tradeID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = svc.Messages(ctx, "stranger", tradeID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestChatStreamDeliversNewMessages(t *testing.T) {
	f, svc, tradeID := approvedTradeChatFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Stream(ctx, f.kid2, tradeID)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), f.kid1, tradeID, &models.SendMessageRequest{Body: "ping"})
	require.NoError(t, err)

	select {
	case msg := <-ch:
		require.Equal(t, "ping", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered on the stream")
	}

	// Cancelling the subscription closes the channel.
	cancel()
	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel not closed after cancel")
	}
}

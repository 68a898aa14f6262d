package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

// MongoChatStore persists trade chat and serves live updates off a change
// stream, so every server instance sees messages written by any other.
type MongoChatStore struct {
	col *mongo.Collection
}

func NewMongoChatStore(ctx context.Context, db *mongo.Database) *MongoChatStore {
	col := db.Collection("chat_messages")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trade_id", Value: 1}, {Key: "created_at", Value: 1}},
	})

	return &MongoChatStore{col: col}
}

func (s *MongoChatStore) Insert(ctx context.Context, m *models.ChatMessage) error {
	_, err := s.col.InsertOne(ctx, m)
	return err
}

func (s *MongoChatStore) ListByTrade(ctx context.Context, tradeID string) ([]*models.ChatMessage, error) {
	cur, err := s.col.Find(ctx, bson.M{"trade_id": tradeID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.ChatMessage, 0)
	for cur.Next(ctx) {
		var m models.ChatMessage
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

// Subscribe watches inserts for one trade via a change stream. The stream
// and the channel shut down when ctx is cancelled.
func (s *MongoChatStore) Subscribe(ctx context.Context, tradeID string) (<-chan models.ChatMessage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":         "insert",
			"fullDocument.trade_id": tradeID,
		}}},
	}
	stream, err := s.col.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	ch := make(chan models.ChatMessage, 16)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				FullDocument models.ChatMessage `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				log.Printf("[MongoChatStore] Failed to decode change event for trade %s: %v", tradeID, err)
				continue
			}
			select {
			case ch <- event.FullDocument:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[MongoChatStore] Change stream for trade %s ended: %v", tradeID, err)
		}
	}()

	return ch, nil
}

package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

type MongoNotificationStore struct {
	col *mongo.Collection
}

func NewMongoNotificationStore(ctx context.Context, db *mongo.Database) *MongoNotificationStore {
	col := db.Collection("notifications")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})

	return &MongoNotificationStore{col: col}
}

func (s *MongoNotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.col.InsertOne(ctx, n)
	return err
}

func (s *MongoNotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Notification, 0)
	for cur.Next(ctx) {
		var n models.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, cur.Err()
}

func (s *MongoNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *MongoNotificationStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

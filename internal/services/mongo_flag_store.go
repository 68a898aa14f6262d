package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

type MongoFlagStore struct {
	col *mongo.Collection
}

func NewMongoFlagStore(ctx context.Context, db *mongo.Database) *MongoFlagStore {
	col := db.Collection("user_flags")

	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoFlagStore{col: col}
}

// AddStrike increments the strike counter for the user and returns the updated record.
func (s *MongoFlagStore) AddStrike(ctx context.Context, userID string) (*models.UserFlag, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"strikes": 1},
		"$set": bson.M{"last_strike_at": now, "updated_at": now},
		"$setOnInsert": bson.M{
			"user_id": userID,
		},
	}

	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var out models.UserFlag
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

// MongoFeedbackStore enforces one review per (trade, reviewer) with a
// unique compound index.
type MongoFeedbackStore struct {
	col *mongo.Collection
}

func NewMongoFeedbackStore(ctx context.Context, db *mongo.Database) *MongoFeedbackStore {
	col := db.Collection("feedback")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trade_id", Value: 1}, {Key: "reviewer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "reviewee_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})

	return &MongoFeedbackStore{col: col}
}

func (s *MongoFeedbackStore) Insert(ctx context.Context, f *models.Feedback) error {
	_, err := s.col.InsertOne(ctx, f)
	if mongo.IsDuplicateKeyError(err) {
		return ErrFeedbackExists
	}
	return err
}

func (s *MongoFeedbackStore) ListByTrade(ctx context.Context, tradeID string) ([]*models.Feedback, error) {
	return s.findFeedback(ctx, bson.M{"trade_id": tradeID}, nil)
}

func (s *MongoFeedbackStore) ListForUser(ctx context.Context, revieweeID string) ([]*models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findFeedback(ctx, bson.M{"reviewee_id": revieweeID}, opts)
}

func (s *MongoFeedbackStore) findFeedback(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Feedback, error) {
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Feedback, 0)
	for cur.Next(ctx) {
		var f models.Feedback
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, cur.Err()
}

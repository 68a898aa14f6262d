package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

// MongoRewardStore keeps the append-only ledger in two collections plus a
// tiny per-user version document that serializes redemptions across
// processes.
type MongoRewardStore struct {
	credits     *mongo.Collection
	redemptions *mongo.Collection
	versions    *mongo.Collection
}

func NewMongoRewardStore(ctx context.Context, db *mongo.Database) *MongoRewardStore {
	s := &MongoRewardStore{
		credits:     db.Collection("rewards"),
		redemptions: db.Collection("reward_redemptions"),
		versions:    db.Collection("reward_versions"),
	}

	// Best-effort indexes.
	_, _ = s.credits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	_, _ = s.redemptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})

	return s
}

func (s *MongoRewardStore) AppendCredit(ctx context.Context, r *models.Reward) error {
	_, err := s.credits.InsertOne(ctx, r)
	return err
}

func (s *MongoRewardStore) AppendRedemption(ctx context.Context, r *models.RewardRedemption) error {
	_, err := s.redemptions.InsertOne(ctx, r)
	return err
}

func (s *MongoRewardStore) Credits(ctx context.Context, userID string) ([]models.Reward, error) {
	cur, err := s.credits.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Reward, 0)
	for cur.Next(ctx) {
		var r models.Reward
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, cur.Err()
}

func (s *MongoRewardStore) Redemptions(ctx context.Context, userID string) ([]models.RewardRedemption, error) {
	cur, err := s.redemptions.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.RewardRedemption, 0)
	for cur.Next(ctx) {
		var r models.RewardRedemption
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, cur.Err()
}

type rewardVersionDoc struct {
	UserID  string `bson:"_id"`
	Version int64  `bson:"version"`
}

func (s *MongoRewardStore) Version(ctx context.Context, userID string) (int64, error) {
	// Upsert-on-read so BumpVersion always has a document to match.
	res := s.versions.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{"version": int64(0)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc rewardVersionDoc
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Version, nil
}

func (s *MongoRewardStore) BumpVersion(ctx context.Context, userID string, expected int64) error {
	res, err := s.versions.UpdateOne(ctx,
		bson.M{"_id": userID, "version": expected},
		bson.M{"$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errStaleWrite
	}
	return nil
}

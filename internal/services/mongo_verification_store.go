package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

type MongoVerificationStore struct {
	col *mongo.Collection
}

func NewMongoVerificationStore(ctx context.Context, db *mongo.Database) *MongoVerificationStore {
	col := db.Collection("verification_requests")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})

	return &MongoVerificationStore{col: col}
}

func (s *MongoVerificationStore) Insert(ctx context.Context, v *models.VerificationRequest) error {
	_, err := s.col.InsertOne(ctx, v)
	return err
}

func (s *MongoVerificationStore) GetByID(ctx context.Context, id string) (*models.VerificationRequest, error) {
	var v models.VerificationRequest
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *MongoVerificationStore) ListPending(ctx context.Context) ([]*models.VerificationRequest, error) {
	cur, err := s.col.Find(ctx, bson.M{"status": models.VerificationPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.VerificationRequest, 0)
	for cur.Next(ctx) {
		var v models.VerificationRequest
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func (s *MongoVerificationStore) Resolve(ctx context.Context, id string, status models.VerificationStatus, reviewerID string, at time.Time) (*models.VerificationRequest, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.VerificationPending},
		bson.M{"$set": bson.M{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var v models.VerificationRequest
	if err := res.Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := s.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, errStaleWrite
		}
		return nil, err
	}
	return &v, nil
}

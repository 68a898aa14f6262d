package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

// MongoTradeStore persists trades. Guarded updates ride on FindOneAndUpdate
// with the guard folded into the filter, so a transition either wins the
// document atomically or matches nothing.
type MongoTradeStore struct {
	col *mongo.Collection
}

func NewMongoTradeStore(ctx context.Context, db *mongo.Database) *MongoTradeStore {
	col := db.Collection("trades")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "initiator_kid_id", Value: 1}}},
		{Keys: bson.D{{Key: "responder_kid_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})

	return &MongoTradeStore{col: col}
}

func (s *MongoTradeStore) Insert(ctx context.Context, t *models.Trade) error {
	_, err := s.col.InsertOne(ctx, t)
	return err
}

func (s *MongoTradeStore) GetByID(ctx context.Context, id string) (*models.Trade, error) {
	var t models.Trade
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoTradeStore) UpdateGuarded(ctx context.Context, id string, cond TradeCondition, patch TradePatch) (*models.Trade, error) {
	filter := bson.M{"_id": id}
	if len(cond.Status) > 0 {
		filter["status"] = bson.M{"$in": cond.Status}
	}
	switch cond.SideUndecided {
	case models.SideInitiator:
		filter["initiator_parent_approved"] = bson.M{"$exists": false}
	case models.SideResponder:
		filter["responder_parent_approved"] = bson.M{"$exists": false}
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.InitiatorParentApproved != nil {
		set["initiator_parent_approved"] = *patch.InitiatorParentApproved
	}
	if patch.ResponderParentApproved != nil {
		set["responder_parent_approved"] = *patch.ResponderParentApproved
	}
	if patch.ScheduledAt != nil {
		set["scheduled_at"] = *patch.ScheduledAt
	}
	if patch.MeetupLocation != nil {
		set["meetup_location"] = *patch.MeetupLocation
	}
	if patch.MeetupLat != nil {
		set["meetup_lat"] = *patch.MeetupLat
	}
	if patch.MeetupLng != nil {
		set["meetup_lng"] = *patch.MeetupLng
	}
	if patch.CompletedAt != nil {
		set["completed_at"] = *patch.CompletedAt
	}

	res := s.col.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var t models.Trade
	if err := res.Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish a missing trade from a lost guard.
			if _, getErr := s.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, errStaleWrite
		}
		return nil, err
	}
	return &t, nil
}

func (s *MongoTradeStore) CountOpenBetween(ctx context.Context, listingA, listingB string) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{
		"status": bson.M{"$nin": []models.TradeStatus{models.TradeCompleted, models.TradeCancelled}},
		"$or": []bson.M{
			{"initiator_listing_id": listingA, "responder_listing_id": listingB},
			{"initiator_listing_id": listingB, "responder_listing_id": listingA},
		},
	})
	return int(n), err
}

func (s *MongoTradeStore) ListByKid(ctx context.Context, kidID string) ([]*models.Trade, error) {
	return s.findTrades(ctx, bson.M{"$or": []bson.M{
		{"initiator_kid_id": kidID},
		{"responder_kid_id": kidID},
	}})
}

func (s *MongoTradeStore) ListProposedForKids(ctx context.Context, kidIDs []string) ([]*models.Trade, error) {
	return s.findTrades(ctx, bson.M{
		"status": models.TradeProposed,
		"$or": []bson.M{
			{"initiator_kid_id": bson.M{"$in": kidIDs}},
			{"responder_kid_id": bson.M{"$in": kidIDs}},
		},
	})
}

func (s *MongoTradeStore) findTrades(ctx context.Context, filter bson.M) ([]*models.Trade, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Trade, 0)
	for cur.Next(ctx) {
		var t models.Trade
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

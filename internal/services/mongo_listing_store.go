package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

type MongoListingStore struct {
	col *mongo.Collection
}

func NewMongoListingStore(ctx context.Context, db *mongo.Database) *MongoListingStore {
	col := db.Collection("listings")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kid_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "photo_urls", Value: 1}}},
	})

	return &MongoListingStore{col: col}
}

func (s *MongoListingStore) Insert(ctx context.Context, l *models.Listing) error {
	_, err := s.col.InsertOne(ctx, l)
	return err
}

func (s *MongoListingStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MongoListingStore) Update(ctx context.Context, l *models.Listing) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": l.ID}, l)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (s *MongoListingStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.setFlag(ctx, id, "is_active", active)
}

func (s *MongoListingStore) SetModerated(ctx context.Context, id string, moderated bool) error {
	return s.setFlag(ctx, id, "is_moderated", moderated)
}

func (s *MongoListingStore) setFlag(ctx context.Context, id, field string, value bool) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{field: value, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (s *MongoListingStore) List(ctx context.Context, filter models.ListingFilter, limit int) ([]*models.Listing, error) {
	q := bson.M{"is_active": true, "is_moderated": true}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.ExcludeKidID != "" {
		q["kid_id"] = bson.M{"$ne": filter.ExcludeKidID}
	}
	if filter.Query != "" {
		re := primitive.Regex{Pattern: regexQuoteMeta(filter.Query), Options: "i"}
		q["$or"] = []bson.M{
			{"title": re},
			{"description": re},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findListings(ctx, q, opts)
}

func (s *MongoListingStore) ListByKid(ctx context.Context, kidID string) ([]*models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findListings(ctx, bson.M{"kid_id": kidID}, opts)
}

func (s *MongoListingStore) CountByKid(ctx context.Context, kidID string) (int, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"kid_id": kidID})
	return int(n), err
}

func (s *MongoListingStore) ApprovePendingPhoto(ctx context.Context, pendingPath, approvedURL string) (string, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"photo_urls": pendingPath},
		bson.M{
			"$set": bson.M{"photo_urls.$": approvedURL, "updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var l models.Listing
	if err := res.Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", err
	}
	return l.ID, nil
}

func (s *MongoListingStore) RejectPendingPhoto(ctx context.Context, pendingPath string) (string, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"photo_urls": pendingPath},
		bson.M{
			"$pull": bson.M{"photo_urls": pendingPath},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var l models.Listing
	if err := res.Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", err
	}
	return l.ID, nil
}

func (s *MongoListingStore) DeleteByKid(ctx context.Context, kidID string) ([]string, error) {
	listings, err := s.ListByKid(ctx, kidID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0)
	for _, l := range listings {
		urls = append(urls, l.PhotoURLs...)
	}
	if _, err := s.col.DeleteMany(ctx, bson.M{"kid_id": kidID}); err != nil {
		return nil, err
	}
	return urls, nil
}

func (s *MongoListingStore) findListings(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Listing, error) {
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Listing, 0)
	for cur.Next(ctx) {
		var l models.Listing
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, cur.Err()
}

// regexQuoteMeta escapes regex metacharacters so user queries match
// literally.
func regexQuoteMeta(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(meta); j++ {
			if s[i] == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

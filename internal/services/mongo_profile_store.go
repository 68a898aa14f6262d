package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kidswap/backend/internal/models"
)

// MongoProfileStore keeps profiles, role records and parent links across
// four collections.
type MongoProfileStore struct {
	profiles *mongo.Collection
	kids     *mongo.Collection
	parents  *mongo.Collection
	links    *mongo.Collection
}

func NewMongoProfileStore(ctx context.Context, db *mongo.Database) *MongoProfileStore {
	s := &MongoProfileStore{
		profiles: db.Collection("profiles"),
		kids:     db.Collection("kids"),
		parents:  db.Collection("parents"),
		links:    db.Collection("parent_links"),
	}

	// Best-effort indexes.
	_, _ = s.profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = s.links.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "kid_id", Value: 1}}},
	})

	return s
}

func (s *MongoProfileStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	doc := *p
	doc.Email = strings.ToLower(doc.Email)
	_, err := s.profiles.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailExists
	}
	return err
}

func (s *MongoProfileStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoProfileStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.profiles.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoProfileStore) UpdateProfilePhoto(ctx context.Context, id, photoURL string) error {
	res, err := s.profiles.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"photo_url": photoURL, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *MongoProfileStore) InsertKid(ctx context.Context, k *models.Kid) error {
	_, err := s.kids.InsertOne(ctx, k)
	return err
}

func (s *MongoProfileStore) GetKid(ctx context.Context, profileID string) (*models.Kid, error) {
	var k models.Kid
	err := s.kids.FindOne(ctx, bson.M{"_id": profileID}).Decode(&k)
	if err == mongo.ErrNoDocuments {
		return nil, ErrKidNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *MongoProfileStore) SetKidParentVerified(ctx context.Context, profileID string, verified bool) error {
	res, err := s.kids.UpdateOne(ctx, bson.M{"_id": profileID}, bson.M{
		"$set": bson.M{"parent_verified": verified, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrKidNotFound
	}
	return nil
}

func (s *MongoProfileStore) SetKidMembership(ctx context.Context, profileID string, tier models.MembershipTier) error {
	res, err := s.kids.UpdateOne(ctx, bson.M{"_id": profileID}, bson.M{
		"$set": bson.M{"membership": tier, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrKidNotFound
	}
	return nil
}

func (s *MongoProfileStore) InsertParent(ctx context.Context, p *models.Parent) error {
	_, err := s.parents.InsertOne(ctx, p)
	return err
}

func (s *MongoProfileStore) GetParent(ctx context.Context, profileID string) (*models.Parent, error) {
	var p models.Parent
	err := s.parents.FindOne(ctx, bson.M{"_id": profileID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoProfileStore) SetParentVerifiedFlags(ctx context.Context, profileID string, phone, email *bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if phone != nil {
		set["phone_verified"] = *phone
	}
	if email != nil {
		set["email_verified"] = *email
	}
	res, err := s.parents.UpdateOne(ctx, bson.M{"_id": profileID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrParentNotFound
	}
	return nil
}

func (s *MongoProfileStore) InsertLink(ctx context.Context, l *models.ParentChildLink) error {
	_, err := s.links.InsertOne(ctx, l)
	return err
}

func (s *MongoProfileStore) LinksForKid(ctx context.Context, kidID string) ([]models.ParentChildLink, error) {
	return s.findLinks(ctx, bson.M{"kid_id": kidID})
}

func (s *MongoProfileStore) LinksForParent(ctx context.Context, parentID string) ([]models.ParentChildLink, error) {
	return s.findLinks(ctx, bson.M{"parent_id": parentID})
}

func (s *MongoProfileStore) MarkLinkVerified(ctx context.Context, parentID, kidID string, at time.Time) error {
	_, err := s.links.UpdateMany(ctx,
		bson.M{"parent_id": parentID, "kid_id": kidID},
		bson.M{"$set": bson.M{"verified_at": at}},
	)
	return err
}

func (s *MongoProfileStore) findLinks(ctx context.Context, filter bson.M) ([]models.ParentChildLink, error) {
	cur, err := s.links.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.ParentChildLink, 0)
	for cur.Next(ctx) {
		var l models.ParentChildLink
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, cur.Err()
}

func (s *MongoProfileStore) DeleteProfileData(ctx context.Context, profileID string) error {
	if _, err := s.links.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"parent_id": profileID},
		{"kid_id": profileID},
	}}); err != nil {
		return err
	}
	if _, err := s.kids.DeleteOne(ctx, bson.M{"_id": profileID}); err != nil {
		return err
	}
	if _, err := s.parents.DeleteOne(ctx, bson.M{"_id": profileID}); err != nil {
		return err
	}
	_, err := s.profiles.DeleteOne(ctx, bson.M{"_id": profileID})
	return err
}

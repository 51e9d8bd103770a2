package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/agriland/marketplace/internal/db"
	"github.com/agriland/marketplace/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository handles persistence for users in MongoDB.
//
// Relation updates use $addToSet and $pull so that concurrent requests for
// the same user never overwrite each other's changes.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: database.Collection(db.UsersCollection)}
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByMobile(ctx context.Context, mobile string) (types.User, error) {
	return r.findOne(ctx, bson.M{"mobileNo": mobile})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return normalizeUser(user), nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.ID = types.NewID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user = normalizeUser(user)

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, userConflict(duplicateKeyIndex(err))
		}
		return types.User{}, err
	}
	return user, nil
}

var duplicateIndexPattern = regexp.MustCompile(`index: (\S+)`)

// duplicateKeyIndex extracts the index name from an E11000 error.
func duplicateKeyIndex(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, writeErr := range we.WriteErrors {
			if m := duplicateIndexPattern.FindStringSubmatch(writeErr.Message); m != nil {
				return m[1]
			}
		}
	}
	if m := duplicateIndexPattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id, companyName string, experience int) (types.User, error) {
	update := bson.M{"$set": bson.M{
		"companyName": companyName,
		"experience":  experience,
		"updatedAt":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user types.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return normalizeUser(user), nil
}

func (r *MongoUserRepository) AddRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.updateOne(ctx, userID, bson.M{
		"$addToSet": bson.M{string(rel): listingID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoUserRepository) RemoveRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.updateOne(ctx, userID, bson.M{
		"$pull": bson.M{string(rel): listingID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

// MoveRelation pulls listingID from one relation and adds it to the other in
// a single update, which MongoDB applies atomically to the document.
func (r *MongoUserRepository) MoveRelation(ctx context.Context, userID string, from, to types.Relation, listingID string) error {
	if !from.Valid() || !to.Valid() || from == to {
		return fmt.Errorf("invalid relation move %q -> %q", from, to)
	}
	return r.updateOne(ctx, userID, bson.M{
		"$pull":     bson.M{string(from): listingID},
		"$addToSet": bson.M{string(to): listingID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoUserRepository) SetPreferredLocations(ctx context.Context, userID string, locations []string) error {
	if locations == nil {
		locations = []string{}
	}
	return r.updateOne(ctx, userID, bson.M{"$set": bson.M{
		"preferredLocations": locations,
		"updatedAt":          time.Now().UTC(),
	}})
}

func (r *MongoUserRepository) RemoveListingReferences(ctx context.Context, listingID string) error {
	filter := bson.M{"$or": bson.A{
		bson.M{string(types.RelationSaved): listingID},
		bson.M{string(types.RelationCart): listingID},
	}}
	update := bson.M{"$pull": bson.M{
		string(types.RelationSaved): listingID,
		string(types.RelationCart):  listingID,
	}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}

func (r *MongoUserRepository) updateOne(ctx context.Context, userID string, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agriland/marketplace/internal/db"
	"github.com/agriland/marketplace/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoListingRepository handles persistence for land listings in MongoDB.
type MongoListingRepository struct {
	coll *mongo.Collection
}

func NewMongoListingRepository(database *mongo.Database) *MongoListingRepository {
	return &MongoListingRepository{coll: database.Collection(db.ListingsCollection)}
}

// insertionOrder sorts by _id; ids start with their creation timestamp.
var insertionOrder = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func (r *MongoListingRepository) List(ctx context.Context) ([]types.LandListing, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoListingRepository) ListBySeller(ctx context.Context, sellerID string) ([]types.LandListing, error) {
	return r.find(ctx, bson.M{"sellerId": sellerID})
}

func (r *MongoListingRepository) GetMany(ctx context.Context, ids []string) ([]types.LandListing, error) {
	if len(ids) == 0 {
		return []types.LandListing{}, nil
	}
	found, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func (r *MongoListingRepository) find(ctx context.Context, filter bson.M) ([]types.LandListing, error) {
	cursor, err := r.coll.Find(ctx, filter, insertionOrder)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	listings := make([]types.LandListing, 0)
	for cursor.Next(ctx) {
		var listing types.LandListing
		if err := cursor.Decode(&listing); err != nil {
			return nil, err
		}
		listings = append(listings, normalizeListing(listing))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *MongoListingRepository) Get(ctx context.Context, id string) (types.LandListing, error) {
	var listing types.LandListing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.LandListing{}, ErrNotFound
		}
		return types.LandListing{}, err
	}
	return normalizeListing(listing), nil
}

func (r *MongoListingRepository) Create(ctx context.Context, listing types.LandListing) (types.LandListing, error) {
	now := time.Now().UTC()
	listing.ID = types.NewID()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing = normalizeListing(listing)

	if _, err := r.coll.InsertOne(ctx, listing); err != nil {
		return types.LandListing{}, err
	}
	return listing, nil
}

func (r *MongoListingRepository) SetSold(ctx context.Context, id string, sold bool) (types.LandListing, error) {
	update := bson.M{"$set": bson.M{"sold": sold, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var listing types.LandListing
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.LandListing{}, ErrNotFound
		}
		return types.LandListing{}, err
	}
	return normalizeListing(listing), nil
}

func (r *MongoListingRepository) IncrementCounter(ctx context.Context, id string, counter types.ListingCounter) error {
	if counter != types.CounterViews && counter != types.CounterInquiries {
		return fmt.Errorf("unknown counter %q", counter)
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{string(counter): 1}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoListingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

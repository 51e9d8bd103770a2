package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/agriland/marketplace/types"
)

// RelationService manages a user's saved listings, cart and preferences.
//
// Each mutation is a single set operation in the store, so concurrent
// requests for the same user cannot lose each other's updates.
type RelationService struct {
	users    UserRepository
	listings ListingRepository
}

func NewRelationService(users UserRepository, listings ListingRepository) *RelationService {
	return &RelationService{users: users, listings: listings}
}

func (s *RelationService) Save(ctx context.Context, userID, listingID string) error {
	if err := validListingID(listingID); err != nil {
		return err
	}
	return s.users.AddRelation(ctx, userID, types.RelationSaved, listingID)
}

func (s *RelationService) Unsave(ctx context.Context, userID, listingID string) error {
	if err := validListingID(listingID); err != nil {
		return err
	}
	return s.users.RemoveRelation(ctx, userID, types.RelationSaved, listingID)
}

// AddToCart adds an existing listing to the cart.
func (s *RelationService) AddToCart(ctx context.Context, userID, listingID string) error {
	if err := validListingID(listingID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return err
	}
	return s.users.AddRelation(ctx, userID, types.RelationCart, listingID)
}

func (s *RelationService) RemoveFromCart(ctx context.Context, userID, listingID string) error {
	if err := validListingID(listingID); err != nil {
		return err
	}
	return s.users.RemoveRelation(ctx, userID, types.RelationCart, listingID)
}

// MoveToCart removes the listing from saved and adds it to the cart.
func (s *RelationService) MoveToCart(ctx context.Context, userID, listingID string) error {
	if err := validListingID(listingID); err != nil {
		return err
	}
	return s.users.MoveRelation(ctx, userID, types.RelationSaved, types.RelationCart, listingID)
}

// SetPreferredLocations replaces the user's preferred locations. Blank
// entries are dropped.
func (s *RelationService) SetPreferredLocations(ctx context.Context, userID string, locations []string) error {
	cleaned := make([]string, 0, len(locations))
	for _, loc := range locations {
		if loc = strings.TrimSpace(loc); loc != "" {
			cleaned = append(cleaned, loc)
		}
	}
	return s.users.SetPreferredLocations(ctx, userID, cleaned)
}

// SavedListings resolves the user's saved set to listings, in saved order.
func (s *RelationService) SavedListings(ctx context.Context, userID string) ([]types.LandListing, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.listings.GetMany(ctx, user.SavedListings)
}

// CartListings resolves the user's cart to listings, in cart order.
func (s *RelationService) CartListings(ctx context.Context, userID string) ([]types.LandListing, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.listings.GetMany(ctx, user.Cart)
}

func validListingID(id string) error {
	if !types.ValidID(id) {
		return fmt.Errorf("%w: malformed listing id", ErrInvalidArgument)
	}
	return nil
}

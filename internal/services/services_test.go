package services

import (
	"context"
	"testing"

	"github.com/agriland/marketplace/internal/store"
	"github.com/agriland/marketplace/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fixture struct {
	users     *store.MemoryUserRepository
	listings  *store.MemoryListingRepository
	userSvc   *UserService
	sessions  *SessionIssuer
	listing   *ListingService
	relations *RelationService
}

func newFixture(t *testing.T, opts ...ListingOption) fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	users := mem.Users()
	listings := mem.Listings()
	return fixture{
		users:     users,
		listings:  listings,
		userSvc:   NewUserService(users, bcrypt.MinCost),
		sessions:  NewSessionIssuer(users, testSecret),
		listing:   NewListingService(listings, users, nil, opts...),
		relations: NewRelationService(users, listings),
	}
}

func (f fixture) register(t *testing.T, name string, roles ...string) types.User {
	t.Helper()
	user, err := f.userSvc.Register(context.Background(), Registration{
		Username: name,
		Email:    name + "@example.com",
		MobileNo: "98" + name,
		Password: name + "-pass",
		Roles:    roles,
	})
	require.NoError(t, err)
	return user
}

func (f fixture) createListing(t *testing.T, seller types.User, title string) types.LandListing {
	t.Helper()
	listing, err := f.listing.Create(context.Background(), seller.ID, types.LandListing{
		Title:       title,
		Location:    "Nashik",
		Price:       100000,
		Size:        2,
		SellerName:  seller.Username,
		SellerPhone: seller.MobileNo,
		SellerEmail: seller.Email,
	})
	require.NoError(t, err)
	return listing
}

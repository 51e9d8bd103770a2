package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/agriland/marketplace/types"
)

// MemoryStore keeps users and listings in process memory. It backs the
// "memory" database backend used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]types.User
	listings map[string]types.LandListing
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]types.User),
		listings: make(map[string]types.LandListing),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{s: s}
}

// Listings returns the listing repository view of the store.
func (s *MemoryStore) Listings() *MemoryListingRepository {
	return &MemoryListingRepository{s: s}
}

func cloneUser(user types.User) types.User {
	user.Roles = slices.Clone(user.Roles)
	user.SavedListings = slices.Clone(user.SavedListings)
	user.Cart = slices.Clone(user.Cart)
	user.PreferredLocations = slices.Clone(user.PreferredLocations)
	return normalizeUser(user)
}

func cloneListing(listing types.LandListing) types.LandListing {
	listing.Images = slices.Clone(listing.Images)
	listing.Documents = slices.Clone(listing.Documents)
	return normalizeListing(listing)
}

// MemoryUserRepository is the in-memory user repository.
type MemoryUserRepository struct {
	s *MemoryStore
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.find(ctx, func(u types.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.find(ctx, func(u types.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByMobile(ctx context.Context, mobile string) (types.User, error) {
	return r.find(ctx, func(u types.User) bool { return u.MobileNo == mobile })
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.find(ctx, func(u types.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) find(ctx context.Context, match func(types.User) bool) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		switch {
		case existing.Email == user.Email:
			return types.User{}, userConflict("email")
		case existing.MobileNo == user.MobileNo:
			return types.User{}, userConflict("mobileNo")
		case existing.Username == user.Username:
			return types.User{}, userConflict("username")
		}
	}

	now := time.Now().UTC()
	user.ID = types.NewID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user = cloneUser(user)
	r.s.users[user.ID] = user
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id, companyName string, experience int) (types.User, error) {
	var updated types.User
	err := r.update(ctx, id, func(user *types.User) error {
		user.CompanyName = companyName
		user.Experience = experience
		updated = *user
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return cloneUser(updated), nil
}

func (r *MemoryUserRepository) AddRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.update(ctx, userID, func(user *types.User) error {
		ids := relationOf(user, rel)
		if !slices.Contains(*ids, listingID) {
			*ids = append(*ids, listingID)
		}
		return nil
	})
}

func (r *MemoryUserRepository) RemoveRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.update(ctx, userID, func(user *types.User) error {
		ids := relationOf(user, rel)
		*ids = slices.DeleteFunc(*ids, func(id string) bool { return id == listingID })
		return nil
	})
}

func (r *MemoryUserRepository) MoveRelation(ctx context.Context, userID string, from, to types.Relation, listingID string) error {
	if !from.Valid() || !to.Valid() || from == to {
		return fmt.Errorf("invalid relation move %q -> %q", from, to)
	}
	return r.update(ctx, userID, func(user *types.User) error {
		src := relationOf(user, from)
		*src = slices.DeleteFunc(*src, func(id string) bool { return id == listingID })
		dst := relationOf(user, to)
		if !slices.Contains(*dst, listingID) {
			*dst = append(*dst, listingID)
		}
		return nil
	})
}

func (r *MemoryUserRepository) SetPreferredLocations(ctx context.Context, userID string, locations []string) error {
	return r.update(ctx, userID, func(user *types.User) error {
		user.PreferredLocations = slices.Clone(locations)
		return nil
	})
}

func (r *MemoryUserRepository) RemoveListingReferences(ctx context.Context, listingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, user := range r.s.users {
		drop := func(v string) bool { return v == listingID }
		user.SavedListings = slices.DeleteFunc(user.SavedListings, drop)
		user.Cart = slices.DeleteFunc(user.Cart, drop)
		r.s.users[id] = user
	}
	return nil
}

// update applies fn to the stored user under the write lock.
func (r *MemoryUserRepository) update(ctx context.Context, id string, fn func(*types.User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return ErrNotFound
	}
	user = cloneUser(user)
	user.UpdatedAt = time.Now().UTC()
	if err := fn(&user); err != nil {
		return err
	}
	r.s.users[id] = user
	return nil
}

func relationOf(user *types.User, rel types.Relation) *[]string {
	if rel == types.RelationCart {
		return &user.Cart
	}
	return &user.SavedListings
}

// MemoryListingRepository is the in-memory listing repository.
type MemoryListingRepository struct {
	s *MemoryStore
}

func (r *MemoryListingRepository) List(ctx context.Context) ([]types.LandListing, error) {
	return r.filter(ctx, func(types.LandListing) bool { return true })
}

func (r *MemoryListingRepository) ListBySeller(ctx context.Context, sellerID string) ([]types.LandListing, error) {
	return r.filter(ctx, func(l types.LandListing) bool { return l.SellerID == sellerID })
}

func (r *MemoryListingRepository) GetMany(ctx context.Context, ids []string) ([]types.LandListing, error) {
	if len(ids) == 0 {
		return []types.LandListing{}, nil
	}
	found, err := r.filter(ctx, func(l types.LandListing) bool { return slices.Contains(ids, l.ID) })
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func (r *MemoryListingRepository) filter(ctx context.Context, keep func(types.LandListing) bool) ([]types.LandListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	listings := make([]types.LandListing, 0)
	for _, id := range r.s.order {
		listing := r.s.listings[id]
		if keep(listing) {
			listings = append(listings, cloneListing(listing))
		}
	}
	return listings, nil
}

func (r *MemoryListingRepository) Get(ctx context.Context, id string) (types.LandListing, error) {
	if err := ctx.Err(); err != nil {
		return types.LandListing{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return types.LandListing{}, ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r *MemoryListingRepository) Create(ctx context.Context, listing types.LandListing) (types.LandListing, error) {
	if err := ctx.Err(); err != nil {
		return types.LandListing{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	listing.ID = types.NewID()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing = cloneListing(listing)
	r.s.listings[listing.ID] = listing
	r.s.order = append(r.s.order, listing.ID)
	return cloneListing(listing), nil
}

func (r *MemoryListingRepository) SetSold(ctx context.Context, id string, sold bool) (types.LandListing, error) {
	var updated types.LandListing
	err := r.update(ctx, id, func(listing *types.LandListing) {
		listing.Sold = sold
		listing.UpdatedAt = time.Now().UTC()
		updated = *listing
	})
	if err != nil {
		return types.LandListing{}, err
	}
	return cloneListing(updated), nil
}

func (r *MemoryListingRepository) IncrementCounter(ctx context.Context, id string, counter types.ListingCounter) error {
	switch counter {
	case types.CounterViews:
		return r.update(ctx, id, func(listing *types.LandListing) { listing.Views++ })
	case types.CounterInquiries:
		return r.update(ctx, id, func(listing *types.LandListing) { listing.Inquiries++ })
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}
}

func (r *MemoryListingRepository) update(ctx context.Context, id string, fn func(*types.LandListing)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return ErrNotFound
	}
	fn(&listing)
	r.s.listings[id] = listing
	return nil
}

func (r *MemoryListingRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.listings, id)
	r.s.order = slices.DeleteFunc(r.s.order, func(v string) bool { return v == id })
	return nil
}

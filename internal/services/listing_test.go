package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/agriland/marketplace/internal/mq"
	"github.com/agriland/marketplace/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (b *fakeBlobs) DeleteRef(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, ref)
	return b.err
}

type published struct {
	channel string
	event   ListingEvent
	attrs   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var event ListingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	p.events = append(p.events, published{channel: channel, event: event, attrs: attrs})
	return "msg-1", p.err
}

func TestListingService_CreateRequiresExistingSeller(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.listing.Create(ctx, types.NewID(), types.LandListing{Title: "Orphan"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.listing.Create(ctx, "bogus", types.LandListing{Title: "Orphan"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListingService_CreateResetsCounters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seller := f.register(t, "asha", "seller")

	listing, err := f.listing.Create(context.Background(), seller.ID, types.LandListing{
		Title:     "  River plot ",
		SellerID:  types.NewID(),
		Sold:      true,
		Views:     50,
		Inquiries: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, "River plot", listing.Title)
	assert.Equal(t, seller.ID, listing.SellerID)
	assert.False(t, listing.Sold)
	assert.Zero(t, listing.Views)
	assert.Zero(t, listing.Inquiries)
}

func TestListingService_ContactSnapshotIsNotRederived(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seller := f.register(t, "asha", "seller")
	ctx := context.Background()

	listing, err := f.listing.Create(ctx, seller.ID, types.LandListing{
		Title:       "Hill plot",
		SellerName:  "Agent Rao",
		SellerPhone: "1111111111",
		SellerEmail: "agent@example.com",
	})
	require.NoError(t, err)

	_, err = f.userSvc.UpdateProfile(ctx, seller.ID, "New Company", 3)
	require.NoError(t, err)

	got, err := f.listing.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agent Rao", got.SellerName)
	assert.Equal(t, "1111111111", got.SellerPhone)
	assert.Equal(t, "agent@example.com", got.SellerEmail)
}

func TestListingService_ListAllAndBySeller(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.register(t, "asha", "seller")
	b := f.register(t, "bala", "seller")
	ctx := context.Background()

	first := f.createListing(t, a, "A1")
	second := f.createListing(t, b, "B1")
	third := f.createListing(t, a, "A2")

	all, err := f.listing.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := f.listing.ListBySeller(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, l := range mine {
		assert.Equal(t, a.ID, l.SellerID)
	}

	none, err := f.listing.ListBySeller(ctx, types.NewID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListingService_GetByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.listing.GetByID(ctx, "123")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.listing.GetByID(ctx, types.NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingService_DeleteOwnership(t *testing.T) {
	t.Parallel()
	blobs := &fakeBlobs{}
	events := &fakePublisher{}
	f := newFixture(t, WithBlobRemover(blobs), WithEventPublisher(events, "listings"))
	owner := f.register(t, "asha", "seller")
	other := f.register(t, "bala", "seller")
	buyer := f.register(t, "chitra", "buyer")
	ctx := context.Background()

	listing, err := f.listing.Create(ctx, owner.ID, types.LandListing{
		Title:     "Delta plot",
		Images:    []string{"/uploads/img-1.jpg"},
		Documents: []string{"/uploads/deed.pdf"},
	})
	require.NoError(t, err)
	require.NoError(t, f.relations.Save(ctx, buyer.ID, listing.ID))
	require.NoError(t, f.relations.AddToCart(ctx, buyer.ID, listing.ID))

	err = f.listing.Delete(ctx, types.NewID(), owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.listing.Delete(ctx, listing.ID, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.listing.GetByID(ctx, listing.ID)
	require.NoError(t, err)

	require.NoError(t, f.listing.Delete(ctx, listing.ID, owner.ID))

	_, err = f.listing.GetByID(ctx, listing.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.userSvc.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.SavedListings, listing.ID)
	assert.NotContains(t, got.Cart, listing.ID)

	assert.Equal(t, []string{"/uploads/img-1.jpg", "/uploads/deed.pdf"}, blobs.deleted)

	require.Len(t, events.events, 2)
	assert.Equal(t, EventListingCreated, events.events[0].event.Type)
	assert.Equal(t, EventListingDeleted, events.events[1].event.Type)
	assert.Equal(t, "listings", events.events[1].channel)
	assert.Equal(t, listing.ID, events.events[1].event.ListingID)
	assert.Equal(t, EventListingDeleted, events.events[1].attrs["type"])
	for _, evt := range events.events {
		assert.Equal(t, listing.ID, evt.attrs[mq.OrderingKeyAttribute])
	}
}

func TestListingService_DeleteToleratesCleanupFailures(t *testing.T) {
	t.Parallel()
	blobs := &fakeBlobs{err: errors.New("storage down")}
	events := &fakePublisher{err: errors.New("broker down")}
	f := newFixture(t, WithBlobRemover(blobs), WithEventPublisher(events, "listings"))
	owner := f.register(t, "asha", "seller")
	ctx := context.Background()

	listing, err := f.listing.Create(ctx, owner.ID, types.LandListing{Images: []string{"/uploads/a.jpg"}})
	require.NoError(t, err)

	require.NoError(t, f.listing.Delete(ctx, listing.ID, owner.ID))
	assert.Len(t, blobs.deleted, 1)
}

func TestListingService_MarkSold(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := f.register(t, "asha", "seller")
	other := f.register(t, "bala", "seller")
	listing := f.createListing(t, owner, "Sold plot")
	ctx := context.Background()

	_, err := f.listing.MarkSold(ctx, listing.ID, other.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	sold, err := f.listing.MarkSold(ctx, listing.ID, owner.ID, true)
	require.NoError(t, err)
	assert.True(t, sold.Sold)
	assert.Equal(t, owner.ID, sold.SellerID)
}

func TestListingService_ComputeSellerStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seller := f.register(t, "asha", "seller")
	ctx := context.Background()

	empty, err := f.listing.ComputeSellerStats(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SellerStats{}, empty)

	first := f.createListing(t, seller, "One")
	second := f.createListing(t, seller, "Two")
	f.createListing(t, seller, "Three")

	_, err = f.listing.View(ctx, first.ID)
	require.NoError(t, err)
	viewed, err := f.listing.View(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewed.Views)

	_, err = f.listing.View(ctx, second.ID)
	require.NoError(t, err)
	require.NoError(t, f.listing.RecordInquiry(ctx, second.ID))
	_, err = f.listing.MarkSold(ctx, second.ID, seller.ID, true)
	require.NoError(t, err)

	stats, err := f.listing.ComputeSellerStats(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SellerStats{
		TotalListings:  3,
		ListingsSold:   1,
		ActiveListings: 2,
		TotalViews:     3,
		Inquiries:      1,
	}, stats)
}

func TestListingService_CountersOnMissingListing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.listing.View(ctx, types.NewID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.listing.RecordInquiry(ctx, types.NewID()), ErrNotFound)
	assert.ErrorIs(t, f.listing.RecordInquiry(ctx, "x"), ErrInvalidArgument)
}

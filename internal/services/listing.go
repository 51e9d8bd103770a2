package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agriland/marketplace/internal/mq"
	"github.com/agriland/marketplace/internal/store"
	"github.com/agriland/marketplace/types"
	"go.uber.org/zap"
)

// Listing event types published when a listing changes.
const (
	EventListingCreated = "listing.created"
	EventListingDeleted = "listing.deleted"
)

// ListingRepository defines persistence operations for land listings.
type ListingRepository interface {
	List(ctx context.Context) ([]types.LandListing, error)
	ListBySeller(ctx context.Context, sellerID string) ([]types.LandListing, error)
	GetMany(ctx context.Context, ids []string) ([]types.LandListing, error)
	Get(ctx context.Context, id string) (types.LandListing, error)
	Create(ctx context.Context, listing types.LandListing) (types.LandListing, error)
	SetSold(ctx context.Context, id string, sold bool) (types.LandListing, error)
	IncrementCounter(ctx context.Context, id string, counter types.ListingCounter) error
	Delete(ctx context.Context, id string) error
}

// BlobRemover deletes uploaded blobs by reference.
type BlobRemover interface {
	DeleteRef(ctx context.Context, ref string) error
}

// EventPublisher sends an event payload to a channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ListingEvent is the payload published for listing lifecycle changes.
type ListingEvent struct {
	Type       string    `json:"type"`
	ListingID  string    `json:"listingId"`
	SellerID   string    `json:"sellerId"`
	Title      string    `json:"landTitle,omitempty"`
	Location   string    `json:"location,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ListingService encapsulates listing use-cases.
type ListingService struct {
	listings ListingRepository
	users    UserRepository
	blobs    BlobRemover
	events   EventPublisher
	topic    string
	logger   *zap.Logger
}

// ListingOption customizes a ListingService.
type ListingOption func(*ListingService)

// WithBlobRemover enables blob cleanup when a listing is deleted.
func WithBlobRemover(blobs BlobRemover) ListingOption {
	return func(s *ListingService) { s.blobs = blobs }
}

// WithEventPublisher publishes listing events to topic.
func WithEventPublisher(events EventPublisher, topic string) ListingOption {
	return func(s *ListingService) {
		s.events = events
		s.topic = topic
	}
}

func NewListingService(listings ListingRepository, users UserRepository, logger *zap.Logger, opts ...ListingOption) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ListingService{listings: listings, users: users, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new listing owned by sellerID. The seller contact fields
// are taken from listing as given; they are not read from the seller account.
func (s *ListingService) Create(ctx context.Context, sellerID string, listing types.LandListing) (types.LandListing, error) {
	if !types.ValidID(sellerID) {
		return types.LandListing{}, fmt.Errorf("%w: malformed seller id", ErrInvalidArgument)
	}
	if _, err := s.users.GetByID(ctx, sellerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.LandListing{}, fmt.Errorf("%w: seller does not exist", ErrNotFound)
		}
		return types.LandListing{}, err
	}

	listing.SellerID = sellerID
	listing.Title = strings.TrimSpace(listing.Title)
	listing.Sold = false
	listing.Views = 0
	listing.Inquiries = 0

	created, err := s.listings.Create(ctx, listing)
	if err != nil {
		return types.LandListing{}, err
	}
	s.publish(ctx, EventListingCreated, created)
	return created, nil
}

// ListAll returns every listing in insertion order.
func (s *ListingService) ListAll(ctx context.Context) ([]types.LandListing, error) {
	return s.listings.List(ctx)
}

func (s *ListingService) GetByID(ctx context.Context, id string) (types.LandListing, error) {
	if !types.ValidID(id) {
		return types.LandListing{}, fmt.Errorf("%w: malformed listing id", ErrInvalidArgument)
	}
	return s.listings.Get(ctx, id)
}

// View counts a detail page fetch and returns the updated listing.
func (s *ListingService) View(ctx context.Context, id string) (types.LandListing, error) {
	if !types.ValidID(id) {
		return types.LandListing{}, fmt.Errorf("%w: malformed listing id", ErrInvalidArgument)
	}
	if err := s.listings.IncrementCounter(ctx, id, types.CounterViews); err != nil {
		return types.LandListing{}, err
	}
	return s.listings.Get(ctx, id)
}

// RecordInquiry counts a buyer inquiry on the listing.
func (s *ListingService) RecordInquiry(ctx context.Context, id string) error {
	if !types.ValidID(id) {
		return fmt.Errorf("%w: malformed listing id", ErrInvalidArgument)
	}
	return s.listings.IncrementCounter(ctx, id, types.CounterInquiries)
}

func (s *ListingService) ListBySeller(ctx context.Context, sellerID string) ([]types.LandListing, error) {
	return s.listings.ListBySeller(ctx, sellerID)
}

// MarkSold sets the sold flag. Only the owning seller may change it.
func (s *ListingService) MarkSold(ctx context.Context, id, requesterID string, sold bool) (types.LandListing, error) {
	if _, err := s.owned(ctx, id, requesterID); err != nil {
		return types.LandListing{}, err
	}
	return s.listings.SetSold(ctx, id, sold)
}

// Delete removes a listing owned by requesterID, then drops it from every
// user's saved and cart sets and removes its blobs.
func (s *ListingService) Delete(ctx context.Context, id, requesterID string) error {
	listing, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.users.RemoveListingReferences(ctx, id); err != nil {
		s.logger.Warn("failed to remove listing references", zap.String("listing_id", id), zap.Error(err))
	}
	s.removeBlobs(ctx, listing)
	s.publish(ctx, EventListingDeleted, listing)
	return nil
}

func (s *ListingService) owned(ctx context.Context, id, requesterID string) (types.LandListing, error) {
	listing, err := s.GetByID(ctx, id)
	if err != nil {
		return types.LandListing{}, err
	}
	if listing.SellerID != requesterID {
		return types.LandListing{}, fmt.Errorf("%w: listing belongs to another seller", ErrForbidden)
	}
	return listing, nil
}

func (s *ListingService) removeBlobs(ctx context.Context, listing types.LandListing) {
	if s.blobs == nil {
		return
	}
	refs := append(append([]string{}, listing.Images...), listing.Documents...)
	for _, ref := range refs {
		if err := s.blobs.DeleteRef(ctx, ref); err != nil {
			s.logger.Warn("failed to delete listing blob",
				zap.String("listing_id", listing.ID),
				zap.String("ref", ref),
				zap.Error(err),
			)
		}
	}
}

func (s *ListingService) publish(ctx context.Context, eventType string, listing types.LandListing) {
	if s.events == nil || s.topic == "" {
		return
	}
	payload, err := json.Marshal(ListingEvent{
		Type:       eventType,
		ListingID:  listing.ID,
		SellerID:   listing.SellerID,
		Title:      listing.Title,
		Location:   listing.Location,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to encode listing event", zap.Error(err))
		return
	}
	attrs := map[string]string{
		"type":                  eventType,
		mq.OrderingKeyAttribute: listing.ID,
	}
	if _, err := s.events.Publish(ctx, s.topic, payload, attrs); err != nil {
		s.logger.Warn("failed to publish listing event",
			zap.String("type", eventType),
			zap.String("listing_id", listing.ID),
			zap.Error(err),
		)
	}
}

// ComputeSellerStats aggregates counters over the seller's listings.
func (s *ListingService) ComputeSellerStats(ctx context.Context, sellerID string) (types.SellerStats, error) {
	listings, err := s.listings.ListBySeller(ctx, sellerID)
	if err != nil {
		return types.SellerStats{}, err
	}

	stats := types.SellerStats{TotalListings: len(listings)}
	for _, listing := range listings {
		if listing.Sold {
			stats.ListingsSold++
		}
		stats.TotalViews += listing.Views
		stats.Inquiries += listing.Inquiries
	}
	stats.ActiveListings = stats.TotalListings - stats.ListingsSold
	return stats, nil
}

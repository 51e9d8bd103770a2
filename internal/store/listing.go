package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agriland/marketplace/types"
	"github.com/lib/pq"
)

const listingColumns = `id, land_title, location, price, land_size, soil_type, description, images, documents,
		seller_name, seller_phone, seller_email, seller_id, sold, views, inquiries, created_at, updated_at`

// ListingRepository handles persistence for land listings in PostgreSQL.
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (types.LandListing, error) {
	var listing types.LandListing
	err := row.Scan(
		&listing.ID,
		&listing.Title,
		&listing.Location,
		&listing.Price,
		&listing.Size,
		&listing.SoilType,
		&listing.Description,
		pq.Array(&listing.Images),
		pq.Array(&listing.Documents),
		&listing.SellerName,
		&listing.SellerPhone,
		&listing.SellerEmail,
		&listing.SellerID,
		&listing.Sold,
		&listing.Views,
		&listing.Inquiries,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	return normalizeListing(listing), err
}

// List returns every listing in insertion order.
func (r *ListingRepository) List(ctx context.Context) ([]types.LandListing, error) {
	const query = `SELECT ` + listingColumns + ` FROM land_listings ORDER BY seq`
	return r.query(ctx, query)
}

func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID string) ([]types.LandListing, error) {
	const query = `SELECT ` + listingColumns + ` FROM land_listings WHERE seller_id = $1 ORDER BY seq`
	return r.query(ctx, query, sellerID)
}

// GetMany returns the listings for ids in the order given, skipping ids that
// no longer resolve.
func (r *ListingRepository) GetMany(ctx context.Context, ids []string) ([]types.LandListing, error) {
	if len(ids) == 0 {
		return []types.LandListing{}, nil
	}
	const query = `SELECT ` + listingColumns + ` FROM land_listings WHERE id = ANY($1)`
	found, err := r.query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func (r *ListingRepository) query(ctx context.Context, query string, args ...any) ([]types.LandListing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]types.LandListing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *ListingRepository) Get(ctx context.Context, id string) (types.LandListing, error) {
	const query = `SELECT ` + listingColumns + ` FROM land_listings WHERE id = $1`
	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LandListing{}, ErrNotFound
		}
		return types.LandListing{}, err
	}
	return listing, nil
}

func (r *ListingRepository) Create(ctx context.Context, listing types.LandListing) (types.LandListing, error) {
	now := time.Now()
	listing.ID = types.NewID()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing = normalizeListing(listing)

	const query = `
		INSERT INTO land_listings (id, land_title, location, price, land_size, soil_type, description, images,
			documents, seller_name, seller_phone, seller_email, seller_id, sold, views, inquiries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		listing.ID,
		listing.Title,
		listing.Location,
		listing.Price,
		listing.Size,
		listing.SoilType,
		listing.Description,
		pq.Array(listing.Images),
		pq.Array(listing.Documents),
		listing.SellerName,
		listing.SellerPhone,
		listing.SellerEmail,
		listing.SellerID,
		listing.Sold,
		listing.Views,
		listing.Inquiries,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return types.LandListing{}, err
	}
	return listing, nil
}

// SetSold flips the sold flag. seller_id is never part of an update.
func (r *ListingRepository) SetSold(ctx context.Context, id string, sold bool) (types.LandListing, error) {
	const query = `
		UPDATE land_listings
		SET sold = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + listingColumns
	listing, err := scanListing(r.db.QueryRowContext(ctx, query, sold, time.Now(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LandListing{}, ErrNotFound
		}
		return types.LandListing{}, err
	}
	return listing, nil
}

func (r *ListingRepository) IncrementCounter(ctx context.Context, id string, counter types.ListingCounter) error {
	column, err := counterColumn(counter)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE land_listings SET %[1]s = %[1]s + 1 WHERE id = $1`, column)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM land_listings WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func orderByIDs(listings []types.LandListing, ids []string) []types.LandListing {
	byID := make(map[string]types.LandListing, len(listings))
	for _, listing := range listings {
		byID[listing.ID] = listing
	}
	ordered := make([]types.LandListing, 0, len(ids))
	for _, id := range ids {
		if listing, ok := byID[id]; ok {
			ordered = append(ordered, listing)
		}
	}
	return ordered
}

package types

import "time"

// LandListing represents a plot of land offered for sale.
//
// The seller contact fields are a snapshot taken from the creation request;
// they are not re-derived from the seller's account, so later profile edits
// do not propagate to existing listings.
type LandListing struct {
	// ID is the unique document identifier of the listing.
	ID string `json:"_id" bson:"_id" db:"id"`

	// Title is the human-readable headline of the listing.
	Title string `json:"landTitle" bson:"landTitle" db:"land_title"`

	// Location is the free-form location of the plot.
	Location string `json:"location" bson:"location" db:"location"`

	// Price is the asking price. The sign is not validated.
	Price float64 `json:"price" bson:"price" db:"price"`

	// Size is the plot size in the seller's unit of choice.
	Size float64 `json:"landSize" bson:"landSize" db:"land_size"`

	// SoilType describes the soil, e.g. "loamy".
	SoilType string `json:"soilType" bson:"soilType" db:"soil_type"`

	// Description is the free-text body of the listing.
	Description string `json:"description" bson:"description" db:"description"`

	// Images holds blob references to uploaded images, in upload order.
	Images []string `json:"images" bson:"images" db:"images"`

	// Documents holds blob references to uploaded documents, in upload order.
	Documents []string `json:"documents" bson:"documents" db:"documents"`

	SellerName  string `json:"sellerName" bson:"sellerName" db:"seller_name"`
	SellerPhone string `json:"sellerPhone" bson:"sellerPhone" db:"seller_phone"`
	SellerEmail string `json:"sellerEmail" bson:"sellerEmail" db:"seller_email"`

	// SellerID references the owning user. It never changes after creation.
	SellerID string `json:"sellerId" bson:"sellerId" db:"seller_id"`

	// Sold marks the listing as sold. Absent means active.
	Sold bool `json:"sold" bson:"sold,omitempty" db:"sold"`

	// Views counts detail page fetches.
	Views int `json:"views" bson:"views,omitempty" db:"views"`

	// Inquiries counts buyer inquiries.
	Inquiries int `json:"inquiries" bson:"inquiries,omitempty" db:"inquiries"`

	// CreatedAt is the timestamp at which the listing was created.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the listing.
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// ListingCounter names a numeric counter kept on a listing.
type ListingCounter string

const (
	CounterViews     ListingCounter = "views"
	CounterInquiries ListingCounter = "inquiries"
)

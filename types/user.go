package types

import "time"

// User represents a marketplace account.
// It contains identity, roles, the saved/cart relations to listings and
// display-only seller profile fields.
type User struct {
	// ID is the unique document identifier of the user (24 hex characters).
	ID string `json:"_id" bson:"_id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" bson:"username" db:"username"`

	// Email is the user's unique email address. Login is performed by email.
	Email string `json:"email" bson:"email" db:"email"`

	// MobileNo is the user's unique mobile phone number.
	MobileNo string `json:"mobileNo" bson:"mobileNo" db:"mobile_no"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password" db:"password_hash"`

	// Roles is the non-empty set of roles granted to the account.
	Roles []Role `json:"role" bson:"role" db:"roles"`

	// SavedListings is the ordered, duplicate-free list of saved listing IDs.
	SavedListings []string `json:"savedListings" bson:"savedListings" db:"saved_listings"`

	// Cart is the ordered, duplicate-free list of listing IDs in the cart.
	Cart []string `json:"cart" bson:"cart" db:"cart"`

	// PreferredLocations is a free-form list of locations the user follows.
	PreferredLocations []string `json:"preferredLocations" bson:"preferredLocations" db:"preferred_locations"`

	// CompanyName is shown on the seller profile.
	CompanyName string `json:"companyName,omitempty" bson:"companyName,omitempty" db:"company_name"`

	// Experience is the seller's years of experience, shown on the profile.
	Experience int `json:"experience,omitempty" bson:"experience,omitempty" db:"experience"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// HasRole reports whether the user was granted role.
func (u User) HasRole(role Role) bool {
	return ContainsRole(u.Roles, role)
}

// Relation names one of the two listing reference sets kept on a user.
type Relation string

const (
	RelationSaved Relation = "savedListings"
	RelationCart  Relation = "cart"
)

// Valid reports whether r is a known relation.
func (r Relation) Valid() bool {
	return r == RelationSaved || r == RelationCart
}

// SellerStats aggregates counters over a seller's listings.
type SellerStats struct {
	TotalListings  int `json:"totalListings"`
	ListingsSold   int `json:"listingsSold"`
	ActiveListings int `json:"activeListings"`
	TotalViews     int `json:"totalViews"`
	Inquiries      int `json:"inquiries"`
}

package store

import "github.com/agriland/marketplace/types"

// normalizeUser replaces nil relation slices with empty ones so responses
// carry [] instead of null.
func normalizeUser(user types.User) types.User {
	if user.SavedListings == nil {
		user.SavedListings = []string{}
	}
	if user.Cart == nil {
		user.Cart = []string{}
	}
	if user.PreferredLocations == nil {
		user.PreferredLocations = []string{}
	}
	return user
}

func normalizeListing(listing types.LandListing) types.LandListing {
	if listing.Images == nil {
		listing.Images = []string{}
	}
	if listing.Documents == nil {
		listing.Documents = []string{}
	}
	return listing
}

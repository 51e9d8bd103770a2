package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh document identifier. Every storage backend uses the
// same 24-hex-character format so ids are portable between them.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a well-formed document identifier.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

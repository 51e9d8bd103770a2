package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agriland/marketplace/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// userConflict turns the name of a violated uniqueness constraint or index
// into a message that is safe to show to clients.
func userConflict(constraint string) error {
	switch {
	case strings.Contains(constraint, "email"):
		return fmt.Errorf("%w: email already registered", ErrConflict)
	case strings.Contains(constraint, "mobile"):
		return fmt.Errorf("%w: mobile number already registered", ErrConflict)
	case strings.Contains(constraint, "username"):
		return fmt.Errorf("%w: username already taken", ErrConflict)
	default:
		return fmt.Errorf("%w: email, mobile number or username already registered", ErrConflict)
	}
}

func relationColumn(rel types.Relation) (string, error) {
	switch rel {
	case types.RelationSaved:
		return "saved_listings", nil
	case types.RelationCart:
		return "cart", nil
	default:
		return "", fmt.Errorf("unknown relation %q", rel)
	}
}

func counterColumn(counter types.ListingCounter) (string, error) {
	switch counter {
	case types.CounterViews:
		return "views", nil
	case types.CounterInquiries:
		return "inquiries", nil
	default:
		return "", fmt.Errorf("unknown counter %q", counter)
	}
}

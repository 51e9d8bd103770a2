package services

import (
	"errors"

	"github.com/agriland/marketplace/internal/store"
)

// Errors returned by the services. Handlers map them to HTTP statuses.
var (
	ErrConflict           = store.ErrConflict
	ErrNotFound           = store.ErrNotFound
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

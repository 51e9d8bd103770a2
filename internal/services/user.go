package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agriland/marketplace/internal/store"
	"github.com/agriland/marketplace/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByMobile(ctx context.Context, mobile string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id, companyName string, experience int) (types.User, error)
	AddRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error
	RemoveRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error
	MoveRelation(ctx context.Context, userID string, from, to types.Relation, listingID string) error
	SetPreferredLocations(ctx context.Context, userID string, locations []string) error
	RemoveListingReferences(ctx context.Context, listingID string) error
}

// Registration carries the signup fields.
type Registration struct {
	Username string
	Email    string
	MobileNo string
	Password string
	Roles    []string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

// NewUserService constructs a UserService. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// Register creates a new account. Uniqueness is checked email first, then
// mobile number, then username; the store's unique indexes still reject a
// concurrent duplicate that slips past the checks.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.MobileNo = strings.TrimSpace(reg.MobileNo)
	if reg.Username == "" || reg.Email == "" || reg.MobileNo == "" || reg.Password == "" {
		return types.User{}, fmt.Errorf("%w: missing required fields", ErrInvalidArgument)
	}

	roles, err := types.ParseRoles(reg.Roles)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if err := s.ensureAbsent(ctx, s.repo.GetByEmail, reg.Email, "email already registered"); err != nil {
		return types.User{}, err
	}
	if err := s.ensureAbsent(ctx, s.repo.GetByMobile, reg.MobileNo, "mobile number already registered"); err != nil {
		return types.User{}, err
	}
	if err := s.ensureAbsent(ctx, s.repo.GetByUsername, reg.Username, "username already taken"); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, types.User{
		Username:     reg.Username,
		Email:        reg.Email,
		MobileNo:     reg.MobileNo,
		PasswordHash: string(hashed),
		Roles:        roles,
	})
}

func (s *UserService) ensureAbsent(ctx context.Context, lookup func(context.Context, string) (types.User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *UserService) FindByID(ctx context.Context, id string) (types.User, error) {
	if !types.ValidID(id) {
		return types.User{}, fmt.Errorf("%w: malformed user id", ErrInvalidArgument)
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile sets the display-only seller profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, id, companyName string, experience int) (types.User, error) {
	if !types.ValidID(id) {
		return types.User{}, fmt.Errorf("%w: malformed user id", ErrInvalidArgument)
	}
	if experience < 0 {
		return types.User{}, fmt.Errorf("%w: experience must not be negative", ErrInvalidArgument)
	}
	return s.repo.UpdateProfile(ctx, id, strings.TrimSpace(companyName), experience)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/agriland/marketplace/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	user, err := f.userSvc.Register(context.Background(), Registration{
		Username: " asha ",
		Email:    "asha@example.com",
		MobileNo: "9000000001",
		Password: "s3cret",
		Roles:    []string{"Seller", "buyer", "seller"},
	})
	require.NoError(t, err)

	assert.True(t, types.ValidID(user.ID))
	assert.Equal(t, "asha", user.Username)
	assert.Equal(t, []types.Role{types.RoleSeller, types.RoleBuyer}, user.Roles)
	assert.Empty(t, user.SavedListings)
	assert.Empty(t, user.Cart)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
}

func TestUserService_RegisterConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "asha", "buyer")

	tests := []struct {
		name string
		reg  Registration
	}{
		{"email", Registration{Username: "x", Email: "asha@example.com", MobileNo: "1", Password: "p", Roles: []string{"buyer"}}},
		{"mobile", Registration{Username: "x", Email: "x@example.com", MobileNo: "98asha", Password: "p", Roles: []string{"buyer"}}},
		{"username", Registration{Username: "asha", Email: "x@example.com", MobileNo: "2", Password: "p", Roles: []string{"buyer"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.userSvc.Register(context.Background(), tt.reg)
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestUserService_RegisterChecksEmailBeforeMobile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "asha", "buyer")

	_, err := f.userSvc.Register(context.Background(), Registration{
		Username: "asha", Email: "asha@example.com", MobileNo: "98asha", Password: "p", Roles: []string{"buyer"},
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "email")
}

func TestUserService_RegisterInvalid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name string
		reg  Registration
	}{
		{"missing password", Registration{Username: "a", Email: "a@example.com", MobileNo: "1", Roles: []string{"buyer"}}},
		{"missing email", Registration{Username: "a", MobileNo: "1", Password: "p", Roles: []string{"buyer"}}},
		{"no roles", Registration{Username: "a", Email: "a@example.com", MobileNo: "1", Password: "p"}},
		{"unknown role", Registration{Username: "a", Email: "a@example.com", MobileNo: "1", Password: "p", Roles: []string{"admin"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.userSvc.Register(context.Background(), tt.reg)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestUserService_Find(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.register(t, "ravi", "buyer")
	ctx := context.Background()

	byEmail, err := f.userSvc.FindByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := f.userSvc.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ravi", byID.Username)

	_, err = f.userSvc.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.userSvc.FindByID(ctx, types.NewID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.userSvc.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := f.register(t, "meera", "seller")
	ctx := context.Background()

	updated, err := f.userSvc.UpdateProfile(ctx, user.ID, " Meera Lands ", 7)
	require.NoError(t, err)
	assert.Equal(t, "Meera Lands", updated.CompanyName)
	assert.Equal(t, 7, updated.Experience)

	_, err = f.userSvc.UpdateProfile(ctx, user.ID, "x", -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewUserService_ClampsCost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.DefaultCost, NewUserService(nil, 0).bcryptCost)
	assert.Equal(t, bcrypt.DefaultCost, NewUserService(nil, 99).bcryptCost)
	assert.Equal(t, 12, NewUserService(nil, 12).bcryptCost)
}

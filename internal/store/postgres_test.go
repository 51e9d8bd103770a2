package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agriland/marketplace/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var userRowColumns = []string{
	"id", "username", "email", "mobile_no", "password_hash", "roles", "saved_listings", "cart",
	"preferred_locations", "company_name", "experience", "created_at", "updated_at",
}

var listingRowColumns = []string{
	"id", "land_title", "location", "price", "land_size", "soil_type", "description", "images", "documents",
	"seller_name", "seller_phone", "seller_email", "seller_id", "sold", "views", "inquiries", "created_at", "updated_at",
}

func listingRow(rows *sqlmock.Rows, id, sellerID string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Farm "+id, "Nashik", 250000.0, 2.5, "loamy", "", "{/uploads/a.jpg}", "{}",
		"Asha", "9000000000", "asha@example.com", sellerID, false, 3, 1, now, now)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(userRowColumns).AddRow(
		"u1", "asha", "asha@example.com", "9000000000", "hash", "{buyer,seller}", "{l1}", "{}",
		"{Pune}", "Asha Farms", 4, now, now)
	mock.ExpectQuery(`(?s)^SELECT .* FROM users WHERE email = \$1$`).
		WithArgs("asha@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, []types.Role{types.RoleBuyer, types.RoleSeller}, user.Roles)
	assert.Equal(t, []string{"l1"}, user.SavedListings)
	assert.Empty(t, user.Cart)
	assert.Equal(t, []string{"Pune"}, user.PreferredLocations)
	assert.Equal(t, 4, user.Experience)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)^SELECT .* FROM users WHERE id = \$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)^\s*INSERT INTO users`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), types.User{
		Username: "asha",
		Email:    "asha@example.com",
		MobileNo: "9000000000",
		Roles:    []types.Role{types.RoleBuyer},
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "conflict: email already registered")
}

func TestUserConflict(t *testing.T) {
	cases := map[string]string{
		"users_email_key":     "conflict: email already registered",
		"users_mobile_no_key": "conflict: mobile number already registered",
		"users_username_key":  "conflict: username already taken",
		"mobileNo_1":          "conflict: mobile number already registered",
		"":                    "conflict: email, mobile number or username already registered",
	}
	for constraint, want := range cases {
		err := userConflict(constraint)
		assert.ErrorIs(t, err, ErrConflict, constraint)
		assert.EqualError(t, err, want, constraint)
	}
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)^\s*INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.Create(context.Background(), types.User{
		Username: "asha",
		Email:    "asha@example.com",
		MobileNo: "9000000000",
		Roles:    []types.Role{types.RoleSeller},
	})
	require.NoError(t, err)
	assert.True(t, types.ValidID(user.ID))
	assert.NotNil(t, user.SavedListings)
	assert.NotNil(t, user.Cart)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestUserRepository_AddRelation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)UPDATE users\s+SET saved_listings = CASE WHEN \$1::text = ANY\(saved_listings\).*WHERE id = \$3`).
		WithArgs("l1", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddRelation(context.Background(), "u1", types.RelationSaved, "l1"))
}

func TestUserRepository_AddRelationUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)UPDATE users\s+SET cart = CASE`).
		WithArgs("l1", sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddRelation(context.Background(), "ghost", types.RelationCart, "l1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_AddRelationUnknownRelation(t *testing.T) {
	db, _ := newMock(t)
	repo := NewUserRepository(db)

	err := repo.AddRelation(context.Background(), "u1", types.Relation("wishlist"), "l1")
	assert.Error(t, err)
}

func TestUserRepository_MoveRelation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)UPDATE users\s+SET saved_listings = array_remove\(saved_listings, \$1::text\),\s+cart = CASE`).
		WithArgs("l1", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MoveRelation(context.Background(), "u1", types.RelationSaved, types.RelationCart, "l1"))
}

func TestUserRepository_RemoveListingReferences(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)UPDATE users\s+SET saved_listings = array_remove.*cart = array_remove`).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RemoveListingReferences(context.Background(), "l1"))
}

func TestListingRepository_GetManyKeepsRequestedOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	rows := sqlmock.NewRows(listingRowColumns)
	listingRow(rows, "l1", "s1")
	listingRow(rows, "l2", "s1")
	mock.ExpectQuery(`(?s)^SELECT .* FROM land_listings WHERE id = ANY\(\$1\)$`).
		WillReturnRows(rows)

	listings, err := repo.GetMany(context.Background(), []string{"l2", "gone", "l1"})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "l2", listings[0].ID)
	assert.Equal(t, "l1", listings[1].ID)
	assert.Equal(t, []string{"/uploads/a.jpg"}, listings[1].Images)
}

func TestListingRepository_GetManyEmpty(t *testing.T) {
	db, _ := newMock(t)
	repo := NewListingRepository(db)

	listings, err := repo.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestListingRepository_ListBySeller(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	rows := sqlmock.NewRows(listingRowColumns)
	listingRow(rows, "l1", "s1")
	mock.ExpectQuery(`(?s)^SELECT .* FROM land_listings WHERE seller_id = \$1 ORDER BY seq$`).
		WithArgs("s1").
		WillReturnRows(rows)

	listings, err := repo.ListBySeller(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "s1", listings[0].SellerID)
	assert.Equal(t, 3, listings[0].Views)
}

func TestListingRepository_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(`(?s)^SELECT .* FROM land_listings WHERE id = \$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingRepository_IncrementCounter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	mock.ExpectExec(`UPDATE land_listings SET inquiries = inquiries \+ 1 WHERE id = \$1`).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementCounter(context.Background(), "l1", types.CounterInquiries))
}

func TestListingRepository_SetSoldNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(`(?s)UPDATE land_listings\s+SET sold = \$1.*RETURNING`).
		WithArgs(true, sqlmock.AnyArg(), "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SetSold(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingRepository_DeleteErrors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	mock.ExpectExec(`DELETE FROM land_listings WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM land_listings WHERE id = \$1`).
		WithArgs("l1").
		WillReturnError(errors.New("db down"))

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrNotFound)
	assert.EqualError(t, repo.Delete(context.Background(), "l1"), "db down")
}

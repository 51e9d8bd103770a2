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

const uniqueViolation = "23505"

const userColumns = `id, username, email, mobile_no, password_hash, roles, saved_listings, cart,
		preferred_locations, company_name, experience, created_at, updated_at`

// UserRepository handles persistence for users in PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (types.User, error) {
	return r.getBy(ctx, "mobile_no", mobile)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.getBy(ctx, "username", username)
}

// getBy looks a user up by one of the unique columns. column is never user input.
func (r *UserRepository) getBy(ctx context.Context, column, value string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	var user types.User
	var roles []string
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.MobileNo,
		&user.PasswordHash,
		pq.Array(&roles),
		pq.Array(&user.SavedListings),
		pq.Array(&user.Cart),
		pq.Array(&user.PreferredLocations),
		&user.CompanyName,
		&user.Experience,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.Roles = make([]types.Role, len(roles))
	for i, role := range roles {
		user.Roles[i] = types.Role(role)
	}
	return normalizeUser(user), nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = types.NewID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user = normalizeUser(user)

	const query = `
		INSERT INTO users (id, username, email, mobile_no, password_hash, roles, saved_listings, cart,
			preferred_locations, company_name, experience, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.MobileNo,
		user.PasswordHash,
		pq.Array(types.RoleStrings(user.Roles)),
		pq.Array(user.SavedListings),
		pq.Array(user.Cart),
		pq.Array(user.PreferredLocations),
		user.CompanyName,
		user.Experience,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, userConflict(pqErr.Constraint)
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, companyName string, experience int) (types.User, error) {
	const query = `
		UPDATE users
		SET company_name = $1,
			experience = $2,
			updated_at = $3
		WHERE id = $4`
	if err := r.exec(ctx, query, companyName, experience, time.Now(), id); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, id)
}

// AddRelation appends listingID to the relation unless it is already present.
// The membership check and the append run in one statement.
func (r *UserRepository) AddRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	column, err := relationColumn(rel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = CASE WHEN $1::text = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $1::text) END,
			updated_at = $2
		WHERE id = $3`, column)
	return r.exec(ctx, query, listingID, time.Now(), userID)
}

func (r *UserRepository) RemoveRelation(ctx context.Context, userID string, rel types.Relation, listingID string) error {
	column, err := relationColumn(rel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = array_remove(%[1]s, $1::text),
			updated_at = $2
		WHERE id = $3`, column)
	return r.exec(ctx, query, listingID, time.Now(), userID)
}

// MoveRelation removes listingID from one relation and adds it to the other
// in a single row update.
func (r *UserRepository) MoveRelation(ctx context.Context, userID string, from, to types.Relation, listingID string) error {
	fromColumn, err := relationColumn(from)
	if err != nil {
		return err
	}
	toColumn, err := relationColumn(to)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = array_remove(%[1]s, $1::text),
			%[2]s = CASE WHEN $1::text = ANY(%[2]s) THEN %[2]s ELSE array_append(%[2]s, $1::text) END,
			updated_at = $2
		WHERE id = $3`, fromColumn, toColumn)
	return r.exec(ctx, query, listingID, time.Now(), userID)
}

func (r *UserRepository) SetPreferredLocations(ctx context.Context, userID string, locations []string) error {
	if locations == nil {
		locations = []string{}
	}
	const query = `
		UPDATE users
		SET preferred_locations = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, pq.Array(locations), time.Now(), userID)
}

// RemoveListingReferences drops listingID from every user's relations.
func (r *UserRepository) RemoveListingReferences(ctx context.Context, listingID string) error {
	const query = `
		UPDATE users
		SET saved_listings = array_remove(saved_listings, $1::text),
			cart = array_remove(cart, $1::text)
		WHERE $1::text = ANY(saved_listings) OR $1::text = ANY(cart)`
	_, err := r.db.ExecContext(ctx, query, listingID)
	return err
}

// exec runs a single-row update and maps zero affected rows to ErrNotFound.
func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/types"
)

const identityColumns = `id, email, password_hash, provider, name, first_name, last_name, image,
		is_admin, is_active, email_verified, created_at, updated_at`

// UserRepository handles persistence for identities.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM users WHERE id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail looks up an identity by exact email match.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM users WHERE email = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context) ([]types.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM users ORDER BY last_name, first_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identities := make([]types.Identity, 0)
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return identities, nil
}

// Create inserts a new identity. A duplicate email yields ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, identity types.Identity) (types.Identity, error) {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, password_hash, provider, name, first_name, last_name, image,
			is_admin, is_active, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		identity.ID,
		identity.Email,
		nullString(identity.PasswordHash),
		nullString(string(identity.Provider)),
		identity.DisplayName,
		identity.FirstName,
		identity.LastName,
		nullString(identity.PictureURL),
		identity.IsAdmin,
		identity.IsActive,
		nullTime(identity.EmailVerified),
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		return types.Identity{}, translateError(err)
	}
	return identity, nil
}

// Update writes every mutable column of the identity in a single statement.
func (r *UserRepository) Update(ctx context.Context, identity types.Identity) (types.Identity, error) {
	identity.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET email = $1,
			password_hash = $2,
			provider = $3,
			name = $4,
			first_name = $5,
			last_name = $6,
			image = $7,
			is_admin = $8,
			is_active = $9,
			email_verified = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := r.db.ExecContext(
		ctx,
		query,
		identity.Email,
		nullString(identity.PasswordHash),
		nullString(string(identity.Provider)),
		identity.DisplayName,
		identity.FirstName,
		identity.LastName,
		nullString(identity.PictureURL),
		identity.IsAdmin,
		identity.IsActive,
		nullTime(identity.EmailVerified),
		identity.UpdatedAt,
		identity.ID,
	)
	if err != nil {
		return types.Identity{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Identity{}, err
	}
	if affected == 0 {
		return types.Identity{}, ErrNotFound
	}
	return identity, nil
}

// ClaimProvider assigns provider to an identity whose provider is still NULL.
// The condition is checked by the UPDATE itself, so two concurrent claims
// cannot both succeed; the loser gets ErrNotFound.
func (r *UserRepository) ClaimProvider(ctx context.Context, id string, provider types.Provider) (types.Identity, error) {
	const query = `
		UPDATE users
		SET provider = $1,
			updated_at = $2
		WHERE id = $3 AND provider IS NULL
		RETURNING ` + identityColumns
	return scanIdentity(r.db.QueryRowContext(ctx, query, string(provider), time.Now(), id))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (types.Identity, error) {
	var (
		identity      types.Identity
		passwordHash  sql.NullString
		provider      sql.NullString
		image         sql.NullString
		emailVerified sql.NullTime
	)
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&passwordHash,
		&provider,
		&identity.DisplayName,
		&identity.FirstName,
		&identity.LastName,
		&image,
		&identity.IsAdmin,
		&identity.IsActive,
		&emailVerified,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return types.Identity{}, translateError(err)
	}

	identity.PasswordHash = passwordHash.String
	identity.Provider = types.Provider(provider.String)
	identity.PictureURL = image.String
	if emailVerified.Valid {
		verified := emailVerified.Time
		identity.EmailVerified = &verified
	}
	return identity, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

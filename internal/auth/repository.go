package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaville/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, COALESCE(password_hash,''), COALESCE(full_name,''), COALESCE(avatar_url,''), created_at, updated_at`

func (r *Repository) scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns all users for the super admin user screen.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, COALESCE(full_name,''), COALESCE(avatar_url,''), created_at
		FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Create inserts a new user with a password hash.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, $2, NULLIF($3,''))
		RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName))
}

// CreateInvited inserts a passwordless account for an invited user; they
// sign in via OTP until they set a password.
func (r *Repository) CreateInvited(ctx context.Context, email string) (*models.User, error) {
	const q = `INSERT INTO users (email) VALUES ($1) RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

// UpdatePassword replaces the user's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, passwordHash, id)
	return err
}

// UpdateProfile updates full name and avatar. Nil pointers leave the field
// untouched.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, avatarURL *string) error {
	const q = `UPDATE users SET
		full_name = COALESCE($1, full_name),
		avatar_url = COALESCE($2, avatar_url),
		updated_at = NOW()
		WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, fullName, avatarURL, id)
	return err
}

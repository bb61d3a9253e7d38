package themes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaville/backend/internal/models"
)

// Repository handles theme persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a themes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new theme.
func (r *Repository) Create(ctx context.Context, t *models.Theme) error {
	const q = `INSERT INTO themes (id, name, image_url, image_url_light)
		VALUES (gen_random_uuid(), $1, NULLIF($2,''), NULLIF($3,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.Name, t.ImageURL, t.ImageURLLight).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a theme by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	const q = `SELECT id, name, COALESCE(image_url,''), COALESCE(image_url_light,''), created_at, updated_at
		FROM themes WHERE id = $1`
	var t models.Theme
	err := r.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &t.ImageURL, &t.ImageURLLight, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all themes ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Theme, error) {
	const q = `SELECT id, name, COALESCE(image_url,''), COALESCE(image_url_light,''), created_at, updated_at
		FROM themes ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Theme
	for rows.Next() {
		var t models.Theme
		if err := rows.Scan(&t.ID, &t.Name, &t.ImageURL, &t.ImageURLLight, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update replaces the theme's name and images.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, imageURL, imageURLLight string) error {
	const q = `UPDATE themes SET name = $1, image_url = NULLIF($2,''), image_url_light = NULLIF($3,''), updated_at = NOW()
		WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, name, imageURL, imageURLLight, id)
	return err
}

// Delete removes a theme. Events referencing it keep working: the theme_id
// reference is weak and resolves to no theme on join.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE events SET theme_id = NULL WHERE theme_id = $1`, id)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM themes WHERE id = $1`, id)
	return err
}

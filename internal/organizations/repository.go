package organizations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaville/backend/internal/models"
)

// Repository handles organization, membership and super admin persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, COALESCE(description,''), COALESCE(contact_email,''), COALESCE(contact_phone,''),
	COALESCE(address,''), COALESCE(website_url,''), is_active, created_at, updated_at`

func scanOrg(row interface{ Scan(...interface{}) error }) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.ContactEmail, &o.ContactPhone,
		&o.Address, &o.WebsiteURL, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create creates an organization.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (id, name, description, contact_email, contact_phone, address, website_url, is_active)
		VALUES (gen_random_uuid(), $1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), TRUE)
		RETURNING id, is_active, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, org.Name, org.Description, org.ContactEmail, org.ContactPhone, org.Address, org.WebsiteURL).
		Scan(&org.ID, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return scanOrg(r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
}

// List returns all organizations ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// Update replaces the organization's editable fields.
func (r *Repository) Update(ctx context.Context, org *models.Organization) error {
	const q = `UPDATE organizations SET name = $1, description = NULLIF($2,''), contact_email = NULLIF($3,''),
		contact_phone = NULLIF($4,''), address = NULLIF($5,''), website_url = NULLIF($6,''), updated_at = NOW()
		WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, org.Name, org.Description, org.ContactEmail, org.ContactPhone, org.Address, org.WebsiteURL, org.ID)
	return err
}

// SetActive toggles the organization soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE organizations SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

// Delete removes an organization outright. Its events lose their owner and
// become global; membership edges go with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

// Member is an organization member with user details joined in.
type Member struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
	AddedAt  time.Time `json:"added_at"`
}

// ListMembers returns members of an organization, including soft-removed
// edges so the admin screen can show them.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	const q = `SELECT ou.id, ou.user_id, u.email, COALESCE(u.full_name, ''), ou.role, ou.is_active, ou.created_at
		FROM organization_users ou
		INNER JOIN users u ON u.id = ou.user_id
		WHERE ou.organization_id = $1
		ORDER BY ou.created_at ASC`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.IsActive, &m.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpsertMembership adds a user to an organization, reviving a soft-removed
// edge and updating the role if one exists.
func (r *Repository) UpsertMembership(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	const q = `INSERT INTO organization_users (id, organization_id, user_id, role, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, TRUE)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role, is_active = TRUE, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, orgID, userID, role)
	return err
}

// SetMembershipRole changes a member's role.
func (r *Repository) SetMembershipRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	const q = `UPDATE organization_users SET role = $1, updated_at = NOW()
		WHERE organization_id = $2 AND user_id = $3`
	_, err := r.pool.Exec(ctx, q, role, orgID, userID)
	return err
}

// DeactivateMembership soft-removes a member. The edge stays.
func (r *Repository) DeactivateMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	const q = `UPDATE organization_users SET is_active = FALSE, updated_at = NOW()
		WHERE organization_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, q, orgID, userID)
	return err
}

// SuperAdmins returns the super admin set with user info joined.
func (r *Repository) SuperAdmins(ctx context.Context) ([]models.SuperAdmin, error) {
	const q = `SELECT sa.user_id, u.email, COALESCE(u.full_name, ''), sa.created_at
		FROM super_admins sa
		INNER JOIN users u ON u.id = sa.user_id
		ORDER BY sa.created_at ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SuperAdmin
	for rows.Next() {
		var sa models.SuperAdmin
		if err := rows.Scan(&sa.UserID, &sa.Email, &sa.FullName, &sa.GrantedAt); err != nil {
			return nil, err
		}
		list = append(list, sa)
	}
	return list, rows.Err()
}

// GrantSuperAdmin adds a user to the super admin set.
func (r *Repository) GrantSuperAdmin(ctx context.Context, userID uuid.UUID) error {
	const q = `INSERT INTO super_admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, userID)
	return err
}

// RevokeSuperAdmin removes a user from the super admin set.
func (r *Repository) RevokeSuperAdmin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM super_admins WHERE user_id = $1`, userID)
	return err
}

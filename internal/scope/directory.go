package scope

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaville/backend/internal/models"
)

// PgDirectory is the Postgres-backed Directory.
type PgDirectory struct {
	pool *pgxpool.Pool
}

// NewPgDirectory creates a directory over a pgx pool.
func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

// IsSuperAdmin reports whether the user is in the super admin set.
func (d *PgDirectory) IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM super_admins WHERE user_id = $1`
	var one int
	err := d.pool.QueryRow(ctx, q, userID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AllOrganizations returns every organization in the system, active or not,
// ordered by name.
func (d *PgDirectory) AllOrganizations(ctx context.Context) ([]models.Organization, error) {
	const q = `SELECT id, name, COALESCE(description,''), COALESCE(contact_email,''), COALESCE(contact_phone,''),
		COALESCE(address,''), COALESCE(website_url,''), is_active, created_at, updated_at
		FROM organizations ORDER BY name`
	rows, err := d.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.ContactEmail, &o.ContactPhone,
			&o.Address, &o.WebsiteURL, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// UserOrganizations returns the user's active memberships with the
// organization joined in, ordered by organization name.
func (d *PgDirectory) UserOrganizations(ctx context.Context, userID uuid.UUID) ([]models.OrganizationUser, error) {
	const q = `SELECT ou.id, ou.organization_id, ou.user_id, ou.role, ou.is_active, ou.created_at, ou.updated_at,
		o.id, o.name, COALESCE(o.description,''), COALESCE(o.contact_email,''), COALESCE(o.contact_phone,''),
		COALESCE(o.address,''), COALESCE(o.website_url,''), o.is_active, o.created_at, o.updated_at
		FROM organization_users ou
		INNER JOIN organizations o ON o.id = ou.organization_id
		WHERE ou.user_id = $1 AND ou.is_active = TRUE
		ORDER BY o.name`
	rows, err := d.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.OrganizationUser
	for rows.Next() {
		var m models.OrganizationUser
		var o models.Organization
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
			&o.ID, &o.Name, &o.Description, &o.ContactEmail, &o.ContactPhone,
			&o.Address, &o.WebsiteURL, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		m.Organization = &o
		list = append(list, m)
	}
	return list, rows.Err()
}

// IsOrganizationAdmin reports whether the user holds the organization_admin
// role in that specific organization (active membership only).
func (d *PgDirectory) IsOrganizationAdmin(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	const q = `SELECT role FROM organization_users
		WHERE user_id = $1 AND organization_id = $2 AND is_active = TRUE`
	var role string
	err := d.pool.QueryRow(ctx, q, userID, orgID).Scan(&role)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.OrgRoleAdmin, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant owning events and memberships. Super admins
// create, edit and deactivate organizations; is_active=false is a soft
// delete.
type Organization struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	WebsiteURL   string    `json:"website_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Organization membership roles. Super admin is not an organization role; it
// lives in the separate super_admins set.
const (
	OrgRoleAdmin  = "organization_admin"
	OrgRoleMember = "organization_member"
)

// OrganizationUser is the membership edge between a user and an
// organization. The edge is soft-deleted (is_active=false), never removed.
type OrganizationUser struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Organization is populated on membership listings for display.
	Organization *Organization `json:"organization,omitempty"`
}

package scope

import "github.com/google/uuid"

// Filter describes which events are visible for a user context. Event
// listing queries translate it into SQL.
type Filter struct {
	// All disables organization filtering entirely (super admin, "all
	// organizations" scope).
	All bool
	// OrganizationID, when set, filters to that single organization by
	// strict equality. Global events (no owning organization) are excluded
	// in this branch; the asymmetry with the union scopes below is observed
	// product behavior and is kept as-is.
	OrganizationID *uuid.UUID
	// OrganizationIDs is the "all my organizations" union for non-super
	// admins.
	OrganizationIDs []uuid.UUID
	// IncludeGlobal adds events with no owning organization to the union
	// scopes.
	IncludeGlobal bool
}

// EventFilter derives the visibility filter for this context.
func (c UserContext) EventFilter() Filter {
	if c.CurrentOrganization != nil {
		id := c.CurrentOrganization.OrganizationID
		return Filter{OrganizationID: &id}
	}
	if c.IsSuperAdmin {
		return Filter{All: true}
	}
	ids := make([]uuid.UUID, 0, len(c.Organizations))
	for _, m := range c.Organizations {
		ids = append(ids, m.OrganizationID)
	}
	return Filter{OrganizationIDs: ids, IncludeGlobal: true}
}

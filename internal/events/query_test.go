package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/internal/scope"
)

func TestBuildListConditions_SingleOrgStrictEquality(t *testing.T) {
	orgID := uuid.New()
	where, args := buildListConditions(ListParams{Filter: scope.Filter{OrganizationID: &orgID}})

	assert.Equal(t, " WHERE e.organization_id = $1", where)
	require.Len(t, args, 1)
	assert.Equal(t, orgID, args[0])
	assert.NotContains(t, where, "IS NULL", "single-org scope must exclude global events")
}

func TestBuildListConditions_SuperAdminAllScopeUnfiltered(t *testing.T) {
	where, args := buildListConditions(ListParams{Filter: scope.Filter{All: true}})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildListConditions_UnionScopeIncludesGlobal(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	f := scope.Filter{OrganizationIDs: []uuid.UUID{a, b}, IncludeGlobal: true}
	where, args := buildListConditions(ListParams{Filter: f})

	assert.Equal(t, " WHERE (e.organization_id = ANY($1) OR e.organization_id IS NULL)", where)
	require.Len(t, args, 1)
	assert.Equal(t, []uuid.UUID{a, b}, args[0])
}

func TestBuildListConditions_CombinesStatusSearchAndPastToggle(t *testing.T) {
	where, args := buildListConditions(ListParams{
		Status:   models.EventAccepted,
		Search:   "fête",
		Today:    "2025-05-21",
		ShowPast: true,
		Filter:   scope.Filter{All: true},
	})

	assert.Equal(t, " WHERE e.status = $1 AND e.name ILIKE $2 AND (e.date < $3 OR e.date IS NULL)", where)
	require.Len(t, args, 3)
	assert.Equal(t, models.EventAccepted, args[0])
	assert.Equal(t, "%fête%", args[1])
	assert.Equal(t, "2025-05-21", args[2])
}

func TestBuildListConditions_UpcomingToggle(t *testing.T) {
	where, _ := buildListConditions(ListParams{Today: "2025-05-21", Filter: scope.Filter{All: true}})
	assert.Equal(t, " WHERE e.date >= $1", where)
}

func TestCanManageOrg(t *testing.T) {
	userID := uuid.New()
	adminOrg := uuid.New()
	memberOrg := uuid.New()
	otherOrg := uuid.New()
	userCtx := scope.UserContext{
		User: &models.User{ID: userID},
		Organizations: []models.OrganizationUser{
			{OrganizationID: adminOrg, UserID: userID, Role: models.OrgRoleAdmin},
			{OrganizationID: memberOrg, UserID: userID, Role: models.OrgRoleMember},
		},
	}

	assert.True(t, canManageOrg(userCtx, &adminOrg))
	assert.False(t, canManageOrg(userCtx, &memberOrg), "plain members cannot manage")
	assert.False(t, canManageOrg(userCtx, &otherOrg))
	assert.False(t, canManageOrg(userCtx, nil), "global content is super admin only")

	super := scope.UserContext{IsSuperAdmin: true}
	assert.True(t, canManageOrg(super, nil))
	assert.True(t, canManageOrg(super, &otherOrg))
}

func TestUpdateForbidden(t *testing.T) {
	userID := uuid.New()
	adminOrg := uuid.New()
	otherOrg := uuid.New()
	orgAdmin := scope.UserContext{
		User: &models.User{ID: userID},
		Organizations: []models.OrganizationUser{
			{OrganizationID: adminOrg, UserID: userID, Role: models.OrgRoleAdmin},
		},
	}
	super := scope.UserContext{IsSuperAdmin: true}

	assert.Empty(t, updateForbidden(orgAdmin, UpdateRequest{OrganizationID: &adminOrg}))
	assert.Empty(t, updateForbidden(super, UpdateRequest{ClearOrg: true}))
	assert.Empty(t, updateForbidden(super, UpdateRequest{OrganizationID: &otherOrg}))

	assert.NotEmpty(t, updateForbidden(orgAdmin, UpdateRequest{ClearOrg: true}),
		"detaching from an organization is rejected, not silently dropped")
	assert.NotEmpty(t, updateForbidden(orgAdmin, UpdateRequest{OrganizationID: &otherOrg}))
}

package scope

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaville/backend/internal/models"
)

type fakeDirectory struct {
	superAdmins map[uuid.UUID]bool
	allOrgs     []models.Organization
	memberships map[uuid.UUID][]models.OrganizationUser
	orgAdmin    map[string]bool // userID|orgID
	err         error

	mu       sync.Mutex
	refCount int
	block    chan struct{} // when set, UserOrganizations blocks until closed
}

func orgAdminKey(userID, orgID uuid.UUID) string {
	return userID.String() + "|" + orgID.String()
}

func (f *fakeDirectory) IsSuperAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.superAdmins[userID], nil
}

func (f *fakeDirectory) AllOrganizations(context.Context) ([]models.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.allOrgs, nil
}

func (f *fakeDirectory) UserOrganizations(_ context.Context, userID uuid.UUID) ([]models.OrganizationUser, error) {
	f.mu.Lock()
	f.refCount++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.memberships[userID], nil
}

func (f *fakeDirectory) IsOrganizationAdmin(_ context.Context, userID, orgID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.orgAdmin[orgAdminKey(userID, orgID)], nil
}

type fakeStore struct {
	saved   uuid.UUID
	present bool
	saves   int
	clears  int
}

func (s *fakeStore) Load() (uuid.UUID, bool) { return s.saved, s.present }
func (s *fakeStore) Save(id uuid.UUID)       { s.saved, s.present = id, true; s.saves++ }
func (s *fakeStore) Clear()                  { s.present = false; s.clears++ }

func membership(userID uuid.UUID, role string) models.OrganizationUser {
	orgID := uuid.New()
	return models.OrganizationUser{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		IsActive:       true,
		Organization:   &models.Organization{ID: orgID, Name: "org", IsActive: true},
	}
}

func TestRefresh_NoSessionResetsAndClearsStore(t *testing.T) {
	store := &fakeStore{saved: uuid.New(), present: true}
	r := NewResolver(&fakeDirectory{}, store, nil)

	r.Refresh(context.Background(), nil)

	ctx := r.Snapshot()
	assert.Nil(t, ctx.User)
	assert.Empty(t, ctx.Organizations)
	assert.Nil(t, ctx.CurrentOrganization)
	assert.False(t, ctx.IsSuperAdmin)
	assert.False(t, ctx.IsOrganizationAdmin)
	assert.Equal(t, 1, store.clears)
}

func TestRefresh_SuperAdminSeesAllOrganizations(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	dir := &fakeDirectory{
		superAdmins: map[uuid.UUID]bool{user.ID: true},
		allOrgs: []models.Organization{
			{ID: uuid.New(), Name: "a"},
			{ID: uuid.New(), Name: "b"},
			{ID: uuid.New(), Name: "c"},
		},
	}
	r := NewResolver(dir, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	assert.True(t, ctx.IsSuperAdmin)
	assert.Len(t, ctx.Organizations, 3, "all organizations, independent of memberships")
	assert.Nil(t, ctx.CurrentOrganization)
	assert.False(t, ctx.IsOrganizationAdmin, "super admin supersedes org adminship")
}

func TestRefresh_ZeroMemberships(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	r := NewResolver(&fakeDirectory{}, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	assert.Empty(t, ctx.Organizations)
	assert.Nil(t, ctx.CurrentOrganization)
	assert.False(t, ctx.IsOrganizationAdmin)
}

func TestRefresh_SingleMembershipAutoSelected(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m := membership(user.ID, models.OrgRoleAdmin)
	dir := &fakeDirectory{memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m}}}
	r := NewResolver(dir, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	require.NotNil(t, ctx.CurrentOrganization)
	assert.Equal(t, m.OrganizationID, ctx.CurrentOrganization.OrganizationID)
	assert.True(t, ctx.IsOrganizationAdmin)
}

func TestRefresh_MultipleMembershipsOrCombinesAdmin(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m1 := membership(user.ID, models.OrgRoleMember)
	m2 := membership(user.ID, models.OrgRoleAdmin)
	dir := &fakeDirectory{memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m1, m2}}}
	r := NewResolver(dir, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	assert.Nil(t, ctx.CurrentOrganization, "multiple memberships select all-my-organizations")
	assert.True(t, ctx.IsOrganizationAdmin, "admin of any organization counts")
}

func TestRefresh_MemberOnlyNotAdmin(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m1 := membership(user.ID, models.OrgRoleMember)
	m2 := membership(user.ID, models.OrgRoleMember)
	dir := &fakeDirectory{memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m1, m2}}}
	r := NewResolver(dir, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)
	assert.False(t, r.Snapshot().IsOrganizationAdmin)
}

func TestRefresh_DirectoryErrorFailsTowardLeastPrivilege(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	dir := &fakeDirectory{err: errors.New("network down")}
	r := NewResolver(dir, &fakeStore{}, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	assert.False(t, ctx.IsSuperAdmin)
	assert.False(t, ctx.IsOrganizationAdmin)
	assert.Empty(t, ctx.Organizations)
}

func TestRefresh_RestoresSavedSelection(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m1 := membership(user.ID, models.OrgRoleMember)
	m2 := membership(user.ID, models.OrgRoleAdmin)
	dir := &fakeDirectory{
		memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m1, m2}},
		orgAdmin:    map[string]bool{orgAdminKey(user.ID, m2.OrganizationID): true},
	}
	store := &fakeStore{saved: m2.OrganizationID, present: true}
	r := NewResolver(dir, store, nil)

	r.Refresh(context.Background(), user)

	ctx := r.Snapshot()
	require.NotNil(t, ctx.CurrentOrganization)
	assert.Equal(t, m2.OrganizationID, ctx.CurrentOrganization.OrganizationID)
	assert.True(t, ctx.IsOrganizationAdmin, "scoped re-check for the restored organization")
	assert.Zero(t, store.saves, "restore must not re-write the store")
}

func TestRefresh_SavedSelectionUnknownOrgIgnored(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m1 := membership(user.ID, models.OrgRoleMember)
	m2 := membership(user.ID, models.OrgRoleMember)
	dir := &fakeDirectory{memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m1, m2}}}
	store := &fakeStore{saved: uuid.New(), present: true}
	r := NewResolver(dir, store, nil)

	r.Refresh(context.Background(), user)
	assert.Nil(t, r.Snapshot().CurrentOrganization)
}

func TestRefresh_ConcurrentCallIsDropped(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	dir := &fakeDirectory{block: make(chan struct{})}
	r := NewResolver(dir, &fakeStore{}, nil)

	done := make(chan struct{})
	go func() {
		r.Refresh(context.Background(), user)
		close(done)
	}()

	// Wait for the first refresh to reach the blocking membership load.
	for {
		dir.mu.Lock()
		started := dir.refCount > 0
		dir.mu.Unlock()
		if started {
			break
		}
	}

	// This call must return immediately as a no-op, not queue.
	r.Refresh(context.Background(), user)

	dir.mu.Lock()
	assert.Equal(t, 1, dir.refCount, "second refresh must not start")
	dir.mu.Unlock()

	close(dir.block)
	<-done
}

func TestSetCurrentOrganization_PersistsAndRechecks(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	m1 := membership(user.ID, models.OrgRoleAdmin)
	m2 := membership(user.ID, models.OrgRoleMember)
	dir := &fakeDirectory{
		memberships: map[uuid.UUID][]models.OrganizationUser{user.ID: {m1, m2}},
		orgAdmin:    map[string]bool{orgAdminKey(user.ID, m1.OrganizationID): true},
	}
	store := &fakeStore{}
	r := NewResolver(dir, store, nil)
	r.Refresh(context.Background(), user)
	assert.True(t, r.Snapshot().IsOrganizationAdmin, "OR-combined before selection")

	// Selecting the member-role org overrides the OR-combined flag with a
	// precise scoped answer.
	r.SetCurrentOrganization(context.Background(), &m2)
	assert.False(t, r.Snapshot().IsOrganizationAdmin)
	assert.Equal(t, m2.OrganizationID, store.saved)

	r.SetCurrentOrganization(context.Background(), &m1)
	assert.True(t, r.Snapshot().IsOrganizationAdmin)

	r.SetCurrentOrganization(context.Background(), nil)
	assert.Nil(t, r.Snapshot().CurrentOrganization)
	assert.Equal(t, 1, store.clears)
}

func TestSubscribe_NotifiedOnChange(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	r := NewResolver(&fakeDirectory{}, &fakeStore{}, nil)

	var got []UserContext
	unsub := r.Subscribe(func(c UserContext) { got = append(got, c) })

	r.Refresh(context.Background(), user)
	require.Len(t, got, 1)
	assert.Equal(t, user.ID, got[0].User.ID)

	unsub()
	r.Refresh(context.Background(), nil)
	assert.Len(t, got, 1, "unsubscribed callbacks are not invoked")
}

func TestEventFilter_Scopes(t *testing.T) {
	userID := uuid.New()
	m1 := membership(userID, models.OrgRoleMember)
	m2 := membership(userID, models.OrgRoleMember)

	single := UserContext{CurrentOrganization: &m1, Organizations: []models.OrganizationUser{m1, m2}}
	f := single.EventFilter()
	require.NotNil(t, f.OrganizationID)
	assert.Equal(t, m1.OrganizationID, *f.OrganizationID)
	assert.False(t, f.IncludeGlobal, "single-org filter excludes global events")

	super := UserContext{IsSuperAdmin: true}
	assert.True(t, super.EventFilter().All)

	union := UserContext{Organizations: []models.OrganizationUser{m1, m2}}
	f = union.EventFilter()
	assert.Equal(t, []uuid.UUID{m1.OrganizationID, m2.OrganizationID}, f.OrganizationIDs)
	assert.True(t, f.IncludeGlobal)
}

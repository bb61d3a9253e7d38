// Package scope resolves who a user is across organizations: their
// memberships, their effective role (super admin, organization admin,
// member) and the currently selected organization. Every admin view and
// event query derives its visibility from the UserContext built here.
package scope

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/models"
)

// Directory provides the identity lookups the resolver needs. The pgx
// implementation lives in this package; tests substitute fakes.
type Directory interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	// AllOrganizations returns every organization in the system, for super
	// admin scope.
	AllOrganizations(ctx context.Context) ([]models.Organization, error)
	// UserOrganizations returns the user's active memberships with the
	// organization joined in.
	UserOrganizations(ctx context.Context, userID uuid.UUID) ([]models.OrganizationUser, error)
	IsOrganizationAdmin(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
}

// Store persists the selected organization across sessions (a cookie on the
// web client, a fake in tests).
type Store interface {
	Load() (uuid.UUID, bool)
	Save(orgID uuid.UUID)
	Clear()
}

// UserContext is the derived view of an authenticated user.
//
// CurrentOrganization == nil means "all organizations in scope": every
// organization for a super admin, the union of the user's own organizations
// otherwise.
type UserContext struct {
	User                *models.User              `json:"user"`
	Organizations       []models.OrganizationUser `json:"organizations"`
	CurrentOrganization *models.OrganizationUser  `json:"current_organization"`
	IsSuperAdmin        bool                      `json:"is_super_admin"`
	IsOrganizationAdmin bool                      `json:"is_organization_admin"`
}

// Resolver owns the session-scoped user context: single writer, any number
// of readers through Snapshot and subscribers. Construct one per session and
// inject the shared Directory; there is no hidden global.
type Resolver struct {
	dir    Directory
	store  Store
	logger *zap.Logger

	refreshing atomic.Bool

	mu          sync.RWMutex
	ctxState    UserContext
	subscribers map[int]func(UserContext)
	nextSubID   int
}

// NewResolver creates a resolver around a directory and a scope store.
func NewResolver(dir Directory, store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		dir:         dir,
		store:       store,
		logger:      logger,
		subscribers: make(map[int]func(UserContext)),
	}
}

// Snapshot returns a copy of the current user context.
func (r *Resolver) Snapshot() UserContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctxState
}

// Subscribe registers a callback invoked after every state change. The
// returned function unsubscribes.
func (r *Resolver) Subscribe(fn func(UserContext)) func() {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
}

// Refresh re-derives the user context. A nil user means no session: the
// context resets to logged-out and the persisted selection is cleared.
//
// Only one refresh runs at a time. A call arriving while another is in
// flight returns immediately without queueing; the in-flight refresh defines
// the resulting state.
func (r *Resolver) Refresh(ctx context.Context, user *models.User) {
	if !r.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer r.refreshing.Store(false)

	if user == nil {
		r.store.Clear()
		r.setState(UserContext{})
		return
	}

	next := UserContext{User: user}

	isSuper, err := r.dir.IsSuperAdmin(ctx, user.ID)
	if err != nil {
		// Absence of proof of adminship defaults to non-admin.
		r.logger.Warn("super admin check failed", zap.Error(err))
		isSuper = false
	}
	next.IsSuperAdmin = isSuper

	if isSuper {
		orgs, err := r.dir.AllOrganizations(ctx)
		if err != nil {
			r.logger.Warn("load all organizations failed", zap.Error(err))
			orgs = nil
		}
		// Super admins see every organization, not just their own
		// memberships; role supersedes organization adminship.
		for _, o := range orgs {
			org := o
			next.Organizations = append(next.Organizations, models.OrganizationUser{
				OrganizationID: org.ID,
				UserID:         user.ID,
				Organization:   &org,
			})
		}
		next.CurrentOrganization = nil
		next.IsOrganizationAdmin = false
	} else {
		memberships, err := r.dir.UserOrganizations(ctx, user.ID)
		if err != nil {
			r.logger.Warn("load memberships failed", zap.Error(err))
			memberships = nil
		}
		next.Organizations = memberships
		switch len(memberships) {
		case 0:
			next.CurrentOrganization = nil
			next.IsOrganizationAdmin = false
		case 1:
			m := memberships[0]
			next.CurrentOrganization = &m
			next.IsOrganizationAdmin = m.Role == models.OrgRoleAdmin
		default:
			// "All my organizations": admin of any one of them counts until
			// a specific organization is selected.
			next.CurrentOrganization = nil
			for _, m := range memberships {
				if m.Role == models.OrgRoleAdmin {
					next.IsOrganizationAdmin = true
					break
				}
			}
		}
	}

	// Restore a previously saved selection once organizations are known and
	// nothing is selected. No store re-write: it already holds this value.
	if next.CurrentOrganization == nil {
		if savedID, ok := r.store.Load(); ok {
			for i := range next.Organizations {
				if next.Organizations[i].OrganizationID == savedID {
					next.CurrentOrganization = &next.Organizations[i]
					next.IsOrganizationAdmin = r.checkOrgAdmin(ctx, user.ID, savedID)
					break
				}
			}
		}
	}

	r.setState(next)
}

// SetCurrentOrganization switches the active scope and persists it. Passing
// nil selects "all organizations" and clears the persisted value. Membership
// of the target organization is not re-validated here; that is the caller's
// responsibility.
func (r *Resolver) SetCurrentOrganization(ctx context.Context, org *models.OrganizationUser) {
	r.mu.Lock()
	cur := r.ctxState
	cur.CurrentOrganization = org
	user := cur.User
	r.mu.Unlock()

	if org == nil {
		r.store.Clear()
	} else {
		r.store.Save(org.OrganizationID)
	}

	// A concrete selection replaces the OR-combined admin flag with a
	// precise single-organization answer.
	if user != nil && org != nil {
		cur.IsOrganizationAdmin = r.checkOrgAdmin(ctx, user.ID, org.OrganizationID)
	}
	r.setState(cur)
}

func (r *Resolver) checkOrgAdmin(ctx context.Context, userID, orgID uuid.UUID) bool {
	ok, err := r.dir.IsOrganizationAdmin(ctx, userID, orgID)
	if err != nil {
		r.logger.Warn("organization admin check failed",
			zap.String("organization_id", orgID.String()), zap.Error(err))
		return false
	}
	return ok
}

func (r *Resolver) setState(next UserContext) {
	r.mu.Lock()
	r.ctxState = next
	subs := make([]func(UserContext), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
}

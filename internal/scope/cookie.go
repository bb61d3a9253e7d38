package scope

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CookieName is the persisted scope cookie key.
const CookieName = "selectedOrganization"

// cookieMaxAge keeps the selection for 30 days.
const cookieMaxAge = 30 * 24 * 60 * 60

// CookieStore persists the selected organization in a browser cookie so the
// scope survives reloads. One per request.
type CookieStore struct {
	c *gin.Context
}

// NewCookieStore creates a cookie-backed scope store for a request.
func NewCookieStore(c *gin.Context) *CookieStore {
	return &CookieStore{c: c}
}

// Load returns the saved organization id, if a valid one is present.
func (s *CookieStore) Load() (uuid.UUID, bool) {
	v, err := s.c.Cookie(CookieName)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Save writes the organization id cookie with a 30-day expiry.
func (s *CookieStore) Save(orgID uuid.UUID) {
	s.c.SetCookie(CookieName, orgID.String(), cookieMaxAge, "/", "", false, true)
}

// Clear deletes the cookie.
func (s *CookieStore) Clear() {
	s.c.SetCookie(CookieName, "", -1, "/", "", false, true)
}

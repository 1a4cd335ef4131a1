package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/model"
)

// Identity is the authenticated caller as seen by handlers.  The zero value
// is an anonymous visitor.
type Identity struct {
	UserID          uint64
	Role            string
	RetailerGroupID *uint64
}

// Authenticated reports whether a token was presented.
func (i Identity) Authenticated() bool { return i.UserID != 0 }

func (i Identity) IsStaff() bool    { return i.Role == model.RoleStaff }
func (i Identity) IsRetailer() bool { return i.Role == model.RoleRetailer }
func (i Identity) IsCustomer() bool { return i.Role == model.RoleCustomer }

// IdentityFrom reads the identity stored by JWTAuth or OptionalJWT.
func IdentityFrom(c echo.Context) Identity {
	var id Identity
	if v, ok := c.Get(ctxUserID).(uint64); ok {
		id.UserID = v
	}
	if v, ok := c.Get(ctxRole).(string); ok {
		id.Role = v
	}
	if v, ok := c.Get(ctxRetailerGroupID).(*uint64); ok {
		id.RetailerGroupID = v
	}
	return id
}

// SetIdentity stores an identity on the context the way the JWT
// middleware does.  Used by tests and internal callers.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, id.Role)
	c.Set(ctxRetailerGroupID, id.RetailerGroupID)
}

// userKey renders the caller for rate limit and cache keys.
func userKey(c echo.Context) string {
	id := IdentityFrom(c)
	if !id.Authenticated() {
		return "anon"
	}
	return strconv.FormatUint(id.UserID, 10)
}

// roleKey renders the caller's role for cache keys; responses of the
// catalogue differ between staff, retailers and everyone else.
func roleKey(c echo.Context) string {
	id := IdentityFrom(c)
	if id.Role == "" {
		return "public"
	}
	return id.Role
}

// Package identity models the acting identity of a request: the effective
// user plus, when an admin session is impersonating, the actual admin
// behind it. It is passed explicitly to every service call so admin-only
// operations can check the real admin independent of the effective user.
package identity

import "marketplace-service/internal/models"

// ActingIdentity is the resolved identity for one request.
type ActingIdentity struct {
	// User is the effective user all reads and ledger mutations apply to.
	User *models.User
	// ActualAdminID is the admin behind the session. Equal to User.ID for
	// a plain admin session; different when impersonating; zero when the
	// session has no admin at all.
	ActualAdminID int64
	// IsImpersonating is true when an admin is acting as another user.
	IsImpersonating bool
}

// UserID returns the effective user's id.
func (a ActingIdentity) UserID() int64 {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}

// IsAdmin reports whether a real admin backs this request. Impersonating
// an ordinary user does not shed admin privileges for admin-only
// operations, and acting as an admin without an admin session grants none.
func (a ActingIdentity) IsAdmin() bool {
	return a.ActualAdminID != 0
}

// IsBanned reports whether the effective user is banned.
func (a ActingIdentity) IsBanned() bool {
	return a.User != nil && a.User.IsBanned
}

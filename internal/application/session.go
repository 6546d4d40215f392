package application

import (
	"strings"
	"time"
)

// Session is the authenticated operator context passed to every service call.
// It is created by AuthService.Login and destroyed by AuthService.Logout.
type Session struct {
	ID     string
	UserID string
	Email  string
	Roles  []string
	Role   Role
	// RemoteToken is the bearer token issued by the remote API.
	RemoteToken string
	// Token is the opaque local session token handed to the dashboard. It is
	// only populated on the value returned by Login and Refresh.
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Can reports whether the session's primary role is granted capability.
func (s Session) Can(capability Capability) bool {
	return HasPermission(s.Role, capability)
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Revoked reports whether the session was closed by Logout.
func (s Session) Revoked() bool {
	return s.RevokedAt != nil
}

// IsTechnician reports whether the effective role is Tecnico.
func (s Session) IsTechnician() bool {
	return s.Role == RoleTechnician
}

// ownsVisit reports whether the visit is assigned to the session user.
func (s Session) ownsVisit(v Visit) bool {
	return s.UserID != "" && strings.EqualFold(strings.TrimSpace(v.TechnicianID), s.UserID)
}

// Principal is the subset of a session needed for logging and audit.
func (s Session) Principal() Principal {
	return Principal{UserID: s.UserID, Email: s.Email, Role: s.Role}
}

// Principal identifies the operator behind an action.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

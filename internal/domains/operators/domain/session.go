package domain

import "time"

// Role scopes what an operator token may do.
type Role string

const RoleAdmin Role = "admin"

// Session is a server-side record of an issued operator token. Deleting it revokes the token.
type Session struct {
	ID        string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Principal is the authenticated caller behind a request.
type Principal struct {
	SessionID string
	Role      Role
	ExpiresAt time.Time
}

// Token is a signed bearer credential handed to an operator after login.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

package session

import "time"

// CurrentSchemaVersion tags every State record written by this package.
const CurrentSchemaVersion = "1.0"

// Role is the closed set of compendium roles.
type Role string

const (
	RolePlayer     Role = "player"
	RoleGameMaster Role = "game-master"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleGameMaster, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the signed-in identity as issued by the credential verifier.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

// Session is the time-boxed authorization window. Timestamps are Unix
// milliseconds.
type Session struct {
	ExpiresAt   int64  `json:"expiresAt"`
	LastRefresh int64  `json:"lastRefresh"`
	SessionID   string `json:"sessionId"`
}

// Expiry returns ExpiresAt as a time.Time.
func (s Session) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// State is the identifier/version cross-check written alongside each
// activity log entry.
type State struct {
	SessionID string `json:"sessionId"`
	Version   string `json:"version"`
}

// Activity records the most recent authenticated interaction.
type Activity struct {
	LastActivity int64  `json:"lastActivity"`
	SessionStart int64  `json:"sessionStart"`
	SessionID    string `json:"sessionId"`
}

// LastActivityTime returns LastActivity as a time.Time.
func (a Activity) LastActivityTime() time.Time {
	return time.UnixMilli(a.LastActivity)
}

package tomeauth

import (
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/session"
)

type (
	// User is the signed-in user record.
	User = session.User
	// Role is the closed set of compendium roles.
	Role = session.Role
	// Session is the persisted session record.
	Session = session.Session
	// SessionState is the persisted session-state record.
	SessionState = session.State
	// Activity is the persisted activity record.
	Activity = session.Activity
)

const (
	RolePlayer     = session.RolePlayer
	RoleGameMaster = session.RoleGameMaster
	RoleAdmin      = session.RoleAdmin
)

// SchemaVersion is the session-state version written and accepted by this
// package.
const SchemaVersion = session.CurrentSchemaVersion

type (
	// AuditEvent is one audit record.
	AuditEvent = internalaudit.Event
	// AuditSink receives audit events.
	AuditSink = internalaudit.Sink
	// NoOpSink drops audit events.
	NoOpSink = internalaudit.NoOpSink
	// ChannelSink writes audit events into a buffered channel.
	ChannelSink = internalaudit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = internalaudit.JSONWriterSink
	// SlogSink logs audit events through a structured logger.
	SlogSink = internalaudit.SlogSink
)

// Audit event names.
const (
	AuditSignInSuccess        = internalaudit.SignInSuccess
	AuditSignInFailure        = internalaudit.SignInFailure
	AuditSignInRateLimited    = internalaudit.SignInRateLimited
	AuditSignInInvalidFormat  = internalaudit.SignInInvalidFormat
	AuditSignOut              = internalaudit.SignOut
	AuditSessionForcedSignOut = internalaudit.SessionForcedSignOut
	AuditSessionRefreshed     = internalaudit.SessionRefreshed
	AuditSessionRefreshFailed = internalaudit.SessionRefreshFailed
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// HealthStatus reports storage reachability.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Err     error
}

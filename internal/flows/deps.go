package flows

import (
	"context"
	"time"

	"github.com/maantoa/tomeauth/internal/metrics"
	"github.com/maantoa/tomeauth/session"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	SignIn      SignInDeps
	SignOut     SignOutDeps
	CurrentUser CurrentUserDeps
	Validate    ValidateDeps
	Verify      VerifyDeps
	Refresh     RefreshDeps
}

// AuditFunc emits one audit event. metadata is only invoked when the event
// is actually recorded.
type AuditFunc func(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	profile string,
	sessionID string,
	err error,
	metadata func() map[string]string,
)

// Runtime carries the hooks every flow uses.
type Runtime struct {
	ProfileFromContext func(context.Context) string
	Now                func() time.Time
	MetricInc          func(metrics.ID)
	EmitAudit          AuditFunc
	Warn               func(string, ...any)

	// LockProfile and RLockProfile serialize multi-record operations on one
	// profile within the process. Each returns its release func.
	LockProfile  func(profile string) func()
	RLockProfile func(profile string) func()
}

func (r Runtime) withDefaults() Runtime {
	if r.ProfileFromContext == nil {
		r.ProfileFromContext = func(context.Context) string { return "0" }
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.MetricInc == nil {
		r.MetricInc = func(metrics.ID) {}
	}
	if r.EmitAudit == nil {
		r.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
	if r.Warn == nil {
		r.Warn = func(string, ...any) {}
	}
	if r.LockProfile == nil {
		r.LockProfile = func(string) func() { return func() {} }
	}
	if r.RLockProfile == nil {
		r.RLockProfile = func(string) func() { return func() {} }
	}
	return r
}

// SessionStore is the record surface used by flows. *session.Store
// satisfies it.
type SessionStore interface {
	LoadUser(ctx context.Context, profile string) (*session.User, error)
	SaveUser(ctx context.Context, profile string, u session.User) error
	LoadSession(ctx context.Context, profile string) (*session.Session, error)
	SaveSession(ctx context.Context, profile string, s session.Session) error
	UpdateSession(ctx context.Context, profile string, mutate func(*session.Session) error) (*session.Session, error)
	LoadState(ctx context.Context, profile string) (*session.State, error)
	LoadActivity(ctx context.Context, profile string) (*session.Activity, error)
	Clear(ctx context.Context, profile string) error
}

// ActivityLog issues session identifiers. *session.ActivityLog satisfies it.
type ActivityLog interface {
	Log(ctx context.Context, profile string) (session.Activity, error)
	LastActivity(ctx context.Context, profile string) time.Time
}

// RateLimiter throttles sign-in attempts. *rate.Limiter satisfies it.
type RateLimiter interface {
	IsRateLimited(ctx context.Context, profile string) (bool, error)
	RecordFailedAttempt(ctx context.Context, profile string) error
	Clear(ctx context.Context, profile string) error
}

// TryLocker is a non-blocking keyed lock. *locks.Set satisfies it.
type TryLocker interface {
	TryLock(key string) bool
	Unlock(key string)
}

// Sleeper pauses for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production [Sleeper].
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

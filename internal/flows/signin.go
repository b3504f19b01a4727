package flows

import (
	"context"
	"errors"
	"time"

	"github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/internal/metrics"
	"github.com/maantoa/tomeauth/session"
)

// SignInFailureKind classifies sign-in failures for root-level mapping.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureInvalidFormat
	SignInFailureThrottled
	SignInFailureInvalidCredentials
	SignInFailureVerifier
	SignInFailureCanceled
	SignInFailureUnavailable
	SignInFailureNotReady
)

// SignInResult carries either the signed-in user or failure metadata.
type SignInResult struct {
	Failure SignInFailureKind
	Err     error
	User    *session.User
	Session *session.Session
}

// SignInDeps captures sign-in dependencies.
type SignInDeps struct {
	Runtime
	Store    SessionStore
	Activity ActivityLog
	Limiter  RateLimiter

	// ValidateShape rejects syntactically invalid input.
	ValidateShape func(email, password string) error
	// Verify returns the user for a credential pair, or an error matching
	// InvalidCredentials on mismatch.
	Verify             func(ctx context.Context, email, password string) (session.User, error)
	InvalidCredentials error

	Sleep            Sleeper
	SimulatedLatency time.Duration
	SessionDuration  time.Duration
	ObserveLatency   func(time.Duration)
}

// RunSignIn authenticates email and password for the context profile.
//
// The activity log is written first, before any input checks. Throttling is
// decided before the credentials are looked at, so a throttled caller learns
// nothing about them. The profile is held exclusively for the whole attempt.
func RunSignIn(ctx context.Context, email, password string, deps SignInDeps) SignInResult {
	rt := deps.Runtime.withDefaults()
	if deps.Sleep == nil {
		deps.Sleep = SleepContext
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.Verify == nil || deps.ValidateShape == nil || deps.Limiter == nil {
		return SignInResult{Failure: SignInFailureNotReady}
	}

	started := time.Now()
	defer func() { deps.ObserveLatency(time.Since(started)) }()

	profile := rt.ProfileFromContext(ctx)
	// held from the activity write to the session write
	defer rt.LockProfile(profile)()

	meta := func() map[string]string {
		return map[string]string{"email": email}
	}

	activity, err := deps.Activity.Log(ctx, profile)
	if err != nil {
		rt.MetricInc(metrics.StorageError)
		return SignInResult{Failure: SignInFailureUnavailable, Err: err}
	}

	if err := deps.ValidateShape(email, password); err != nil {
		rt.MetricInc(metrics.SignInInvalidFormat)
		rt.EmitAudit(ctx, audit.SignInInvalidFormat, false, "", profile, "", err, nil)
		return SignInResult{Failure: SignInFailureInvalidFormat, Err: err}
	}

	limited, err := deps.Limiter.IsRateLimited(ctx, profile)
	if err != nil {
		rt.MetricInc(metrics.StorageError)
		return SignInResult{Failure: SignInFailureUnavailable, Err: err}
	}
	if limited {
		rt.MetricInc(metrics.SignInRateLimited)
		rt.EmitAudit(ctx, audit.SignInRateLimited, false, "", profile, "", nil, meta)
		return SignInResult{Failure: SignInFailureThrottled}
	}

	if err := deps.Sleep(ctx, deps.SimulatedLatency); err != nil {
		return SignInResult{Failure: SignInFailureCanceled, Err: err}
	}

	user, err := deps.Verify(ctx, email, password)
	password = ""
	if err != nil {
		if deps.InvalidCredentials != nil && !errors.Is(err, deps.InvalidCredentials) {
			rt.Warn("tomeauth: credential verifier failed", "profile", profile, "error", err)
			return SignInResult{Failure: SignInFailureVerifier, Err: err}
		}
		if recErr := deps.Limiter.RecordFailedAttempt(ctx, profile); recErr != nil {
			rt.MetricInc(metrics.StorageError)
			rt.Warn("tomeauth: recording failed sign-in attempt failed", "profile", profile, "error", recErr)
		}
		rt.MetricInc(metrics.SignInFailure)
		rt.EmitAudit(ctx, audit.SignInFailure, false, "", profile, "", err, meta)
		return SignInResult{Failure: SignInFailureInvalidCredentials, Err: err}
	}

	now := rt.Now()
	sess := session.Session{
		ExpiresAt:   now.Add(deps.SessionDuration).UnixMilli(),
		LastRefresh: now.UnixMilli(),
		SessionID:   activity.SessionID,
	}
	if err := deps.Store.SaveUser(ctx, profile, user); err != nil {
		rt.MetricInc(metrics.StorageError)
		return SignInResult{Failure: SignInFailureUnavailable, Err: err}
	}
	if err := deps.Store.SaveSession(ctx, profile, sess); err != nil {
		rt.MetricInc(metrics.StorageError)
		return SignInResult{Failure: SignInFailureUnavailable, Err: err}
	}

	if err := deps.Limiter.Clear(ctx, profile); err != nil {
		rt.MetricInc(metrics.StorageError)
		rt.Warn("tomeauth: clearing rate limit failed", "profile", profile, "error", err)
	}

	rt.MetricInc(metrics.SignInSuccess)
	rt.MetricInc(metrics.SessionCreated)
	rt.EmitAudit(ctx, audit.SignInSuccess, true, user.ID, profile, sess.SessionID, nil, nil)

	return SignInResult{User: &user, Session: &sess}
}

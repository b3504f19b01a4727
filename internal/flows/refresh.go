package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/internal/metrics"
	"github.com/maantoa/tomeauth/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoSession
	RefreshFailureExpired
	RefreshFailureExhausted
	RefreshFailureCanceled
)

// RefreshResult reports the outcome of one refresh.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	// Skipped is set when another refresh for the same user held the lock.
	Skipped  bool
	Attempts int
	Session  *session.Session
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Runtime
	Store           SessionStore
	Locks           TryLocker
	GracePeriod     time.Duration
	SessionDuration time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	Sleep           Sleeper
}

// RefreshLockKey returns the lock key of userID within profile.
func RefreshLockKey(profile, userID string) string {
	return profile + ":" + userID
}

// RunRefresh extends the session of the context profile. At most one refresh
// per profile and user runs at a time; a concurrent caller returns at once
// with Skipped set and touches nothing.
func RunRefresh(ctx context.Context, userID string, deps RefreshDeps) RefreshResult {
	rt := deps.Runtime.withDefaults()
	profile := rt.ProfileFromContext(ctx)
	if deps.Sleep == nil {
		deps.Sleep = SleepContext
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 1
	}

	key := RefreshLockKey(profile, userID)
	if !deps.Locks.TryLock(key) {
		rt.MetricInc(metrics.RefreshSkipped)
		return RefreshResult{Skipped: true}
	}
	defer deps.Locks.Unlock(key)

	current, err := deps.Store.LoadSession(ctx, profile)
	if err != nil {
		return refreshFailed(ctx, rt, profile, userID, "", RefreshResult{Failure: RefreshFailureNoSession, Err: err})
	}

	grace := deps.GracePeriod.Milliseconds()
	if rt.Now().UnixMilli() > current.ExpiresAt+grace {
		return refreshFailed(ctx, rt, profile, userID, current.SessionID, RefreshResult{Failure: RefreshFailureExpired})
	}

	var lastErr error
	for attempt := 1; attempt <= deps.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := deps.Sleep(ctx, deps.RetryDelay); err != nil {
				return refreshFailed(ctx, rt, profile, userID, current.SessionID, RefreshResult{
					Failure:  RefreshFailureCanceled,
					Err:      err,
					Attempts: attempt - 1,
				})
			}
		}

		updated, err := deps.Store.UpdateSession(ctx, profile, func(s *session.Session) error {
			now := rt.Now()
			s.ExpiresAt = now.Add(deps.SessionDuration).UnixMilli()
			s.LastRefresh = now.UnixMilli()
			return nil
		})
		if err == nil {
			rt.MetricInc(metrics.RefreshSuccess)
			rt.EmitAudit(ctx, audit.SessionRefreshed, true, userID, profile, updated.SessionID, nil, func() map[string]string {
				return map[string]string{"attempts": strconv.Itoa(attempt)}
			})
			return RefreshResult{Attempts: attempt, Session: updated}
		}
		if session.IsMissing(err) {
			return refreshFailed(ctx, rt, profile, userID, current.SessionID, RefreshResult{
				Failure:  RefreshFailureNoSession,
				Err:      err,
				Attempts: attempt,
			})
		}

		lastErr = err
		rt.Warn("tomeauth: session refresh attempt failed", "profile", profile, "attempt", attempt, "error", err)
	}

	return refreshFailed(ctx, rt, profile, userID, current.SessionID, RefreshResult{
		Failure:  RefreshFailureExhausted,
		Err:      lastErr,
		Attempts: deps.MaxAttempts,
	})
}

func refreshFailed(ctx context.Context, rt Runtime, profile, userID, sessionID string, res RefreshResult) RefreshResult {
	rt.MetricInc(metrics.RefreshFailure)
	err := res.Err
	if err == nil {
		err = errors.New(refreshFailureReason(res.Failure))
	}
	rt.EmitAudit(ctx, audit.SessionRefreshFailed, false, userID, profile, sessionID, err, func() map[string]string {
		return map[string]string{
			"reason":   refreshFailureReason(res.Failure),
			"attempts": strconv.Itoa(res.Attempts),
		}
	})
	return res
}

func refreshFailureReason(k RefreshFailureKind) string {
	switch k {
	case RefreshFailureNoSession:
		return "no_session"
	case RefreshFailureExpired:
		return "expired"
	case RefreshFailureExhausted:
		return "retries_exhausted"
	case RefreshFailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

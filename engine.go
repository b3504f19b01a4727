package tomeauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maantoa/tomeauth/credentials"
	internalaudit "github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/internal/flows"
	"github.com/maantoa/tomeauth/internal/locks"
	"github.com/maantoa/tomeauth/internal/rate"
	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// Engine runs the session lifecycle of every profile stored in one backend.
// All methods are safe for concurrent use: operations touching several
// records of one profile are serialized within the process. Build one with
// [New].
type Engine struct {
	config   Config
	backend  storage.Store
	store    *session.Store
	activity *session.ActivityLog
	limiter  *rate.Limiter
	locks    *locks.Set
	profiles *locks.RWSet
	verifier credentials.Verifier
	shape    *validator.Validate
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	flow     flows.Service

	bgMu     sync.Mutex
	bgClosed bool
	bg       sync.WaitGroup
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// SignIn authenticates email and password and starts a session for the
// context profile.
//
// It returns [ErrInvalidFormat], [ErrThrottled] or [ErrInvalidCredentials]
// for rejected input, in that order of precedence. A throttled profile is
// refused even with correct credentials.
func (e *Engine) SignIn(ctx context.Context, email, password string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.SignIn(ctx, email, password)
	switch res.Failure {
	case flows.SignInFailureNone:
		return res.User, nil
	case flows.SignInFailureInvalidFormat:
		return nil, res.Err
	case flows.SignInFailureThrottled:
		return nil, ErrThrottled
	case flows.SignInFailureInvalidCredentials:
		return nil, ErrInvalidCredentials
	case flows.SignInFailureVerifier:
		return nil, fmt.Errorf("credential verifier: %w", res.Err)
	case flows.SignInFailureCanceled:
		return nil, res.Err
	case flows.SignInFailureUnavailable:
		return nil, storageError(res.Err)
	default:
		return nil, ErrEngineNotReady
	}
}

// SignOut deletes the session records of the context profile. It is
// idempotent and never fails; storage errors are logged.
func (e *Engine) SignOut(ctx context.Context) {
	if !e.ready() {
		return
	}
	e.flow.SignOut(ctx)
}

// CurrentUser returns the signed-in user of the context profile.
//
// A missing, corrupt, inconsistent or invalid session is signed out and
// reported as [ErrNoSession]; corruption additionally matches
// [ErrStorageCorrupt]. A backend outage returns [ErrStorageUnavailable] and
// leaves the records alone.
func (e *Engine) CurrentUser(ctx context.Context) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.CurrentUser(ctx)
	switch res.Failure {
	case flows.CurrentUserFailureNone:
		return res.User, nil
	case flows.CurrentUserFailureUnavailable:
		return nil, storageError(res.Err)
	default:
		if errors.Is(res.Err, session.ErrCorrupt) {
			return nil, fmt.Errorf("%w: %w", ErrNoSession, ErrStorageCorrupt)
		}
		return nil, ErrNoSession
	}
}

// IsValidSession reports whether sess and state describe a live session of
// the context profile. A session within the refresh threshold of expiry is
// valid and gets refreshed in the background.
func (e *Engine) IsValidSession(ctx context.Context, sess Session, state SessionState) bool {
	if !e.ready() {
		return false
	}

	profile := ProfileFromContext(ctx)
	var userID string
	if u, err := e.store.LoadUser(ctx, profile); err == nil {
		userID = u.ID
	}

	return e.flow.IsValidSession(ctx, flows.ValidateInput{
		Profile: profile,
		UserID:  userID,
		Session: sess,
		State:   state,
	}).Valid()
}

// VerifySession runs every session check and, when they all pass, slides the
// activity window and rotates the session identifier. Any failed check signs
// the profile out.
func (e *Engine) VerifySession(ctx context.Context) bool {
	if !e.ready() {
		return false
	}
	return e.flow.VerifySession(ctx).Valid()
}

// RefreshSession extends the context profile's session by the session
// duration. It returns nil without doing anything while another refresh for
// the same user is running.
func (e *Engine) RefreshSession(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flow.Refresh(ctx, userID)
	return refreshError(res)
}

func refreshError(res flows.RefreshResult) error {
	if res.Skipped {
		return nil
	}
	switch res.Failure {
	case flows.RefreshFailureNone:
		return nil
	case flows.RefreshFailureExpired:
		return ErrSessionExpired
	case flows.RefreshFailureExhausted:
		return fmt.Errorf("%w: %v", ErrRefreshFailed, res.Err)
	case flows.RefreshFailureCanceled:
		return res.Err
	default:
		if errors.Is(res.Err, storage.ErrUnavailable) {
			return storageError(res.Err)
		}
		return ErrNoSession
	}
}

// dispatchRefresh runs a refresh detached from the caller. Close waits for
// every dispatched refresh.
func (e *Engine) dispatchRefresh(ctx context.Context, profile, userID string) {
	e.bgMu.Lock()
	if e.bgClosed {
		e.bgMu.Unlock()
		return
	}
	e.bg.Add(1)
	e.bgMu.Unlock()

	bctx := WithProfile(context.WithoutCancel(ctx), profile)
	go func() {
		defer e.bg.Done()

		if err := refreshError(e.flow.Refresh(bctx, userID)); err != nil {
			e.logger.Warn("tomeauth: background refresh failed", "profile", profile, "user_id", userID, "error", err)
		}
	}()
}

// LastActivity returns the context profile's last recorded interaction, or
// the current time when none is readable.
func (e *Engine) LastActivity(ctx context.Context) time.Time {
	if !e.ready() {
		return time.Time{}
	}
	return e.activity.LastActivity(ctx, ProfileFromContext(ctx))
}

// LoginAttempts returns the failed sign-in attempts counted in the context
// profile's current window.
func (e *Engine) LoginAttempts(ctx context.Context) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.limiter.Attempts(ctx, ProfileFromContext(ctx))
	if err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

// Health pings the storage backend.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if !e.ready() {
		return HealthStatus{Err: ErrEngineNotReady}
	}

	start := time.Now()
	err := storage.Ping(ctx, e.backend)
	status := HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		status.Err = storageError(err)
	}
	return status
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Close waits for background refreshes, then drains the audit dispatcher.
// The storage backend is left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}

	e.bgMu.Lock()
	e.bgClosed = true
	e.bgMu.Unlock()
	e.bg.Wait()

	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all metric values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	case errors.Is(err, session.ErrCorrupt):
		return fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	default:
		return err
	}
}

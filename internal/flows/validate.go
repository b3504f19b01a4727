package flows

import (
	"context"
	"errors"
	"time"

	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// ValidateFailureKind classifies validity-check failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMalformed
	ValidateFailureStateMismatch
	ValidateFailureExpired
	ValidateFailureUnavailable
)

func (k ValidateFailureKind) String() string {
	switch k {
	case ValidateFailureNone:
		return "none"
	case ValidateFailureMalformed:
		return "malformed"
	case ValidateFailureStateMismatch:
		return "state_mismatch"
	case ValidateFailureExpired:
		return "expired"
	case ValidateFailureUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ValidateInput is the candidate session and the state it claims to belong to.
// UserID keys the refresh lock when a refresh is dispatched.
type ValidateInput struct {
	Profile string
	UserID  string
	Session session.Session
	State   session.State
}

// ValidateResult reports the verdict of one validity check.
type ValidateResult struct {
	Failure           ValidateFailureKind
	Err               error
	RefreshDispatched bool
}

// Valid reports whether the check passed.
func (r ValidateResult) Valid() bool {
	return r.Failure == ValidateFailureNone
}

// ValidateDeps captures validity-check dependencies.
type ValidateDeps struct {
	Runtime
	Store            SessionStore
	GracePeriod      time.Duration
	RefreshThreshold time.Duration
	// DispatchRefresh starts a refresh without waiting for it.
	DispatchRefresh func(ctx context.Context, profile, userID string)
}

// RunIsValidSession checks shape, state agreement and hard expiry. A session
// close to expiry is still valid; a background refresh is dispatched for it.
func RunIsValidSession(ctx context.Context, in ValidateInput, deps ValidateDeps) ValidateResult {
	rt := deps.Runtime.withDefaults()

	if in.Session.ExpiresAt <= 0 || in.Session.LastRefresh <= 0 || in.State.SessionID == "" {
		return ValidateResult{Failure: ValidateFailureMalformed}
	}

	persisted, err := deps.Store.LoadState(ctx, in.Profile)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureStateMismatch, Err: err}
	}
	if persisted.SessionID != in.State.SessionID {
		return ValidateResult{Failure: ValidateFailureStateMismatch}
	}

	now := rt.Now().UnixMilli()
	if now > in.Session.ExpiresAt+deps.GracePeriod.Milliseconds() {
		return ValidateResult{Failure: ValidateFailureExpired}
	}

	var dispatched bool
	if in.Session.ExpiresAt-now <= deps.RefreshThreshold.Milliseconds() && deps.DispatchRefresh != nil {
		deps.DispatchRefresh(ctx, in.Profile, in.UserID)
		dispatched = true
	}

	return ValidateResult{RefreshDispatched: dispatched}
}

package flows

import (
	"context"
	"errors"
	"time"

	"github.com/maantoa/tomeauth/internal/metrics"
	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// VerifyFailureKind classifies full-verification failures.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureNoSession
	VerifyFailureInconsistent
	VerifyFailureInvalid
	VerifyFailureInactive
	VerifyFailureSchemaVersion
	VerifyFailureActivityMismatch
	VerifyFailureUnavailable
)

func (k VerifyFailureKind) String() string {
	switch k {
	case VerifyFailureNone:
		return "none"
	case VerifyFailureNoSession:
		return "no_session"
	case VerifyFailureInconsistent:
		return "inconsistent"
	case VerifyFailureInvalid:
		return "invalid"
	case VerifyFailureInactive:
		return "inactive"
	case VerifyFailureSchemaVersion:
		return "schema_version"
	case VerifyFailureActivityMismatch:
		return "activity_mismatch"
	case VerifyFailureUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// VerifyResult reports the outcome of a full verification. On success
// Activity holds the freshly logged triple.
type VerifyResult struct {
	Failure  VerifyFailureKind
	Err      error
	Validate ValidateFailureKind
	Activity session.Activity
}

// Valid reports whether the session survived verification.
func (r VerifyResult) Valid() bool {
	return r.Failure == VerifyFailureNone
}

// VerifyDeps captures full-verification dependencies.
type VerifyDeps struct {
	Runtime
	Store           SessionStore
	Activity        ActivityLog
	Validate        ValidateDeps
	SessionDuration time.Duration
	SchemaVersion   string
}

// RunVerifySession runs every session check and slides the activity window
// when they all pass. Any failure other than a backend outage signs out.
//
// The profile is held exclusively from the first read to the session rewrite,
// so no other operation in the process sees the rotated id half applied.
func RunVerifySession(ctx context.Context, deps VerifyDeps) VerifyResult {
	rt := deps.Runtime.withDefaults()
	profile := rt.ProfileFromContext(ctx)
	defer rt.LockProfile(profile)()

	recs, err := loadRecords(ctx, deps.Store, profile)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return VerifyResult{Failure: VerifyFailureUnavailable, Err: err}
		}
		forceSignOut(ctx, deps.Store, profile, "", "", missingReason(err), rt)
		return VerifyResult{Failure: VerifyFailureNoSession, Err: err}
	}

	fail := func(kind VerifyFailureKind, err error) VerifyResult {
		forceSignOut(ctx, deps.Store, profile, recs.user.ID, recs.session.SessionID, kind.String(), rt)
		return VerifyResult{Failure: kind, Err: err}
	}

	if !recs.consistent() {
		return fail(VerifyFailureInconsistent, nil)
	}

	vr := RunIsValidSession(ctx, ValidateInput{
		Profile: profile,
		UserID:  recs.user.ID,
		Session: *recs.session,
		State:   *recs.state,
	}, deps.Validate)
	switch vr.Failure {
	case ValidateFailureNone:
	case ValidateFailureUnavailable:
		return VerifyResult{Failure: VerifyFailureUnavailable, Err: vr.Err, Validate: vr.Failure}
	default:
		res := fail(VerifyFailureInvalid, vr.Err)
		res.Validate = vr.Failure
		return res
	}

	now := rt.Now().UnixMilli()
	if now-recs.activity.LastActivity > deps.SessionDuration.Milliseconds() {
		return fail(VerifyFailureInactive, nil)
	}
	if recs.state.Version != deps.SchemaVersion {
		return fail(VerifyFailureSchemaVersion, nil)
	}
	if recs.activity.SessionID != recs.state.SessionID {
		return fail(VerifyFailureActivityMismatch, nil)
	}

	// A failed write leaves the records alone; a half-applied rotation is
	// caught by the id cross-check of the next operation.
	activity, err := deps.Activity.Log(ctx, profile)
	if err != nil {
		rt.MetricInc(metrics.StorageError)
		rt.Warn("tomeauth: logging activity failed", "profile", profile, "error", err)
		return VerifyResult{Failure: VerifyFailureUnavailable, Err: err}
	}
	if _, err := deps.Store.UpdateSession(ctx, profile, func(s *session.Session) error {
		s.SessionID = activity.SessionID
		return nil
	}); err != nil {
		rt.MetricInc(metrics.StorageError)
		rt.Warn("tomeauth: rotating session id failed", "profile", profile, "error", err)
		return VerifyResult{Failure: VerifyFailureUnavailable, Err: err}
	}

	rt.MetricInc(metrics.SessionVerified)
	return VerifyResult{Activity: activity}
}

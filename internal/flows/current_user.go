package flows

import (
	"context"
	"errors"

	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// CurrentUserFailureKind classifies current-user failures for root-level mapping.
type CurrentUserFailureKind int

const (
	CurrentUserFailureNone CurrentUserFailureKind = iota
	CurrentUserFailureNoSession
	CurrentUserFailureUnavailable
)

// CurrentUserResult carries either the signed-in user or failure metadata.
type CurrentUserResult struct {
	Failure CurrentUserFailureKind
	Err     error
	User    *session.User
}

// CurrentUserDeps captures current-user dependencies.
type CurrentUserDeps struct {
	Runtime
	Store    SessionStore
	Validate ValidateDeps
}

// RunCurrentUser returns the signed-in user of the context profile. Missing,
// corrupt, inconsistent or invalid sessions are signed out. Backend outages
// are reported without touching the records.
func RunCurrentUser(ctx context.Context, deps CurrentUserDeps) CurrentUserResult {
	rt := deps.Runtime.withDefaults()
	profile := rt.ProfileFromContext(ctx)
	defer rt.RLockProfile(profile)()

	recs, err := loadRecords(ctx, deps.Store, profile)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return CurrentUserResult{Failure: CurrentUserFailureUnavailable, Err: err}
		}
		forceSignOut(ctx, deps.Store, profile, "", "", missingReason(err), rt)
		return CurrentUserResult{Failure: CurrentUserFailureNoSession, Err: err}
	}

	if !recs.consistent() {
		forceSignOut(ctx, deps.Store, profile, recs.user.ID, recs.session.SessionID, "inconsistent", rt)
		return CurrentUserResult{Failure: CurrentUserFailureNoSession}
	}

	res := RunIsValidSession(ctx, ValidateInput{
		Profile: profile,
		UserID:  recs.user.ID,
		Session: *recs.session,
		State:   *recs.state,
	}, deps.Validate)
	switch res.Failure {
	case ValidateFailureNone:
		return CurrentUserResult{User: recs.user}
	case ValidateFailureUnavailable:
		return CurrentUserResult{Failure: CurrentUserFailureUnavailable, Err: res.Err}
	default:
		forceSignOut(ctx, deps.Store, profile, recs.user.ID, recs.session.SessionID, res.Failure.String(), rt)
		return CurrentUserResult{Failure: CurrentUserFailureNoSession, Err: res.Err}
	}
}

func missingReason(err error) string {
	if errors.Is(err, session.ErrCorrupt) {
		return "corrupt_record"
	}
	return "missing_record"
}

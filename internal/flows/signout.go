package flows

import (
	"context"

	"github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/internal/metrics"
)

// SignOutDeps captures sign-out dependencies.
type SignOutDeps struct {
	Runtime
	Store SessionStore
}

// RunSignOut deletes every session record of the context profile. It never
// fails; storage errors are logged.
func RunSignOut(ctx context.Context, deps SignOutDeps) {
	rt := deps.Runtime.withDefaults()
	profile := rt.ProfileFromContext(ctx)
	defer rt.LockProfile(profile)()

	var userID string
	if u, err := deps.Store.LoadUser(ctx, profile); err == nil {
		userID = u.ID
	}

	err := clearRecords(ctx, deps.Store, profile, rt)
	rt.MetricInc(metrics.SignOut)
	rt.EmitAudit(ctx, audit.SignOut, err == nil, userID, profile, "", err, nil)
}

// forceSignOut clears the profile after a failed validity check.
func forceSignOut(ctx context.Context, store SessionStore, profile, userID, sessionID, reason string, rt Runtime) {
	rt.Warn("tomeauth: forcing sign-out", "profile", profile, "reason", reason)

	err := clearRecords(ctx, store, profile, rt)
	rt.MetricInc(metrics.SessionForcedSignOut)
	rt.EmitAudit(ctx, audit.SessionForcedSignOut, false, userID, profile, sessionID, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func clearRecords(ctx context.Context, store SessionStore, profile string, rt Runtime) error {
	if err := store.Clear(ctx, profile); err != nil {
		rt.MetricInc(metrics.StorageError)
		rt.Warn("tomeauth: clearing session records failed", "profile", profile, "error", err)
		return err
	}
	return nil
}

package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

func TestCurrentUserReturnsStoredUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)

	res := RunCurrentUser(ctx, f.currentUserDeps())
	f.wg.Wait()
	if res.Failure != CurrentUserFailureNone {
		t.Fatalf("expected user, got %v (%v)", res.Failure, res.Err)
	}
	if res.User.Email != "arvi@maantoa.ee" || res.User.Role != session.RoleAdmin {
		t.Fatalf("unexpected user %+v", res.User)
	}
}

func TestCurrentUserMissingStateSignsOut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)
	_ = f.backend.Delete(ctx, f.store.StateKey("0"))

	res := RunCurrentUser(ctx, f.currentUserDeps())
	if res.Failure != CurrentUserFailureNoSession || res.User != nil {
		t.Fatalf("expected no session, got %+v", res)
	}
	assertSignedOut(t, f)
}

func TestCurrentUserCorruptRecordSignsOut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)
	_ = f.backend.MemoryStore.Set(ctx, f.store.UserKey("0"), []byte("{not json"))

	res := RunCurrentUser(ctx, f.currentUserDeps())
	if res.Failure != CurrentUserFailureNoSession || !errors.Is(res.Err, session.ErrCorrupt) {
		t.Fatalf("expected corrupt-record sign-out, got %+v", res)
	}
	assertSignedOut(t, f)
}

func TestCurrentUserExpiredSignsOut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)

	f.clock.Advance(61 * time.Minute)
	if res := RunCurrentUser(ctx, f.currentUserDeps()); res.Failure != CurrentUserFailureNoSession {
		t.Fatalf("expected no session, got %v", res.Failure)
	}
	assertSignedOut(t, f)
}

func TestCurrentUserBackendDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)
	f.backend.down.Store(true)

	res := RunCurrentUser(ctx, f.currentUserDeps())
	if res.Failure != CurrentUserFailureUnavailable || !errors.Is(res.Err, storage.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %+v", res)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.signIn(ctx)

	deps := SignOutDeps{Runtime: f.runtime(), Store: f.store}
	RunSignOut(ctx, deps)
	RunSignOut(ctx, deps)
	assertSignedOut(t, f)

	f.backend.down.Store(true)
	RunSignOut(ctx, deps)
}

package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/session"
)

func TestSignInSuccessPersistsSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.signIn(ctx)
	if res.Failure != SignInFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if res.User.Role != session.RoleAdmin {
		t.Fatalf("expected admin role, got %q", res.User.Role)
	}

	sess, err := f.store.LoadSession(ctx, "0")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	state, _ := f.store.LoadState(ctx, "0")
	act, _ := f.store.LoadActivity(ctx, "0")
	if sess.SessionID != state.SessionID || sess.SessionID != act.SessionID {
		t.Fatalf("identifiers disagree: %q %q %q", sess.SessionID, state.SessionID, act.SessionID)
	}

	now := f.clock.Now()
	if sess.ExpiresAt != now.Add(30*time.Minute).UnixMilli() || sess.LastRefresh != now.UnixMilli() {
		t.Fatalf("unexpected session timestamps %+v", sess)
	}
	if len(f.slept) != 1 || f.slept[0] != 500*time.Millisecond {
		t.Fatalf("expected one 500ms simulated delay, got %v", f.slept)
	}
}

func TestSignInInvalidFormatHasNoSessionSideEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := RunSignIn(ctx, "not-an-email", "x", f.signInDeps())
	if res.Failure != SignInFailureInvalidFormat {
		t.Fatalf("expected invalid format, got %v", res.Failure)
	}

	if _, err := f.store.LoadUser(ctx, "0"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("user must not be written, got %v", err)
	}
	if _, err := f.store.LoadSession(ctx, "0"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session must not be written, got %v", err)
	}
	if n, _ := f.limiter.Attempts(ctx, "0"); n != 0 {
		t.Fatalf("format errors must not count as attempts, got %d", n)
	}
	if len(f.slept) != 0 {
		t.Fatalf("format errors must not wait, slept %v", f.slept)
	}
}

func TestSignInThrottledBeforeCredentialCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	verified := 0
	deps := f.signInDeps()
	inner := deps.Verify
	deps.Verify = func(ctx context.Context, email, password string) (session.User, error) {
		verified++
		return inner(ctx, email, password)
	}

	for i := 0; i < 5; i++ {
		res := RunSignIn(ctx, "arvi@maantoa.ee", "wrong", deps)
		if res.Failure != SignInFailureInvalidCredentials {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, res.Failure)
		}
	}

	res := RunSignIn(ctx, "arvi@maantoa.ee", "Admin1234", deps)
	if res.Failure != SignInFailureThrottled {
		t.Fatalf("expected throttled, got %v", res.Failure)
	}
	if verified != 5 {
		t.Fatalf("throttled attempt must not reach the verifier, got %d calls", verified)
	}

	events := f.eventLog()
	if events[len(events)-1] != audit.SignInRateLimited {
		t.Fatalf("expected rate-limited audit event last, got %v", events)
	}
}

func TestSignInSuccessClearsLimiter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = RunSignIn(ctx, "arvi@maantoa.ee", "wrong", f.signInDeps())
	}
	if n, _ := f.limiter.Attempts(ctx, "0"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}

	if res := f.signIn(ctx); res.Failure != SignInFailureNone {
		t.Fatalf("expected success, got %v", res.Failure)
	}
	if n, _ := f.limiter.Attempts(ctx, "0"); n != 0 {
		t.Fatalf("expected limiter cleared, got %d", n)
	}
}

func TestSignInCanceledDuringLatency(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps := f.signInDeps()
	deps.Sleep = SleepContext

	res := RunSignIn(ctx, "arvi@maantoa.ee", "Admin1234", deps)
	if res.Failure != SignInFailureCanceled || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected canceled, got %v (%v)", res.Failure, res.Err)
	}
}

func TestSignInVerifierOutageIsNotCounted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	deps := f.signInDeps()
	boom := errors.New("directory offline")
	deps.Verify = func(context.Context, string, string) (session.User, error) {
		return session.User{}, boom
	}

	res := RunSignIn(ctx, "arvi@maantoa.ee", "Admin1234", deps)
	if res.Failure != SignInFailureVerifier || !errors.Is(res.Err, boom) {
		t.Fatalf("expected verifier failure, got %v (%v)", res.Failure, res.Err)
	}
	if n, _ := f.limiter.Attempts(ctx, "0"); n != 0 {
		t.Fatalf("verifier outage must not count as an attempt, got %d", n)
	}
}

func TestSignInNotReady(t *testing.T) {
	res := RunSignIn(context.Background(), "a@b.c", "x", SignInDeps{})
	if res.Failure != SignInFailureNotReady {
		t.Fatalf("expected not ready, got %v", res.Failure)
	}
}

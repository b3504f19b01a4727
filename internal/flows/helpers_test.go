package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maantoa/tomeauth/internal/locks"
	"github.com/maantoa/tomeauth/internal/rate"
	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

var errBadCredentials = errors.New("bad credentials")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// faultStore wraps a MemoryStore and fails writes to keys containing
// failSetSuffix, and every call once down is set.
type faultStore struct {
	*storage.MemoryStore
	failSetSuffix atomic.Value
	down          atomic.Bool
	sets          sync.Map
	setGate       chan struct{}
}

func newFaultStore() *faultStore {
	f := &faultStore{MemoryStore: storage.NewMemoryStore()}
	f.failSetSuffix.Store("")
	return f
}

func (f *faultStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.down.Load() {
		return nil, storage.ErrUnavailable
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setGate != nil && strings.HasSuffix(key, ":auth_session") {
		<-f.setGate
	}
	n, _ := f.sets.LoadOrStore(key, new(atomic.Int64))
	n.(*atomic.Int64).Add(1)

	if f.down.Load() {
		return storage.ErrUnavailable
	}
	if suffix := f.failSetSuffix.Load().(string); suffix != "" && strings.HasSuffix(key, suffix) {
		return storage.ErrUnavailable
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultStore) Delete(ctx context.Context, keys ...string) error {
	if f.down.Load() {
		return storage.ErrUnavailable
	}
	return f.MemoryStore.Delete(ctx, keys...)
}

func (f *faultStore) setCount(key string) int64 {
	n, ok := f.sets.Load(key)
	if !ok {
		return 0
	}
	return n.(*atomic.Int64).Load()
}

type fixture struct {
	clock    *testClock
	backend  *faultStore
	store    *session.Store
	activity *session.ActivityLog
	limiter  *rate.Limiter
	locks    *locks.Set
	events   []string
	mu       sync.Mutex
	slept    []time.Duration
	wg       sync.WaitGroup
}

func newFixture() *fixture {
	f := &fixture{
		clock:   newTestClock(),
		backend: newFaultStore(),
		locks:   &locks.Set{},
	}
	f.store = session.NewStore(f.backend, "t", session.Keys{})
	f.activity = session.NewActivityLog(f.store, f.clock.Now, nil)
	f.limiter = rate.New(f.store, rate.Config{MaxAttempts: 5, Window: 15 * time.Minute}, f.clock.Now, nil)
	return f
}

func (f *fixture) runtime() Runtime {
	return Runtime{
		Now: f.clock.Now,
		EmitAudit: func(_ context.Context, eventType string, _ bool, _, _, _ string, _ error, _ func() map[string]string) {
			f.mu.Lock()
			f.events = append(f.events, eventType)
			f.mu.Unlock()
		},
	}
}

func (f *fixture) sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	f.slept = append(f.slept, d)
	f.mu.Unlock()
	return nil
}

func (f *fixture) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fixture) refreshDeps() RefreshDeps {
	return RefreshDeps{
		Runtime:         f.runtime(),
		Store:           f.store,
		Locks:           f.locks,
		GracePeriod:     30 * time.Minute,
		SessionDuration: 30 * time.Minute,
		MaxAttempts:     3,
		RetryDelay:      time.Second,
		Sleep:           f.sleep,
	}
}

func (f *fixture) validateDeps() ValidateDeps {
	return ValidateDeps{
		Runtime:          f.runtime(),
		Store:            f.store,
		GracePeriod:      30 * time.Minute,
		RefreshThreshold: 5 * time.Minute,
		DispatchRefresh: func(ctx context.Context, _ string, userID string) {
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				RunRefresh(context.WithoutCancel(ctx), userID, f.refreshDeps())
			}()
		},
	}
}

func (f *fixture) signInDeps() SignInDeps {
	return SignInDeps{
		Runtime:  f.runtime(),
		Store:    f.store,
		Activity: f.activity,
		Limiter:  f.limiter,
		ValidateShape: func(email, password string) error {
			if !strings.Contains(email, "@") || password == "" {
				return errors.New("invalid format")
			}
			return nil
		},
		Verify: func(_ context.Context, email, password string) (session.User, error) {
			if email == "arvi@maantoa.ee" && password == "Admin1234" {
				return session.User{ID: "1", Email: email, Role: session.RoleAdmin, Username: "arvi"}, nil
			}
			return session.User{}, errBadCredentials
		},
		InvalidCredentials: errBadCredentials,
		Sleep:              f.sleep,
		SimulatedLatency:   500 * time.Millisecond,
		SessionDuration:    30 * time.Minute,
	}
}

func (f *fixture) currentUserDeps() CurrentUserDeps {
	return CurrentUserDeps{Runtime: f.runtime(), Store: f.store, Validate: f.validateDeps()}
}

func (f *fixture) verifyDeps() VerifyDeps {
	return VerifyDeps{
		Runtime:         f.runtime(),
		Store:           f.store,
		Activity:        f.activity,
		Validate:        f.validateDeps(),
		SessionDuration: 30 * time.Minute,
		SchemaVersion:   session.CurrentSchemaVersion,
	}
}

func (f *fixture) signIn(ctx context.Context) SignInResult {
	return RunSignIn(ctx, "arvi@maantoa.ee", "Admin1234", f.signInDeps())
}

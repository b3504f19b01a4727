package tomeauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maantoa/tomeauth/storage"
)

const (
	adminEmail  = "arvi@maantoa.ee"
	adminSecret = "Admin1234"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

// faultStore wraps a MemoryStore with injectable failures and a gate on
// session-record writes.
type faultStore struct {
	*storage.MemoryStore

	down          atomic.Bool
	failSetSuffix atomic.Value // string
	setDelay      atomic.Int64 // nanoseconds added to every write

	mu        sync.Mutex
	setCounts map[string]int

	// when non-nil, the first session write signals entered and waits on release
	entered  chan struct{}
	release  chan struct{}
	gateOnce sync.Once
}

func newFaultStore() *faultStore {
	return &faultStore{
		MemoryStore: storage.NewMemoryStore(),
		setCounts:   make(map[string]int),
	}
}

func (f *faultStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.down.Load() {
		return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultStore) Set(ctx context.Context, key string, value []byte) error {
	if f.down.Load() {
		return fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	}
	if suffix, _ := f.failSetSuffix.Load().(string); suffix != "" && strings.HasSuffix(key, suffix) {
		return fmt.Errorf("%w: write rejected", storage.ErrUnavailable)
	}

	f.mu.Lock()
	f.setCounts[key]++
	f.mu.Unlock()

	if d := f.setDelay.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}

	if strings.HasSuffix(key, ":auth_session") && f.entered != nil {
		f.gateOnce.Do(func() {
			close(f.entered)
			<-f.release
		})
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultStore) Delete(ctx context.Context, keys ...string) error {
	if f.down.Load() {
		return fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	}
	return f.MemoryStore.Delete(ctx, keys...)
}

func (f *faultStore) Ping(ctx context.Context) error {
	if f.down.Load() {
		return fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	}
	return nil
}

func (f *faultStore) SetCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCounts[key]
}

func (f *faultStore) ResetCounts() {
	f.mu.Lock()
	f.setCounts = make(map[string]int)
	f.mu.Unlock()
}

func (f *faultStore) has(t *testing.T, key string) bool {
	t.Helper()
	_, err := f.MemoryStore.Get(context.Background(), key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get %s: %v", key, err)
	}
	return err == nil
}

func recordKey(profile, name string) string {
	return "tomeauth:" + profile + ":" + name
}

var sessionRecordNames = []string{"auth_user", "auth_session", "auth_session_state", "auth_activity"}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEngine struct {
	*Engine
	mem   *faultStore
	clock *testClock
	sleep *sleepRecorder
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()
	return newTestEngineOn(t, newFaultStore(), newTestClock(), mutate...)
}

func newTestEngineOn(t *testing.T, store *faultStore, clock *testClock, mutate ...func(*Config)) *testEngine {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	sleep := &sleepRecorder{}
	engine, err := New().
		WithConfig(cfg).
		WithStorage(store).
		WithClock(clock.Now).
		WithSleeper(sleep.Sleep).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, mem: store, clock: clock, sleep: sleep}
}

func (te *testEngine) signInAdmin(t *testing.T, ctx context.Context) *User {
	t.Helper()
	u, err := te.SignIn(ctx, adminEmail, adminSecret)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return u
}

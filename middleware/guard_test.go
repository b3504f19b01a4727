package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maantoa/tomeauth"
	"github.com/maantoa/tomeauth/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, now *time.Time) *tomeauth.Engine {
	t.Helper()

	cfg := tomeauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := tomeauth.New().
		WithConfig(cfg).
		WithStorage(storage.NewMemoryStore()).
		WithClock(func() time.Time { return *now }).
		WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func protected(t *testing.T, h func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Errorf("user missing from context")
			return
		}
		_, _ = io.WriteString(w, u.Username)
	})
	return Profile("X-Profile-ID")(h(inner))
}

func get(h http.Handler, profile string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if profile != "" {
		req.Header.Set("X-Profile-ID", profile)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequireSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	engine := newEngine(t, &now)
	h := protected(t, RequireSession(engine))

	assert.Equal(t, http.StatusUnauthorized, get(h, "p1").Code)

	_, err := engine.SignIn(tomeauth.WithProfile(context.Background(), "p1"), "player@maantoa.ee", "Admin1234")
	require.NoError(t, err)

	w := get(h, "p1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "player", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(h, "p2").Code)
}

func TestRequireVerifiedRejectsIdleSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	engine := newEngine(t, &now)
	h := protected(t, RequireVerified(engine))

	_, err := engine.SignIn(context.Background(), "arvi@maantoa.ee", "Admin1234")
	require.NoError(t, err)

	w := get(h, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "arvi", w.Body.String())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, get(h, "").Code)

	_, err = engine.CurrentUser(context.Background())
	assert.ErrorIs(t, err, tomeauth.ErrNoSession)
}

func TestGuardNilEngine(t *testing.T) {
	h := Guard(nil, ModeSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))
	assert.Equal(t, http.StatusUnauthorized, get(h, "").Code)
}

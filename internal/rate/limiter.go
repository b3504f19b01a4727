package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Record is the persisted rate-limit state. Timestamp is the window start in
// Unix milliseconds.
type Record struct {
	Attempts  int   `json:"attempts"`
	Timestamp int64 `json:"timestamp"`
}

// Limiter throttles sign-in attempts per profile using a single record in
// the session store.
type Limiter struct {
	store  *session.Store
	config Config
	now    func() time.Time
	warn   func(string, ...any)
}

// New creates a rate [Limiter] over store. A nil now defaults to time.Now and
// a nil warn discards messages.
func New(store *session.Store, cfg Config, now func() time.Time, warn func(string, ...any)) *Limiter {
	if now == nil {
		now = time.Now
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Limiter{
		store:  store,
		config: cfg,
		now:    now,
		warn:   warn,
	}
}

// IsRateLimited reports whether profile has exhausted its attempt budget
// within the current window.
func (l *Limiter) IsRateLimited(ctx context.Context, profile string) (bool, error) {
	rec, ok, err := l.load(ctx, profile)
	if err != nil || !ok {
		return false, err
	}
	if l.elapsed(rec) {
		return false, nil
	}
	return rec.Attempts >= l.config.MaxAttempts, nil
}

// RecordFailedAttempt counts one failure. A missing, corrupt or elapsed
// record restarts the window at now.
func (l *Limiter) RecordFailedAttempt(ctx context.Context, profile string) error {
	rec, ok, err := l.load(ctx, profile)
	if err != nil {
		return err
	}

	if !ok || l.elapsed(rec) {
		rec = Record{Attempts: 1, Timestamp: l.now().UnixMilli()}
	} else {
		rec.Attempts++
	}

	data, err := session.Encode(rec)
	if err != nil {
		return err
	}
	if err := l.store.Backend().Set(ctx, l.store.RateLimitKey(profile), data); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Clear removes the record of profile. Called after a successful sign-in.
func (l *Limiter) Clear(ctx context.Context, profile string) error {
	if err := l.store.Backend().Delete(ctx, l.store.RateLimitKey(profile)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count of the current window, or zero when
// there is none.
func (l *Limiter) Attempts(ctx context.Context, profile string) (int, error) {
	rec, ok, err := l.load(ctx, profile)
	if err != nil || !ok {
		return 0, err
	}
	if l.elapsed(rec) || rec.Attempts < 0 {
		return 0, nil
	}
	return rec.Attempts, nil
}

func (l *Limiter) elapsed(rec Record) bool {
	return l.now().UnixMilli()-rec.Timestamp > l.config.Window.Milliseconds()
}

func (l *Limiter) load(ctx context.Context, profile string) (Record, bool, error) {
	key := l.store.RateLimitKey(profile)
	raw, err := l.store.Backend().Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var rec Record
	if err := session.Decode(raw, &rec); err != nil {
		l.warn("tomeauth: discarding corrupt rate limit record", "key", key, "error", err)
		return Record{}, false, nil
	}
	return rec, true, nil
}

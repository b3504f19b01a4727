package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityLog stamps the most recent interaction and issues a fresh session
// identifier on every write.
type ActivityLog struct {
	store *Store
	now   func() time.Time
	newID func() string
	warn  func(string, ...any)
}

// NewActivityLog returns an [ActivityLog] writing through store. A nil now
// defaults to time.Now and a nil warn discards messages.
func NewActivityLog(store *Store, now func() time.Time, warn func(string, ...any)) *ActivityLog {
	if now == nil {
		now = time.Now
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &ActivityLog{
		store: store,
		now:   now,
		newID: uuid.NewString,
		warn:  warn,
	}
}

// Log writes a new activity triple and its derived State, then returns the
// triple so the caller can thread the identifier into the Session record.
func (l *ActivityLog) Log(ctx context.Context, profile string) (Activity, error) {
	now := l.now().UnixMilli()
	a := Activity{
		LastActivity: now,
		SessionStart: now,
		SessionID:    l.newID(),
	}

	if err := l.store.SaveActivity(ctx, profile, a); err != nil {
		return Activity{}, err
	}
	if err := l.store.SaveState(ctx, profile, State{
		SessionID: a.SessionID,
		Version:   CurrentSchemaVersion,
	}); err != nil {
		return Activity{}, err
	}

	return a, nil
}

// LastActivity returns the persisted last-activity time. Missing or corrupt
// data fails open to the current time.
func (l *ActivityLog) LastActivity(ctx context.Context, profile string) time.Time {
	a, err := l.store.LoadActivity(ctx, profile)
	if err != nil {
		l.warn("tomeauth: activity log unreadable, assuming current time", "profile", normalizeProfile(profile), "error", err)
		return l.now()
	}
	return a.LastActivityTime()
}

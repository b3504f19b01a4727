package session

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestActivityLogWritesTripleAndState(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	log := NewActivityLog(store, func() time.Time { return now }, nil)
	a, err := log.Log(ctx, "")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if a.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if a.LastActivity != now.UnixMilli() || a.SessionStart != now.UnixMilli() {
		t.Fatalf("unexpected timestamps %+v", a)
	}

	persisted, err := store.LoadActivity(ctx, "")
	if err != nil {
		t.Fatalf("load activity: %v", err)
	}
	if *persisted != a {
		t.Fatalf("persisted activity mismatch: %+v vs %+v", persisted, a)
	}

	st, err := store.LoadState(ctx, "")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.SessionID != a.SessionID || st.Version != CurrentSchemaVersion {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestActivityLogIssuesFreshIdentifiers(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	log := NewActivityLog(store, nil, nil)

	first, _ := log.Log(context.Background(), "")
	second, _ := log.Log(context.Background(), "")
	if first.SessionID == second.SessionID {
		t.Fatalf("expected distinct session ids, got %q twice", first.SessionID)
	}
}

func TestLastActivityFailsOpen(t *testing.T) {
	store, mem := newSessionStoreTest(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	var warned []string
	log := NewActivityLog(store, func() time.Time { return now }, func(msg string, _ ...any) {
		warned = append(warned, msg)
	})

	if got := log.LastActivity(ctx, ""); !got.Equal(now) {
		t.Fatalf("missing record: expected now, got %v", got)
	}

	_ = mem.Set(ctx, store.ActivityKey(""), []byte("garbage"))
	if got := log.LastActivity(ctx, ""); !got.Equal(now) {
		t.Fatalf("corrupt record: expected now, got %v", got)
	}
	if len(warned) != 2 || !strings.Contains(warned[0], "activity") {
		t.Fatalf("expected two warnings, got %v", warned)
	}

	past := now.Add(-10 * time.Minute)
	_ = store.SaveActivity(ctx, "", Activity{LastActivity: past.UnixMilli(), SessionStart: past.UnixMilli(), SessionID: "s"})
	if got := log.LastActivity(ctx, ""); !got.Equal(past) {
		t.Fatalf("expected stored time %v, got %v", past, got)
	}
}

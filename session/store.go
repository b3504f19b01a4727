package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/maantoa/tomeauth/storage"
)

// ErrNotFound is returned when a record key holds no value.
var ErrNotFound = storage.ErrNotFound

// Keys names the storage key of each record within a profile namespace.
type Keys struct {
	User      string
	Session   string
	State     string
	Activity  string
	RateLimit string
}

// DefaultKeys returns the key names used by the browser-era client.
func DefaultKeys() Keys {
	return Keys{
		User:      "auth_user",
		Session:   "auth_session",
		State:     "auth_session_state",
		Activity:  "auth_activity",
		RateLimit: "auth_rate_limit",
	}
}

func (k Keys) withDefaults() Keys {
	d := DefaultKeys()
	if k.User == "" {
		k.User = d.User
	}
	if k.Session == "" {
		k.Session = d.Session
	}
	if k.State == "" {
		k.State = d.State
	}
	if k.Activity == "" {
		k.Activity = d.Activity
	}
	if k.RateLimit == "" {
		k.RateLimit = d.RateLimit
	}
	return k
}

// Store is a typed facade over a [storage.Store] that knows the key layout
// and JSON shape of every session record.
type Store struct {
	backend storage.Store
	prefix  string
	keys    Keys

	// serializes read-modify-write of session records within this process
	sessionMu sync.Mutex
}

// NewStore creates a session [Store] over backend. Empty key names fall back
// to [DefaultKeys].
func NewStore(backend storage.Store, prefix string, keys Keys) *Store {
	return &Store{
		backend: backend,
		prefix:  prefix,
		keys:    keys.withDefaults(),
	}
}

// Backend exposes the underlying blob store.
func (s *Store) Backend() storage.Store {
	return s.backend
}

func normalizeProfile(profile string) string {
	if profile == "" {
		return "0"
	}
	return profile
}

// Key returns the fully qualified storage key of name within profile.
func (s *Store) Key(profile, name string) string {
	if s.prefix == "" {
		return normalizeProfile(profile) + ":" + name
	}
	return s.prefix + ":" + normalizeProfile(profile) + ":" + name
}

// RateLimitKey returns the storage key of the rate-limit record.
func (s *Store) RateLimitKey(profile string) string {
	return s.Key(profile, s.keys.RateLimit)
}

// SessionKey returns the storage key of the session record.
func (s *Store) SessionKey(profile string) string {
	return s.Key(profile, s.keys.Session)
}

// StateKey returns the storage key of the session-state record.
func (s *Store) StateKey(profile string) string {
	return s.Key(profile, s.keys.State)
}

// ActivityKey returns the storage key of the activity record.
func (s *Store) ActivityKey(profile string) string {
	return s.Key(profile, s.keys.Activity)
}

// UserKey returns the storage key of the user record.
func (s *Store) UserKey(profile string) string {
	return s.Key(profile, s.keys.User)
}

// LoadUser reads the signed-in user.
func (s *Store) LoadUser(ctx context.Context, profile string) (*User, error) {
	var u User
	if err := s.load(ctx, s.UserKey(profile), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser replaces the signed-in user.
func (s *Store) SaveUser(ctx context.Context, profile string, u User) error {
	return s.save(ctx, s.UserKey(profile), u)
}

// LoadSession reads the session record.
func (s *Store) LoadSession(ctx context.Context, profile string) (*Session, error) {
	var sess Session
	if err := s.load(ctx, s.SessionKey(profile), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SaveSession replaces the session record.
func (s *Store) SaveSession(ctx context.Context, profile string, sess Session) error {
	return s.save(ctx, s.SessionKey(profile), sess)
}

// UpdateSession loads the session record, applies mutate and writes the
// result back. Concurrent updates through the same Store are serialized, so
// one caller's field changes are never lost to another's stale copy.
func (s *Store) UpdateSession(ctx context.Context, profile string, mutate func(*Session) error) (*Session, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	sess, err := s.LoadSession(ctx, profile)
	if err != nil {
		return nil, err
	}
	if err := mutate(sess); err != nil {
		return nil, err
	}
	if err := s.SaveSession(ctx, profile, *sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LoadState reads the session-state record.
func (s *Store) LoadState(ctx context.Context, profile string) (*State, error) {
	var st State
	if err := s.load(ctx, s.StateKey(profile), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveState replaces the session-state record.
func (s *Store) SaveState(ctx context.Context, profile string, st State) error {
	return s.save(ctx, s.StateKey(profile), st)
}

// LoadActivity reads the activity record.
func (s *Store) LoadActivity(ctx context.Context, profile string) (*Activity, error) {
	var a Activity
	if err := s.load(ctx, s.ActivityKey(profile), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveActivity replaces the activity record.
func (s *Store) SaveActivity(ctx context.Context, profile string, a Activity) error {
	return s.save(ctx, s.ActivityKey(profile), a)
}

// Clear deletes the user, session, state and activity records of profile.
// The rate-limit record is left alone: throttling outlives sign-out.
func (s *Store) Clear(ctx context.Context, profile string) error {
	return s.backend.Delete(ctx,
		s.UserKey(profile),
		s.SessionKey(profile),
		s.StateKey(profile),
		s.ActivityKey(profile),
	)
}

func (s *Store) load(ctx context.Context, key string, out any) error {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := Decode(raw, out); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, data)
}

// IsMissing reports whether err means the record is absent or undecodable,
// both of which are treated as "no session" by callers.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt)
}

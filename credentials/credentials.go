// Package credentials checks sign-in credentials against a user directory.
//
// [StaticDirectory] is a fixed development directory sharing one secret
// between all entries. It is a stand-in for a real identity backend and is
// not a security boundary.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/maantoa/tomeauth/password"
	"github.com/maantoa/tomeauth/session"
)

// ErrInvalidCredentials is returned when the email is unknown or the secret
// does not match. The two cases are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("credentials: invalid email or password")

// DefaultSharedSecret is the development secret of [DefaultEntries].
const DefaultSharedSecret = "Admin1234"

// Verifier resolves a credential pair to a user.
type Verifier interface {
	Verify(ctx context.Context, email, secret string) (session.User, error)
}

// VerifierFunc adapts a function to [Verifier].
type VerifierFunc func(ctx context.Context, email, secret string) (session.User, error)

func (f VerifierFunc) Verify(ctx context.Context, email, secret string) (session.User, error) {
	return f(ctx, email, secret)
}

// DefaultEntries returns the development directory.
func DefaultEntries() []session.User {
	return []session.User{
		{ID: "1", Email: "arvi@maantoa.ee", Role: session.RoleAdmin, Username: "arvi"},
		{ID: "2", Email: "gm@maantoa.ee", Role: session.RoleGameMaster, Username: "gamemaster"},
		{ID: "3", Email: "player@maantoa.ee", Role: session.RolePlayer, Username: "player"},
	}
}

// StaticDirectory is an in-memory [Verifier] over a fixed set of users.
type StaticDirectory struct {
	mu         sync.RWMutex
	users      map[string]session.User
	secretHash string
	hasher     password.Hasher
}

// NewStaticDirectory hashes secret with hasher and indexes entries by
// lower-cased email.
func NewStaticDirectory(entries []session.User, secret string, hasher password.Hasher) (*StaticDirectory, error) {
	if hasher == nil {
		return nil, errors.New("credentials: nil hasher")
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("credentials: hash shared secret: %w", err)
	}

	d := &StaticDirectory{
		users:      make(map[string]session.User, len(entries)),
		secretHash: hash,
		hasher:     hasher,
	}
	for _, u := range entries {
		if err := d.Add(u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers u, replacing any entry with the same email.
func (d *StaticDirectory) Add(u session.User) error {
	if u.ID == "" || u.Email == "" {
		return errors.New("credentials: entry needs id and email")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("credentials: entry %s has unknown role %q", u.Email, u.Role)
	}

	d.mu.Lock()
	d.users[normalizeEmail(u.Email)] = u
	d.mu.Unlock()
	return nil
}

// Users returns the entries sorted by id.
func (d *StaticDirectory) Users() []session.User {
	d.mu.RLock()
	out := make([]session.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *StaticDirectory) Verify(ctx context.Context, email, secret string) (session.User, error) {
	if err := ctx.Err(); err != nil {
		return session.User{}, err
	}

	d.mu.RLock()
	u, known := d.users[normalizeEmail(email)]
	d.mu.RUnlock()

	// unknown emails still pay for one hash evaluation
	ok, err := d.hasher.Verify(secret, d.secretHash)
	if err != nil {
		return session.User{}, err
	}
	if !known || !ok {
		return session.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

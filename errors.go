package tomeauth

import (
	"errors"

	"github.com/maantoa/tomeauth/credentials"
)

var (
	// ErrInvalidFormat is returned by SignIn for a malformed email or empty password.
	ErrInvalidFormat = errors.New("invalid email or password format")
	// ErrThrottled is returned by SignIn while the profile is rate limited.
	ErrThrottled = errors.New("too many failed sign-in attempts")
	// ErrInvalidCredentials is returned by SignIn when the credential check fails.
	// Custom verifiers may return it directly.
	ErrInvalidCredentials = credentials.ErrInvalidCredentials
	// ErrStorageCorrupt marks a persisted record that could not be decoded.
	ErrStorageCorrupt = errors.New("session storage corrupt")
	// ErrSessionExpired is returned by RefreshSession past the grace period.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshFailed is returned by RefreshSession once every attempt failed.
	ErrRefreshFailed = errors.New("session refresh failed")
	// ErrNoSession is returned when there is no valid session.
	ErrNoSession = errors.New("no active session")
	// ErrStorageUnavailable wraps storage backend outages.
	ErrStorageUnavailable = errors.New("session storage unavailable")
	// ErrEngineNotReady is returned by methods of an engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)

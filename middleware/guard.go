package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/maantoa/tomeauth"
)

// Mode selects how much checking a guard does per request.
type Mode int

const (
	// ModeSession accepts any session CurrentUser accepts.
	ModeSession Mode = iota
	// ModeVerified additionally runs the inactivity, schema and activity
	// checks and slides the activity window.
	ModeVerified
)

type userContextKey struct{}

// UserFromContext returns the user injected by a guard.
func UserFromContext(ctx context.Context) (*tomeauth.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*tomeauth.User)
	return u, ok
}

// Profile sets the context profile from header. A missing header leaves
// the default profile.
func Profile(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(header); id != "" {
				r = r.WithContext(tomeauth.WithProfile(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Guard(engine *tomeauth.Engine, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if mode == ModeVerified && !engine.VerifySession(ctx) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := engine.CurrentUser(ctx)
			if err != nil {
				if errors.Is(err, tomeauth.ErrStorageUnavailable) {
					http.Error(w, "session storage unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireSession(engine *tomeauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, ModeSession)
}

func RequireVerified(engine *tomeauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, ModeVerified)
}

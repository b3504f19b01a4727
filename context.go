package tomeauth

import "context"

type profileIDContextKey struct{}
type clientIPContextKey struct{}

// DefaultProfile is the profile used when the context carries none.
const DefaultProfile = "0"

// WithProfile attaches a profile identifier to ctx. Each profile has its own
// independent set of session records within one storage backend.
func WithProfile(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDContextKey{}, profileID)
}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ProfileFromContext returns the profile of ctx, or [DefaultProfile].
func ProfileFromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultProfile
	}

	profileID, _ := ctx.Value(profileIDContextKey{}).(string)
	if profileID == "" {
		return DefaultProfile
	}
	return profileID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

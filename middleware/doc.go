// Package middleware exposes net/http adapters that gate handlers on the
// session of the request's profile.
//
// # Guards
//
//   - [Guard] selects the check by [Mode].
//   - [RequireSession] runs the cheap check (Engine.CurrentUser).
//   - [RequireVerified] runs full verification (Engine.VerifySession), which
//     also slides the activity window.
//
// [Profile] copies a request header into the context profile; guards read
// the profile from there.
//
// # What this package must NOT do
//
//   - Touch storage directly. Every decision is delegated to the Engine.
//   - Make authorization decisions beyond pass/reject.
package middleware

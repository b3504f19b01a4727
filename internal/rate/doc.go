// Package rate implements the sign-in attempt limiter.
//
// # Window semantics
//
// One record per profile holds the failed-attempt count and the start of the
// current window. The window starts at the first failure and is not extended
// by later failures. Once it has elapsed the next failure starts a new one.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure (callers record them).
//   - Be imported outside the tomeauth module.
package rate

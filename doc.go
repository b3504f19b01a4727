// Package tomeauth manages the client-side session lifecycle of the compendium
// admin: sign-in with throttling, activity tracking, validity checks with
// background refresh, and sign-out.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. Several engines sharing one storage
// backend and profile behave like several browser tabs over one local store.
//
// # Architecture boundaries
//
// tomeauth is the public surface. It exposes [Engine], [Builder], [Config] and
// the record types. Flow orchestration, rate limiting, locking, audit dispatch
// and metric storage live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose storage clients or record encoding in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports tomeauth.
package tomeauth

// Package session owns the persisted session records and their storage layout.
//
// # Records
//
// Four records make up a live session: the signed-in [User], the [Session]
// (expiry, last refresh, identifier), the [State] cross-check (identifier and
// schema version), and the [Activity] log. Each is a JSON object stored under
// its own key and replaced wholesale on every write.
//
// # Key layout
//
//	<prefix>:<profile>:<name>
//
// The profile plays the role of one browser storage partition. An empty profile
// is normalised to "0".
//
// # What this package must NOT do
//
//   - Decide session validity (the flows package does).
//   - Import tomeauth or internal packages.
package session

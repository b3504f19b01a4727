// Package storage provides the string-keyed blob stores that hold persisted
// session records.
//
// # Contract
//
// A [Store] maps a key to an opaque byte blob. Writes replace the whole blob;
// there are no partial updates and no multi-key transactions. Each key is
// atomic on its own, so callers that need consistency across several keys must
// detect drift themselves (the session package does this with identifier
// cross-checks).
//
// # Backends
//
//   - [MemoryStore]: process-local map, used in tests and for ephemeral servers.
//   - [RedisStore]: go-redis backed, shared between processes.
//   - [FileStore]: single JSON document on disk, survives restarts.
//   - [SQLStore]: gorm backed key/value table.
//
// # What this package must NOT do
//
//   - Interpret blob contents.
//   - Import tomeauth, session, or any internal package.
package storage

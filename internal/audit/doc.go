// Package audit implements async delivery of session lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, profile, session and metadata.
//
// # Architecture boundaries
//
// This package owns event names, buffering and sink delivery. It does NOT decide
// when events are emitted; the flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import tomeauth or any sibling internal package.
package audit

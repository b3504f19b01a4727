// Package internal holds the building blocks behind the tomeauth Engine.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators for every Engine operation
//   - locks: per-key try-locks for single-flight refresh
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window sign-in throttling over the session store
//
// # What this package must NOT do
//
//   - Export types that appear in the public tomeauth API.
//   - Be imported by any package outside the tomeauth module.
package internal

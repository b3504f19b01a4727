// Package flows contains the orchestration of every Engine operation.
//
// Each flow function (RunSignIn, RunCurrentUser, RunVerifySession, etc.)
// accepts a typed dependency struct and returns a result carrying a failure
// kind that the root package maps onto its sentinel errors. The Engine type
// stays thin and each flow can be tested with in-memory dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, activity log, rate
// limiter, credential verifier, audit hook and metrics hook. They do NOT own
// any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tomeauth (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through the dependency structs.
package flows

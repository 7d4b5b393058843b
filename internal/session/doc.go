// Package session is the boundary between callers and a calculator stack.
//
// A Backend exposes exactly four primitives (State, Push, Apply, Clear) and
// behaves identically whatever holds the stack:
//   - Memory: in-process, for tests and ephemeral servers
//   - Durable: local SQLite fallback, one transaction per primitive
//   - Remote: HTTP+JSON client for a running `rpn serve`
//
// Session wraps a Backend with a lifecycle (New ... Close) and the
// single-flight discipline: while a mutating call is outstanding, further
// mutating calls fail fast with ErrBusy instead of interleaving
// read-modify-write cycles on the stack's external representation.
//
// Error classes are never conflated:
//   - *engine.Error means "definitively rejected, stack unchanged"
//   - *TransportError means "unknown outcome" (timeout, connectivity,
//     server failure); a completed remote mutation is not rolled back
package session

// Package store provides SQLite-backed durable storage for calculator sessions.
//
// The store keeps, per session:
//   - Sessions: creation/update time, accepted mutation count, last operation
//   - Stack values: the full ordered stack (pos 0 is the bottom)
//   - Operations: an append-only log of every push/apply/clear attempt,
//     including rejected ones with their error kind
//
// # Atomicity
//
// Every mutation goes through Mutate, which loads the full ordered stack,
// runs the caller's function and rewrites the stack inside one transaction.
// A crash between calls therefore never exposes a partially-applied
// operation, and a rejected operation never touches the stored stack.
//
// # Ordering
//
// The operations log is ordered by seq (AUTOINCREMENT), never by timestamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cascade session deletes to stack values and log
package store

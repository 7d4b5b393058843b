// Package engine implements the RPN stack evaluation core.
//
// Two pieces live here:
//
// Stack Store:
// Stack owns the ordered sequence of finite float64 operands. The top of the
// stack is the last element. Push, Pop, Peek and Clear are the only raw
// mutations; Snapshot is the read-only projection handed to callers.
//
// Operation Engine:
// Engine resolves an operation name (after normalization, see Normalize),
// validates arity and domain preconditions against the stack, computes the
// results and commits them in a single step.
//
// Operand order:
// For binary operations the top of the stack is the second operand b and the
// element beneath it is the first operand a, so "3 4 sub" evaluates 3 - 4.
//
// INVARIANTS:
//   - Every value at rest is finite (no NaN, no ±Inf).
//   - A failed Apply leaves the stack byte-for-byte unchanged.
//   - Division by zero and negative square roots are rejected before any
//     arithmetic happens; non-finite results are rejected before commit.
//
// The engine is synchronous and holds no state between calls other than its
// operation catalog. Serializing access to a Stack is the caller's job.
package engine

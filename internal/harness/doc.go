// Package harness runs conformance scenarios against a session backend.
//
// The same scenario must produce the same trace on every backend, so the
// harness is how the memory, durable and remote variants are held to one
// contract.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: divide_by_zero
//	description: "A failed division leaves both operands in place"
//	setup: [10, 0]
//	steps:
//	  - op: div
//	    expect:
//	      error: DivisionByZero
//	      stack: [10, 0]
//	  - push: 5
//	  - op: add
//	    expect: { stack: [10, 5], size: 2 }
//	  - clear: true
//	  - state: true
//	    expect: { size: 0 }
//	assertions:
//	  - type: final_stack
//	    stack: []
//	  - type: error_count
//	    count: 1
//
// Each step sets exactly one of push, op, clear or state. A step without
// expect may fail with a calculation error; the failure is still traced.
//
// # Assertion Types
//
//   - final_stack: the stack after the last step, bottom-to-top
//   - final_size: the number of values after the last step
//   - error_count: the number of failed steps, optionally of one kind
//
// # Traces
//
// Every step appends one TraceEvent holding the action, its argument, the
// outcome ("ok" or the error kind) and the stack after the step. Error
// messages are left out of the trace since they are not part of the
// cross-backend contract.
package harness

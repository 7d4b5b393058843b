package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind categorizes calculation errors.
//
// Every kind is local and recoverable: the stack remains valid and usable
// after any of them.
type Kind string

const (
	// KindStackUnderflow indicates too few operands for the operation.
	KindStackUnderflow Kind = "StackUnderflow"

	// KindInvalidOperand indicates a non-finite value was pushed.
	KindInvalidOperand Kind = "InvalidOperand"

	// KindDivisionByZero indicates a divisor of exactly zero.
	KindDivisionByZero Kind = "DivisionByZero"

	// KindNegativeSqrt indicates a square root of a negative operand.
	KindNegativeSqrt Kind = "NegativeSqrt"

	// KindComputationOverflow indicates a result that is not finite.
	KindComputationOverflow Kind = "ComputationOverflow"

	// KindUnknownOperation indicates an unrecognized operation name.
	KindUnknownOperation Kind = "UnknownOperation"
)

// Kinds lists every calculation error kind.
var Kinds = []Kind{
	KindStackUnderflow,
	KindInvalidOperand,
	KindDivisionByZero,
	KindNegativeSqrt,
	KindComputationOverflow,
	KindUnknownOperation,
}

// ParseKind converts a wire name back into a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Error is a calculation error with a distinguishable kind.
//
// Error includes structured fields so callers can branch on Kind and
// render Message to users.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op is the operation that failed ("push" for raw pushes).
	Op string

	// Message is a human-readable description.
	Message string

	// Details contains additional context (e.g. required/available operands).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Kind, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is an *Error of the same kind.
// This lets errors.Is(err, ErrDivisionByZero) match any division error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrStackUnderflow      = &Error{Kind: KindStackUnderflow, Message: "not enough operands"}
	ErrInvalidOperand      = &Error{Kind: KindInvalidOperand, Message: "operand is not a finite number"}
	ErrDivisionByZero      = &Error{Kind: KindDivisionByZero, Message: "cannot divide by zero"}
	ErrNegativeSqrt        = &Error{Kind: KindNegativeSqrt, Message: "cannot compute square root of negative number"}
	ErrComputationOverflow = &Error{Kind: KindComputationOverflow, Message: "result is not a finite number"}
	ErrUnknownOperation    = &Error{Kind: KindUnknownOperation, Message: "unknown operation"}
)

// KindOf extracts the Kind from err.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind returns true if err is a calculation error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// NewUnderflowError creates an Error for an operation lacking operands.
func NewUnderflowError(op string, need, have int) *Error {
	noun := "operands"
	if need == 1 {
		noun = "operand"
	}
	return &Error{
		Kind:    KindStackUnderflow,
		Op:      op,
		Message: fmt.Sprintf("operation requires %d %s, but only %d available", need, noun, have),
		Details: map[string]string{
			"required":  strconv.Itoa(need),
			"available": strconv.Itoa(have),
		},
	}
}

// NewInvalidOperandError creates an Error for a non-finite push.
func NewInvalidOperandError(v float64) *Error {
	return &Error{
		Kind:    KindInvalidOperand,
		Op:      "push",
		Message: fmt.Sprintf("value %v is not a finite number", v),
	}
}

// NewDivisionByZeroError creates an Error for a zero divisor.
func NewDivisionByZeroError() *Error {
	return &Error{
		Kind:    KindDivisionByZero,
		Op:      "div",
		Message: "cannot divide by zero",
	}
}

// NewNegativeSqrtError creates an Error for sqrt of a negative operand.
func NewNegativeSqrtError(v float64) *Error {
	return &Error{
		Kind:    KindNegativeSqrt,
		Op:      "sqrt",
		Message: "cannot compute square root of negative number",
		Details: map[string]string{
			"operand": strconv.FormatFloat(v, 'g', -1, 64),
		},
	}
}

// NewOverflowError creates an Error for a non-finite result.
func NewOverflowError(op string) *Error {
	return &Error{
		Kind:    KindComputationOverflow,
		Op:      op,
		Message: "result is not a finite number",
	}
}

// NewUnknownOperationError creates an Error for an unrecognized name.
func NewUnknownOperationError(name string) *Error {
	return &Error{
		Kind:    KindUnknownOperation,
		Op:      name,
		Message: fmt.Sprintf("unknown operation %q", name),
	}
}

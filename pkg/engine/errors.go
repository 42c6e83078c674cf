package engine

import (
	"errors"
	"fmt"

	"github.com/zurustar/templecode/pkg/expr"
)

// ErrorKind represents the category of a runtime fault.
type ErrorKind string

const (
	ErrorParseWarning ErrorKind = "PARSE_WARNING"
	ErrorExpression   ErrorKind = "EXPRESSION_ERROR"
	ErrorDispatch     ErrorKind = "DISPATCH_ERROR"
	ErrorControlFlow  ErrorKind = "CONTROL_FLOW_ERROR"
	ErrorRunaway      ErrorKind = "RUNAWAY_LIMIT"
)

// ErrInputFailed is returned through Outcome.Err when the InputProvider
// cannot deliver a value; the run finishes with StatusError.
var ErrInputFailed = errors.New("input failed")

// RuntimeError is a fault reported for one program line.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Line    int    // 1-based line number, 0 when unknown
	Command string // source text of the failing command
	Err     error  // wrapped cause, e.g. *expr.Error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s at line %d", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the fault ends the run.
func (e *RuntimeError) IsFatal() bool {
	return e.Kind == ErrorRunaway
}

// Display formats the error the way it is shown to the learner.
func (e *RuntimeError) Display() string {
	return fmt.Sprintf("Error at line %d: %s", e.Line, e.Message)
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(kind ErrorKind, message string) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message}
}

// NewParseWarning creates a load-time warning for a line index.
func NewParseWarning(index int, message string) *RuntimeError {
	return &RuntimeError{Kind: ErrorParseWarning, Message: message, Line: index + 1}
}

// NewExpressionError wraps an evaluator failure.
func NewExpressionError(src string, err error) *RuntimeError {
	return &RuntimeError{
		Kind:    ErrorExpression,
		Message: fmt.Sprintf("cannot evaluate %q: %v", src, err),
		Err:     err,
	}
}

// NewDispatchError creates an unknown-command or bad-operand error.
func NewDispatchError(format string, args ...any) *RuntimeError {
	return NewRuntimeError(ErrorDispatch, fmt.Sprintf(format, args...))
}

// NewControlFlowError creates a jump, return or loop error.
func NewControlFlowError(format string, args ...any) *RuntimeError {
	return NewRuntimeError(ErrorControlFlow, fmt.Sprintf(format, args...))
}

// NewRunawayError creates the iteration-ceiling error.
func NewRunawayError(limit int) *RuntimeError {
	return NewRuntimeError(ErrorRunaway, fmt.Sprintf("maximum iterations reached (%d)", limit))
}

// ExpressionKind returns the evaluator error kind wrapped by err, if any.
func ExpressionKind(err error) expr.ErrorKind {
	return expr.KindOf(err)
}

// asRuntimeError converts any error into a *RuntimeError.
func asRuntimeError(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	var ee *expr.Error
	if errors.As(err, &ee) {
		return &RuntimeError{Kind: ErrorExpression, Message: ee.Error(), Err: err}
	}
	return &RuntimeError{Kind: ErrorDispatch, Message: err.Error(), Err: err}
}

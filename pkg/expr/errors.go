package expr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies evaluation failures.
type ErrorKind string

const (
	ErrSyntax          ErrorKind = "SYNTAX"
	ErrUnknownFunction ErrorKind = "UNKNOWN_FUNCTION"
	ErrUndefinedVar    ErrorKind = "UNDEFINED_VARIABLE"
	ErrTypeMismatch    ErrorKind = "TYPE_MISMATCH"
	ErrDivisionByZero  ErrorKind = "DIVISION_BY_ZERO"
	ErrDomain          ErrorKind = "DOMAIN"
	ErrArity           ErrorKind = "ARITY"
)

// Error is a classified expression failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     int // byte offset, -1 when unknown
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at column %d", e.Message, e.Pos+1)
	}
	return e.Message
}

func newError(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// KindOf returns the ErrorKind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Package fault classifies the failures photocraft reports to the user.
package fault

import (
	"errors"
	"fmt"
)

// Kind names a failure class.
type Kind string

const (
	KindDecode   Kind = "decode"
	KindDelivery Kind = "delivery"
	KindTimeout  Kind = "timeout"
	KindCheck    Kind = "check"
	KindInvalid  Kind = "invalid"
	KindConfig   Kind = "config"
	KindUnknown  Kind = "unknown"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap classifies err. An error that is already classified is returned as-is.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// New returns a classified error without a cause.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

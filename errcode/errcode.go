// Package errcode defines the user-correctable failures surfaced by the engine.
// Each failure carries a stable reason code that callers switch on.
package errcode

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable reason.
type Code string

const (
	TooEarly     Code = "TOO_EARLY"
	Expired      Code = "EXPIRED"
	TaskNotFound Code = "TASK_NOT_FOUND"
	Duplicate    Code = "DUPLICATE"
	Forbidden    Code = "FORBIDDEN"
	NotFound     Code = "NOT_FOUND"
	WrongState   Code = "WRONG_STATE"
	AlreadyBound Code = "ALREADY_BOUND"
	Cooldown     Code = "COOLDOWN"
	Invalid      Code = "INVALID"
)

// Error is a validation failure. Two errors match under errors.Is when their codes match,
// so a sentinel can be compared against an instance carrying a more specific message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New builds an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrTooEarly     = New(TooEarly, "check-in window has not opened yet")
	ErrExpired      = New(Expired, "check-in window has closed")
	ErrTaskNotFound = New(TaskNotFound, "task not found")
	ErrDuplicate    = New(Duplicate, "already checked in for this occurrence")
	ErrForbidden    = New(Forbidden, "operator is not a party to this relation")
	ErrNotFound     = New(NotFound, "record not found")
	ErrWrongState   = New(WrongState, "relation is not in a state that allows this transition")
	ErrAlreadyBound = New(AlreadyBound, "a relation between these users already exists or is being processed")
	ErrCooldown     = New(Cooldown, "these users unbound recently")
	ErrInvalid      = New(Invalid, "invalid request")
)

// CodeOf extracts the reason code from err, if it carries one.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

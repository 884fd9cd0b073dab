// Package status defines the error taxonomy shared by the advertising channel
// and the radio stacks behind it.
//
// Radio stacks report numeric, SoftDevice-style result codes. FromCode turns
// those into *Error values that can be matched with errors.Is against the
// package sentinels (ErrInvalidParam, ErrInvalidState, ...).
package status

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of which stack produced it
type Kind string

const (
	Success         Kind = "success"
	InvalidParam    Kind = "invalid_param"
	InvalidLength   Kind = "invalid_length"
	Null            Kind = "null"
	InvalidState    Kind = "invalid_state"
	NotImplemented  Kind = "not_implemented"
	NoMemory        Kind = "no_memory"
	Busy            Kind = "busy"
	HardwareFailure Kind = "hardware_failure"
)

// Code is a stack-native result code. Numbering follows the SoftDevice global
// error range so the simulated stack and real firmware agree.
type Code uint32

const (
	CodeSuccess         Code = 0
	CodeInternal        Code = 3
	CodeNoMem           Code = 4
	CodeNotFound        Code = 5
	CodeNotSupported    Code = 6
	CodeInvalidParam    Code = 7
	CodeInvalidState    Code = 8
	CodeInvalidLength   Code = 9
	CodeInvalidFlags    Code = 10
	CodeInvalidData     Code = 11
	CodeInvalidDataSize Code = 12
	CodeTimeout         Code = 13
	CodeNull            Code = 14
	CodeForbidden       Code = 15
	CodeInvalidAddr     Code = 16
	CodeBusy            Code = 17
)

var codeNames = map[Code]string{
	CodeSuccess:         "no error",
	CodeInternal:        "internal error",
	CodeNoMem:           "no memory for operation",
	CodeNotFound:        "not found",
	CodeNotSupported:    "not supported",
	CodeInvalidParam:    "invalid parameter",
	CodeInvalidState:    "invalid state, operation disallowed in this state",
	CodeInvalidLength:   "invalid length",
	CodeInvalidFlags:    "invalid flags",
	CodeInvalidData:     "invalid data",
	CodeInvalidDataSize: "invalid data size",
	CodeTimeout:         "operation timed out",
	CodeNull:            "null pointer",
	CodeForbidden:       "forbidden operation",
	CodeInvalidAddr:     "bad memory address",
	CodeBusy:            "busy",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("stack error 0x%04X", uint32(c))
}

// Error is a classified failure of a single operation
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "adv_set_configure"
	Code Code   // stack-native code, CodeSuccess when the failure is local
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op == "":
		return string(e.Kind)
	case e.Code == CodeSuccess:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Code)
	}
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per kind
var (
	ErrInvalidParam    = &Error{Kind: InvalidParam}
	ErrInvalidLength   = &Error{Kind: InvalidLength}
	ErrNull            = &Error{Kind: Null}
	ErrInvalidState    = &Error{Kind: InvalidState}
	ErrNotImplemented  = &Error{Kind: NotImplemented}
	ErrNoMemory        = &Error{Kind: NoMemory}
	ErrBusy            = &Error{Kind: Busy}
	ErrHardwareFailure = &Error{Kind: HardwareFailure}
)

// New returns a local (non-stack) failure of the given kind for op
func New(kind Kind, op string) error {
	return &Error{Kind: kind, Op: op}
}

// KindOf maps a stack code onto the taxonomy
func KindOf(code Code) Kind {
	switch code {
	case CodeSuccess:
		return Success
	case CodeInvalidParam, CodeInvalidFlags, CodeInvalidData:
		return InvalidParam
	case CodeInvalidLength, CodeInvalidDataSize:
		return InvalidLength
	case CodeNull:
		return Null
	case CodeInvalidState, CodeForbidden:
		return InvalidState
	case CodeNotSupported:
		return NotImplemented
	case CodeNoMem:
		return NoMemory
	case CodeBusy:
		return Busy
	default:
		return HardwareFailure
	}
}

// FromCode translates the result of a stack call; CodeSuccess yields nil
func FromCode(op string, code Code) error {
	if code == CodeSuccess {
		return nil
	}
	return &Error{Kind: KindOf(code), Op: op, Code: code}
}

// KindFromError extracts the Kind carried by err. A nil error is Success and
// errors outside the taxonomy are HardwareFailure.
func KindFromError(err error) Kind {
	if err == nil {
		return Success
	}
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return HardwareFailure
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindFromError(err) == kind
}

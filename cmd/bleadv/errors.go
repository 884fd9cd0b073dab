package main

import (
	"errors"
	"fmt"

	"github.com/srg/bleadv/internal/payload"
	"github.com/srg/bleadv/internal/status"
)

// Command-level errors
var (
	// ErrRadioUnavailable indicates the host backend could not open a controller
	ErrRadioUnavailable = errors.New("bluetooth controller unavailable")
)

var kindHints = map[status.Kind]string{
	status.InvalidParam:    "a value is out of range",
	status.InvalidLength:   "payload does not fit into the advertisement",
	status.Null:            "a required value is missing",
	status.InvalidState:    "operation not allowed right now",
	status.NotImplemented:  "not supported by this radio",
	status.NoMemory:        "radio has no free advertising set",
	status.Busy:            "radio is owned by another user",
	status.HardwareFailure: "radio reported a failure",
}

// FormatUserError renders err for humans. Status errors get a hint and the
// failing operation, Lua errors their phase and source.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var luaErr *payload.LuaError
	if errors.As(err, &luaErr) {
		return luaErr.Error()
	}

	var stErr *status.Error
	if errors.As(err, &stErr) {
		hint, ok := kindHints[stErr.Kind]
		if !ok {
			return err.Error()
		}
		return fmt.Sprintf("%s: %s (%s)", stErr.Op, hint, stErr.Kind)
	}

	return err.Error()
}

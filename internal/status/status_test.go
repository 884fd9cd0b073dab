package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     Code
		sentinel error
	}{
		{name: "invalid param", code: CodeInvalidParam, sentinel: ErrInvalidParam},
		{name: "invalid flags map to invalid param", code: CodeInvalidFlags, sentinel: ErrInvalidParam},
		{name: "invalid length", code: CodeInvalidLength, sentinel: ErrInvalidLength},
		{name: "invalid data size maps to invalid length", code: CodeInvalidDataSize, sentinel: ErrInvalidLength},
		{name: "null", code: CodeNull, sentinel: ErrNull},
		{name: "invalid state", code: CodeInvalidState, sentinel: ErrInvalidState},
		{name: "forbidden maps to invalid state", code: CodeForbidden, sentinel: ErrInvalidState},
		{name: "not supported", code: CodeNotSupported, sentinel: ErrNotImplemented},
		{name: "no memory", code: CodeNoMem, sentinel: ErrNoMemory},
		{name: "busy", code: CodeBusy, sentinel: ErrBusy},
		{name: "internal", code: CodeInternal, sentinel: ErrHardwareFailure},
		{name: "unknown code", code: Code(0x3001), sentinel: ErrHardwareFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromCode("adv_start", tt.code)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, "adv_start", serr.Op)
			assert.Equal(t, tt.code, serr.Code)
		})
	}

	t.Run("success yields nil", func(t *testing.T) {
		assert.NoError(t, FromCode("adv_start", CodeSuccess))
	})
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "invalid_state", ErrInvalidState.Error())
	assert.Equal(t, "send: invalid_state", New(InvalidState, "send").Error())
	assert.Equal(t, "adv_stop: busy (busy)", FromCode("adv_stop", CodeBusy).Error())
	assert.Equal(t, "adv_stop: hardware_failure (stack error 0x3001)", FromCode("adv_stop", 0x3001).Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestKindFromError(t *testing.T) {
	assert.Equal(t, Success, KindFromError(nil))
	assert.Equal(t, Null, KindFromError(New(Null, "data_set")))
	assert.Equal(t, InvalidLength, KindFromError(fmt.Errorf("wrapped: %w", ErrInvalidLength)))
	assert.Equal(t, HardwareFailure, KindFromError(errors.New("plain")))

	assert.True(t, IsKind(fmt.Errorf("x: %w", ErrBusy), Busy))
	assert.False(t, IsKind(nil, Success))
}

func TestSteps(t *testing.T) {
	t.Run("stops at first failure", func(t *testing.T) {
		// GOAL: Verify the first failing call is reported and later calls are not issued
		//
		// TEST SCENARIO: configure ok → start fails → third step never runs

		var issued []string
		step := func(op string, code Code) Step {
			return Step{Op: op, Run: func() Code {
				issued = append(issued, op)
				return code
			}}
		}

		err := Steps(
			step("configure", CodeSuccess),
			step("start", CodeInvalidState),
			step("tx_power", CodeSuccess),
		)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Contains(t, err.Error(), "start")
		assert.Equal(t, []string{"configure", "start"}, issued, "steps after the failure MUST NOT run")
	})

	t.Run("all succeed", func(t *testing.T) {
		err := Steps(
			Step{Op: "a", Run: func() Code { return CodeSuccess }},
			Step{Op: "skipped"},
			Step{Op: "b", Run: func() Code { return CodeSuccess }},
		)
		assert.NoError(t, err)
	})
}

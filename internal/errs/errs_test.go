package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("pipe broken")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "conn error",
			err:  &ConnError{Err: cause},
			want: "connect transport: pipe broken",
		},
		{
			name: "process error with stderr",
			err:  &ProcessError{ExitCode: 2, Stderr: "fatal: no auth", Err: cause},
			want: "agent process failed (exit 2): fatal: no auth",
		},
		{
			name: "process error without stderr",
			err:  &ProcessError{ExitCode: 1, Err: cause},
			want: "agent process failed (exit 1): pipe broken",
		},
		{
			name: "shape error",
			err:  &ShapeError{Reason: "missing 'model' field", Err: cause},
			want: "malformed message: missing 'model' field",
		},
		{
			name: "json decode error",
			err:  &JSONDecodeError{Line: "garbage", Err: cause},
			want: "decode JSON line: pipe broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestShapeError_CarriesRawObject(t *testing.T) {
	raw := map[string]any{"type": "assistant"}

	err := &ShapeError{Reason: "missing content", Raw: raw}

	var shape *ShapeError
	require.ErrorAs(t, error(err), &shape)
	assert.Equal(t, raw, shape.Raw)
}

func TestSDKError_Marker(t *testing.T) {
	for _, err := range []error{
		&ConnError{},
		&ProcessError{},
		&ShapeError{},
		&JSONDecodeError{},
	} {
		var sdkErr SDKError
		require.ErrorAs(t, err, &sdkErr, "%T", err)
		assert.True(t, sdkErr.SDKError())
	}
}

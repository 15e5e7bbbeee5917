package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

func TestFromWAMError_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{
			name:   "invalid argument",
			err:    &wam.InvalidArgumentError{Field: "volume", Value: "-1", Reason: "out of range"},
			code:   ErrorCodeValidationError,
			status: 400,
		},
		{
			name:   "timeout",
			err:    &wam.TimeoutError{Command: "GetVolume", Addr: "192.168.1.10:55001"},
			code:   ErrorCodeWamTimeout,
			status: 504,
		},
		{
			name:   "unreachable",
			err:    &wam.UnreachableError{Command: "GetVolume", Addr: "192.168.1.10:55001"},
			code:   ErrorCodeWamUnreachable,
			status: 502,
		},
		{
			name:   "protocol",
			err:    &wam.ProtocolError{Command: "SetVolume", Addr: "192.168.1.10:55001", Reason: "result=ng"},
			code:   ErrorCodeWamProtocol,
			status: 502,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := FromWAMError(tc.err)
			require.Equal(t, tc.code, appErr.Code)
			require.Equal(t, tc.status, appErr.StatusCode)
		})
	}
}

func TestFromWAMError_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("refresh speaker: %w",
		&wam.TimeoutError{Command: "GetSpkName", Addr: "192.168.1.11:55001"})

	appErr := FromWAMError(wrapped)
	require.Equal(t, ErrorCodeWamTimeout, appErr.Code)
	require.Equal(t, "GetSpkName", appErr.Details["command"])
}

func TestFromWAMError_UnknownFallsBackToInternal(t *testing.T) {
	appErr := FromWAMError(errors.New("boom"))
	require.Equal(t, ErrorCodeInternalError, appErr.Code)
	require.Equal(t, 500, appErr.StatusCode)
}

func TestEnsureAppError_PassesThroughAppError(t *testing.T) {
	original := NewSpeakerNotFound("aa:bb:cc:dd:ee:01")

	appErr := EnsureAppError(fmt.Errorf("lookup: %w", original))
	require.Same(t, original, appErr)
	require.NotNil(t, appErr.Remediation)
	require.Equal(t, "rescan", appErr.Remediation.Action)
}

func TestStripeErrorBody_TypeByStatus(t *testing.T) {
	require.Equal(t, ErrorTypeInvalidRequest, NewValidationError("bad", nil).StripeErrorBody().Type)
	require.Equal(t, ErrorTypeAPIError, NewInternalError("boom").StripeErrorBody().Type)
	require.Equal(t, "NOT_FOUND", NewNotFoundResource("group", "g-1").StripeErrorBody().Code)
}

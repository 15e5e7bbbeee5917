package apperrors

import (
	"errors"

	"github.com/strefethen/wam-hub-go/internal/wam"
)

// =============================================================================
// Error Codes
// =============================================================================

type ErrorCode string

const (
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeConflict        ErrorCode = "CONFLICT"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeSpeakerNotFound ErrorCode = "SPEAKER_NOT_FOUND"
	ErrorCodeSpeakerOffline  ErrorCode = "SPEAKER_OFFLINE"
	ErrorCodeSpeakerLockHeld ErrorCode = "SPEAKER_LOCK_HELD"
	ErrorCodeWamTimeout      ErrorCode = "WAM_TIMEOUT"
	ErrorCodeWamUnreachable  ErrorCode = "WAM_UNREACHABLE"
	ErrorCodeWamProtocol     ErrorCode = "WAM_PROTOCOL_ERROR"
	ErrorCodeGroupNotFound   ErrorCode = "GROUP_NOT_FOUND"
	ErrorCodeGroupingFailed  ErrorCode = "GROUPING_FAILED"
	ErrorCodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	ErrorCodeInvalidSchedule ErrorCode = "INVALID_SCHEDULE"
)

// Remediation provides guidance on how to fix an error.
type Remediation struct {
	Action     string `json:"action"`
	Endpoint   string `json:"endpoint,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

// =============================================================================
// Stripe API Error Types
// =============================================================================

// ErrorType categorizes errors following Stripe API conventions.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates invalid parameters, missing required fields, etc.
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAPIError indicates an internal API error.
	ErrorTypeAPIError ErrorType = "api_error"
)

// StripeErrorBody is the Stripe-style error payload.
// Format: {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type StripeErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code        ErrorCode
	Message     string
	StatusCode  int
	Details     map[string]any
	Remediation *Remediation
}

func (err *AppError) Error() string {
	return err.Message
}

// StripeErrorBody returns the error in Stripe API format.
func (err *AppError) StripeErrorBody() StripeErrorBody {
	errType := ErrorTypeAPIError
	if err.StatusCode >= 400 && err.StatusCode < 500 {
		errType = ErrorTypeInvalidRequest
	}

	return StripeErrorBody{
		Type:    errType,
		Code:    string(err.Code),
		Message: err.Message,
	}
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any, remediation *Remediation) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		StatusCode:  statusCode,
		Details:     details,
		Remediation: remediation,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400, details, nil)
}

func NewNotFoundError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404, details, nil)
}

func NewNotFoundResource(resource, id string) *AppError {
	message := resource + " not found"
	details := map[string]any{
		"resource": resource,
	}
	if id != "" {
		message = resource + " not found: " + id
		details["id"] = id
	}
	return NewAppError(ErrorCodeNotFound, message, 404, details, nil)
}

func NewConflictError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeConflict, message, 409, details, nil)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500, nil, nil)
}

func NewSpeakerNotFound(id string) *AppError {
	return NewAppError(ErrorCodeSpeakerNotFound, "Speaker not found: "+id, 404, map[string]any{"speaker": id}, &Remediation{
		Action:   "rescan",
		Endpoint: "POST /v1/speakers/rescan",
	})
}

func NewGroupingFailed(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeGroupingFailed, message, 502, details, nil)
}

// FromWAMError translates transport and device errors into HTTP app errors.
// Validation failures map to 400, timeouts to 504, unreachable speakers to
// 502, and device "ng" responses to 502 with the device error code attached.
func FromWAMError(err error) *AppError {
	var invalid *wam.InvalidArgumentError
	if errors.As(err, &invalid) {
		return NewValidationError(invalid.Error(), map[string]any{
			"field": invalid.Field,
			"value": invalid.Value,
		})
	}

	var timeout *wam.TimeoutError
	if errors.As(err, &timeout) {
		return NewAppError(ErrorCodeWamTimeout, timeout.Error(), 504, map[string]any{
			"command": timeout.Command,
			"speaker": timeout.Addr,
		}, nil)
	}

	var unreachable *wam.UnreachableError
	if errors.As(err, &unreachable) {
		return NewAppError(ErrorCodeWamUnreachable, unreachable.Error(), 502, map[string]any{
			"command": unreachable.Command,
			"speaker": unreachable.Addr,
		}, nil)
	}

	var protocol *wam.ProtocolError
	if errors.As(err, &protocol) {
		return NewAppError(ErrorCodeWamProtocol, protocol.Error(), 502, map[string]any{
			"command": protocol.Command,
			"speaker": protocol.Addr,
			"reason":  protocol.Reason,
		}, nil)
	}

	return EnsureAppError(err)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("Internal server error")
}

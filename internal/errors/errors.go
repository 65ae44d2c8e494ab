package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Message keys resolved through the i18n catalogs.
const (
	MsgInvalidInput = "errors.invalid_input"
	MsgTemporary    = "errors.temporary"
	MsgUnavailable  = "errors.unavailable"
	MsgWrongState   = "errors.wrong_state"
	MsgRateLimited  = "errors.rate_limited"
	MsgNotFound     = "errors.not_found"
	MsgGeneric      = "errors.generic"
)

type AppError struct {
	Code       string
	Message    string
	MessageKey string
	Severity   Severity
	Retryable  bool
	// Args are substituted into the localized message.
	Args  []any
	cause error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:       "E100",
		Message:    msg,
		MessageKey: MsgInvalidInput,
		Severity:   SeverityLow,
		Retryable:  false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:       "E200",
		Message:    fmt.Sprintf("Database error: %s", underlyingMsg),
		MessageKey: MsgTemporary,
		Severity:   SeverityHigh,
		Retryable:  true,
		cause:      cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	msg := fmt.Sprintf("External API error: %s", apiName)
	if cause != nil {
		msg += ": " + cause.Error()
	}

	return &AppError{
		Code:       "E300",
		Message:    msg,
		MessageKey: MsgUnavailable,
		Severity:   SeverityMedium,
		Retryable:  true,
		cause:      cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:       "E400",
		Message:    msg,
		MessageKey: MsgWrongState,
		Severity:   SeverityMedium,
		Retryable:  false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:       "E500",
		Message:    fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		MessageKey: MsgRateLimited,
		Severity:   SeverityLow,
		Retryable:  false,
		Args:       []any{"seconds", retryAfter},
	}
}

func NewNotFoundError(what string, cause error) *AppError {
	return &AppError{
		Code:       "E600",
		Message:    fmt.Sprintf("%s not found", what),
		MessageKey: MsgNotFound,
		Severity:   SeverityLow,
		Retryable:  false,
		cause:      cause,
	}
}

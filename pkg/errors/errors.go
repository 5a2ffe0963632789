package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures by how the caller should react to them
type ErrorType string

const (
	ErrorTypeSetup       ErrorType = "setup"
	ErrorTypeNavigation  ErrorType = "navigation"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeMedia       ErrorType = "media"
	ErrorTypeTranslation ErrorType = "translation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Sentinels usable with errors.Is against any *Error of the same type
var (
	ErrSetup    = &Error{Type: ErrorTypeSetup}
	ErrNotFound = &Error{Type: ErrorTypeNotFound}
	ErrTimeout  = &Error{Type: ErrorTypeTimeout}
)

// Error is a typed scraper error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	} else {
		msg = fmt.Sprintf("%s error: %s", e.Type, msg)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Type so that errors.Is(err, ErrNotFound) works for any not-found error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// NewSetupError reports that no usable browser could be started
func NewSetupError(message string, err error) *Error {
	return Wrap(ErrorTypeSetup, message, err)
}

// NewNotFound reports that the target page confirmed the resource does not exist
func NewNotFound(message string) *Error {
	return New(ErrorTypeNotFound, message)
}

// NewTimeout reports that a wait condition was not met in time
func NewTimeout(what string, err error) *Error {
	return Wrap(ErrorTypeTimeout, what, err)
}

// FromStatusCode maps an HTTP status to a typed error
func FromStatusCode(code int, message string) *Error {
	t := ErrorTypeUnknown
	switch {
	case code == http.StatusNotFound:
		t = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code >= 500:
		t = ErrorTypeServerError
	case code == 0:
		t = ErrorTypeNetwork
	}
	return &Error{Type: t, Message: message, Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown for untyped errors
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}

// IsFatal reports whether err must abort the whole scrape.
// Only setup failures qualify; everything else degrades to partial data.
func IsFatal(err error) bool {
	return stderrors.Is(err, ErrSetup)
}

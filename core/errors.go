package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnavailable marks a failure to get a definitive answer from an upstream
// dependency: transport errors, timeouts and 5xx responses. Callers treat it
// as "degraded", never as a rejection.
var ErrUnavailable = errors.New("upstream unavailable")

func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

// APIError is a definitive 4xx rejection from the school API. The portal
// passes its status and detail through to the browser instead of inventing
// its own story.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string // per-field messages, when the API sends them
	RetryAfter int                 // seconds; set on 429 lockout responses
}

func (e *APIError) Error() string {
	return fmt.Sprintf("school API: %d %s", e.StatusCode, e.Detail)
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports one or more request fields that failed validation.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// shutdown is signaled when an integrity issue requires the process to stop.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

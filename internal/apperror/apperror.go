// Package apperror defines the failure kinds surfaced by the search client.
// Every kind is shown to the user the same way, as a single alert carrying
// the failure's message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork     = errors.New("network failure")
	ErrBadResponse = errors.New("bad response")
	ErrParse       = errors.New("parse failure")
	ErrValidation  = errors.New("validation error")
)

// Failure is the single failure type returned across the client boundary
type Failure struct {
	Err     error  // kind sentinel
	Message string // human-readable message
	Status  int    // HTTP status for bad responses, 0 otherwise
	Cause   error  // underlying error, if any
}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Err}
	}
	return []error{f.Err, f.Cause}
}

// Network wraps a transport-level error.
func Network(cause error) *Failure {
	msg := "network error"
	if cause != nil {
		msg = fmt.Sprintf("network error: %v", cause)
	}
	return &Failure{
		Err:     ErrNetwork,
		Message: msg,
		Cause:   cause,
	}
}

// BadResponse reports a non-success status. message is the server's own
// explanation when it sent one.
func BadResponse(status int, message string) *Failure {
	if message == "" {
		message = fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
	}
	return &Failure{
		Err:     ErrBadResponse,
		Message: message,
		Status:  status,
	}
}

// Parse reports a malformed payload.
func Parse(reason string, cause error) *Failure {
	msg := "malformed response: " + reason
	return &Failure{
		Err:     ErrParse,
		Message: msg,
		Cause:   cause,
	}
}

func ValidationFailed(message string) *Failure {
	return &Failure{
		Err:     ErrValidation,
		Message: message,
	}
}

// Message returns the text to show the user for err. It is never empty for a
// non-nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown error"
}

// Kind returns the kind sentinel of err, or nil when err is not a Failure.
func Kind(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f.Err
	}
	return nil
}

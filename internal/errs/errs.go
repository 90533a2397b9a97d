// Package errs defines the error taxonomy surfaced by the tool layer.
package errs

import "fmt"

// ConfigurationError indicates missing or invalid connection credentials.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// Configurationf builds a ConfigurationError from a format string
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError indicates malformed caller input, such as a bad date,
// an unknown recurrence frequency or an out-of-range priority.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates that a calendar index or event UID could not
// be resolved.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotFoundf builds a NotFoundError from a format string
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// TransportError wraps a network or HTTP failure from the CalDAV server,
// including provider rate-limit responses surfaced as timeouts.
type TransportError struct {
	Msg string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError with a context message
func Transport(msg string, err error) error {
	return &TransportError{Msg: msg, Err: err}
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes the sync tool distinguishes
type ErrorType string

const (
	// ErrorTypeTransport is a connection or IO failure while talking to the server
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeQuota is raised only when a bounded retry policy refuses a server-requested wait
	ErrorTypeQuota ErrorType = "quota"
	// ErrorTypeProtocol is an unexpected JSON shape or unrecognized API error message
	ErrorTypeProtocol ErrorType = "protocol"
	// ErrorTypeDownload is a failed download of a single asset
	ErrorTypeDownload ErrorType = "download"
	// ErrorTypeStorage is a failure reading or writing local state
	ErrorTypeStorage ErrorType = "storage"
)

// Error represents a typed failure with an optional HTTP status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given type
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates an Error of the given type around a cause
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// TypeOf returns the type of the first typed Error in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// Is reports whether err carries the given error type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsFatal checks if an error must abort a sync run.
// Download and protocol errors are scoped to one item and recoverable;
// everything else, including untyped errors, is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeDownload, ErrorTypeProtocol:
		return false
	default:
		return true
	}
}

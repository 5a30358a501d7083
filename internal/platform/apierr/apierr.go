package apierr

import (
	"errors"
	"fmt"
)

// Error codes for every failure the services surface. Handlers map these
// onto the HTTP envelope; callers match them with Is/CodeOf.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeEmptyResult        = "EMPTY_RESULT"
	CodeManifestUnreadable = "MANIFEST_UNREADABLE"
	CodeNoTablesFound      = "NO_TABLES_FOUND"
	CodeTableNotFound      = "TABLE_NOT_FOUND"
	CodeExternalToolFailed = "EXTERNAL_TOOL_FAILED"
	CodePublishFailed      = "PUBLISH_FAILED"
	CodePublishTimedOut    = "PUBLISH_TIMED_OUT"
	CodeNoResult           = "NO_RESULT"
	CodeInternal           = "INTERNAL"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Newf builds the wrapped cause from a format string.
func Newf(status int, code string, format string, args ...interface{}) *Error {
	return &Error{Status: status, Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the error code, or CodeInternal for untyped errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return CodeOf(err) == code
}

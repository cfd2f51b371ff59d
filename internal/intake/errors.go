package intake

import (
	"errors"
	"fmt"
)

// Error is a recoverable intake failure. Code is stable and ends up in logs as err_code.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrInvalidInputKind is a wrong content type for the current state.
	ErrInvalidInputKind = &Error{code: "INVALID_INPUT_KIND", msg: "intake: invalid input kind"}
	// ErrUnexpectedGroupedInput is a media group where a single item was required.
	ErrUnexpectedGroupedInput = &Error{code: "UNEXPECTED_GROUPED_INPUT", msg: "intake: unexpected grouped input"}
	// ErrNoActiveSession is input received before the begin command.
	ErrNoActiveSession = &Error{code: "NO_ACTIVE_SESSION", msg: "intake: no active session"}
	// ErrDownloadFailure is surfaced by the download collaborator.
	ErrDownloadFailure = &Error{code: "DOWNLOAD_FAILURE", msg: "intake: photo download failed"}
	// ErrWriteFailure is surfaced by the record writer.
	ErrWriteFailure = &Error{code: "WRITE_FAILURE", msg: "intake: record write failed"}
)

// collaboratorError keeps the intake sentinel and the underlying cause reachable via errors.Is.
type collaboratorError struct {
	kind  *Error
	cause error
}

func (e *collaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind.msg, e.cause)
}

func (e *collaboratorError) Code() string { return e.kind.code }

func (e *collaboratorError) Unwrap() []error { return []error{e.kind, e.cause} }

// DownloadFailure wraps a download collaborator error.
func DownloadFailure(cause error) error {
	return &collaboratorError{kind: ErrDownloadFailure, cause: cause}
}

// WriteFailure wraps a record writer error.
func WriteFailure(cause error) error {
	return &collaboratorError{kind: ErrWriteFailure, cause: cause}
}

// Code returns the intake error code carried by err, or "" when there is none.
func Code(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.code
	}
	return ""
}

// Package xerrors defines the error taxonomy shared by every layer of the
// download engine, from the resolver down to the CLI and the FFI boundary.
// It lives under internal so that both the public facade package and the
// engine/stream/sink/probe/catalog packages can return and compare the same
// concrete type without an import cycle back to the facade.
package xerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. The core never converts a Code
// implicitly; retry and escalation decisions read it directly.
type Code int

// The taxonomy from the spec, verbatim.
const (
	CodeUnknown Code = iota
	CodeSourceNotFound
	CodeNetwork
	CodeHTTPStatus
	CodeRangeNotSupported
	CodeServerIgnoredRange
	CodeIO
	CodeCancelled
	CodeOverwriteRefused
	CodeIntegrityViolation
)

func (c Code) String() string {
	switch c {
	case CodeSourceNotFound:
		return "SourceNotFound"
	case CodeNetwork:
		return "Network"
	case CodeHTTPStatus:
		return "HttpStatus"
	case CodeRangeNotSupported:
		return "RangeNotSupported"
	case CodeServerIgnoredRange:
		return "ServerIgnoredRange"
	case CodeIO:
		return "Io"
	case CodeCancelled:
		return "Cancelled"
	case CodeOverwriteRefused:
		return "OverwriteRefused"
	case CodeIntegrityViolation:
		return "IntegrityViolation"
	default:
		return "Unknown"
	}
}

// Error is the single concrete error type returned anywhere in the core.
// Fields not relevant to a given Code are left zero.
type Error struct {
	Code Code

	// Input/Suggestion populate CodeSourceNotFound.
	Input      string
	Suggestion string

	// Transient populates CodeNetwork: true means retry-eligible.
	Transient bool

	// StatusCode populates CodeHTTPStatus.
	StatusCode int

	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeSourceNotFound:
		if e.Suggestion != "" {
			return fmt.Sprintf("source %q not found, did you mean %q?", e.Input, e.Suggestion)
		}
		return fmt.Sprintf("source %q not found", e.Input)
	case CodeNetwork:
		if e.Transient {
			return fmt.Sprintf("transient network error: %v", e.Cause)
		}
		return fmt.Sprintf("network error: %v", e.Cause)
	case CodeHTTPStatus:
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	case CodeRangeNotSupported:
		return "server does not support byte-range requests"
	case CodeServerIgnoredRange:
		return "server silently ignored a range request"
	case CodeIO:
		return fmt.Sprintf("i/o error: %v", e.Cause)
	case CodeCancelled:
		return "transfer cancelled"
	case CodeOverwriteRefused:
		return fmt.Sprintf("destination %q exists and overwrite was refused", e.Input)
	case CodeIntegrityViolation:
		return fmt.Sprintf("integrity check failed: %v", e.Cause)
	default:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return "unknown error"
	}
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, xerrors.RangeNotSupported) etc. work by Code alone,
// ignoring the other fields, which are typically set differently per-site.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel values for errors.Is comparisons against Codes that carry no
// meaningful payload.
var (
	RangeNotSupported  = &Error{Code: CodeRangeNotSupported}
	ServerIgnoredRange = &Error{Code: CodeServerIgnoredRange}
	Cancelled          = &Error{Code: CodeCancelled}
	OverwriteRefused   = &Error{Code: CodeOverwriteRefused}
)

// SourceNotFound constructs the resolver's failure mode, with an optional
// fuzzy-matched suggestion (empty string means none).
func SourceNotFound(input, suggestion string) *Error {
	return &Error{Code: CodeSourceNotFound, Input: input, Suggestion: suggestion}
}

// Network wraps a transport-level failure, tagged transient or permanent.
func Network(transient bool, cause error) *Error {
	return &Error{Code: CodeNetwork, Transient: transient, Cause: cause}
}

// HTTPStatus wraps an unexpected status code. Callers should treat 5xx as
// transient and 4xx (except 416 at EOF) as permanent before constructing this.
func HTTPStatus(code int) *Error {
	return &Error{Code: CodeHTTPStatus, StatusCode: code}
}

// IO wraps a sink or filesystem failure.
func IO(cause error) *Error {
	return &Error{Code: CodeIO, Cause: cause}
}

// OverwriteRefusedFor builds the OverwriteRefused error for a specific path.
func OverwriteRefusedFor(path string) *Error {
	return &Error{Code: CodeOverwriteRefused, Input: path}
}

// IntegrityViolation wraps a size/checksum mismatch after a transfer completes.
func IntegrityViolation(cause error) *Error {
	return &Error{Code: CodeIntegrityViolation, Cause: cause}
}

// IsTransient reports whether err is a retry-eligible Network or 5xx HttpStatus error.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Code == CodeNetwork {
		return e.Transient
	}
	if e.Code == CodeHTTPStatus {
		return e.StatusCode >= 500 && e.StatusCode < 600
	}
	return false
}

// AsError is a convenience wrapper over errors.As for this package's type.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsCode reports whether err is (or wraps) an *Error with the given Code.
func IsCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

package osmdl

import "github.com/cognusion/go-osmdl/internal/xerrors"

// Error is the single error type returned anywhere in this package. Code
// identifies the failure class; callers that care about retrying or
// rendering a specific message should inspect Code via errors.As, not
// string-match Error().
type Error = xerrors.Error

// Code identifies a class of failure, per spec §7's taxonomy.
type Code = xerrors.Code

// The taxonomy, re-exported from the internal error package so callers
// never need to import it directly.
const (
	CodeUnknown            = xerrors.CodeUnknown
	CodeSourceNotFound     = xerrors.CodeSourceNotFound
	CodeNetwork            = xerrors.CodeNetwork
	CodeHTTPStatus         = xerrors.CodeHTTPStatus
	CodeRangeNotSupported  = xerrors.CodeRangeNotSupported
	CodeServerIgnoredRange = xerrors.CodeServerIgnoredRange
	CodeIO                 = xerrors.CodeIO
	CodeCancelled          = xerrors.CodeCancelled
	CodeOverwriteRefused   = xerrors.CodeOverwriteRefused
	CodeIntegrityViolation = xerrors.CodeIntegrityViolation
)

// Sentinel errors usable with errors.Is for Codes that carry no payload.
var (
	ErrRangeNotSupported  = xerrors.RangeNotSupported
	ErrServerIgnoredRange = xerrors.ServerIgnoredRange
	ErrCancelled          = xerrors.Cancelled
	ErrOverwriteRefused   = xerrors.OverwriteRefused
)

// AsError extracts the underlying *Error from err, if any.
func AsError(err error) (*Error, bool) {
	return xerrors.AsError(err)
}

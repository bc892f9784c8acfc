package store

import (
	"github.com/cockroachdb/errors"
)

// The store's error taxonomy (spec §7) is exactly two kinds: Internal
// (retryable, non-semantic) and InvalidState (not retryable, a semantic
// violation of the model). Both are plain Go errors that can be tested for
// with errors.Is against the two markers below, regardless of how deep the
// wrapped cause is — callers should never type-switch on a concrete type.
//
// NotFound is intentionally absent from this taxonomy: lookups that may
// legitimately come back empty (get_context) return it via an ok bool /
// nil pointer, never an error (spec §7).
var (
	// ErrInternal marks backend I/O errors, serialization aborts, integer
	// overflow, or any other non-semantic failure. Safe to retry.
	ErrInternal = errors.New("internal error")
	// ErrInvalidState marks a semantic violation of the model: missing
	// context, both contexts present, event/role mismatch, double
	// execution, or an illegal message for the role. Not safe to retry.
	ErrInvalidState = errors.New("invalid state")
)

// Internal wraps cause as a non-semantic, retryable failure. cause may be
// nil (e.g. a representational limit with no underlying error to wrap);
// errors.Wrapf returns nil for a nil cause, so that case builds a plain
// errors.Newf instead to keep Internal(nil, ...) a non-nil error.
func Internal(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Mark(errors.Newf(format, args...), ErrInternal)
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrInternal)
}

// InvalidState builds a semantic violation of the model. Messages always
// include service_id and epoch where relevant, per §7's propagation policy.
func InvalidState(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidState)
}

// IsInternal reports whether err (at any wrap depth) is an Internal error.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// IsInvalidState reports whether err (at any wrap depth) is an InvalidState error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

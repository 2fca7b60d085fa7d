package common

import (
	"github.com/cockroachdb/errors"
)

// ErrFatal and ErrContractViolation are attached with errors.Mark. Match them with errors.Is from
// github.com/cockroachdb/errors or with IsFatal: the standard library errors.Is does not see marks.

// ErrFatal marks failures the renderer cannot recover from: device loss, or failure to
// create a core GPU object such as a buffer, image, pipeline or binding table.
var ErrFatal = errors.New("fatal renderer error")

// ErrContractViolation marks programming errors on the caller's side: exceeding a fixed
// capacity, requesting too many shadow partitions, or referencing an unknown id.
var ErrContractViolation = errors.New("renderer contract violation")

// Fatalf creates a new error marked as ErrFatal.
//
// Parameters:
//   - format: printf-style format string
//   - args: format arguments
//
// Returns:
//   - error: the marked error
func Fatalf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrFatal)
}

// WrapFatal wraps err with a message and marks it as ErrFatal. Returns nil when err is nil.
//
// Parameters:
//   - err: the underlying error
//   - msg: context for the failure
//
// Returns:
//   - error: the wrapped and marked error
func WrapFatal(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrFatal)
}

// Contractf creates a new error marked as ErrContractViolation.
//
// Parameters:
//   - format: printf-style format string
//   - args: format arguments
//
// Returns:
//   - error: the marked error
func Contractf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrContractViolation)
}

// IsFatal reports whether err should end the frame loop.
// Contract violations are treated as fatal since they indicate a caller bug.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrContractViolation)
}

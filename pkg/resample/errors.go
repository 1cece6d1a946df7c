package resample

import "errors"

// Validation failures surfaced by the resampling pipeline. All are fatal
// to the current transform invocation; none are retried. Errors are
// wrapped with the offending value so callers can diagnose without
// re-running.
var (
	// ErrInvalidTarget reports a target value that is not a number,
	// triple, image name, path or volume.
	ErrInvalidTarget = errors.New("invalid resampling target")

	// ErrInvalidSpacing reports a spacing that is not a positive number
	// or a triple of positive numbers.
	ErrInvalidSpacing = errors.New("invalid spacing")

	// ErrInvalidInterpolation reports an unrecognized interpolation name.
	ErrInvalidInterpolation = errors.New("invalid interpolation")

	// ErrInvalidAffineKey reports an unusable affine correction key.
	ErrInvalidAffineKey = errors.New("invalid affine key")

	// ErrInvalidAffineMatrix reports an affine correction that is not a
	// 4x4 matrix.
	ErrInvalidAffineMatrix = errors.New("invalid affine matrix")

	// ErrAffineKeyNotFound reports an affine correction key absent from
	// every image in the subject.
	ErrAffineKeyNotFound = errors.New("affine key not found")

	// ErrReferenceNotFound reports a named reference image missing from
	// the subject being transformed.
	ErrReferenceNotFound = errors.New("reference image not found")

	// ErrDimensionMismatch reports a floating volume and reference grid
	// of different dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrGridOverflow reports an output grid too large to index. The
	// size computation refuses to truncate silently.
	ErrGridOverflow = errors.New("output grid size overflow")
)

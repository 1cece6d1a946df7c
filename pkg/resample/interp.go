package resample

import (
	"fmt"
	"strings"

	"resample3d/internal/models"
)

// Interpolation names a resampling kernel.
type Interpolation int

const (
	// Nearest copies the closest voxel value. The only kernel allowed
	// for categorical volumes.
	Nearest Interpolation = iota

	// Linear blends the 8 surrounding voxels. The default for
	// continuous volumes.
	Linear

	// BSpline uses a cubic kernel over a 4x4x4 neighborhood.
	BSpline
)

// String returns the canonical kernel name.
func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	case BSpline:
		return "bspline"
	}
	return fmt.Sprintf("interpolation(%d)", int(i))
}

// ParseInterpolation maps a kernel name to an Interpolation. Validation
// happens once at transform construction, not per image.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(name) {
	case "nearest":
		return Nearest, nil
	case "linear":
		return Linear, nil
	case "bspline", "cubic":
		return BSpline, nil
	}
	return 0, fmt.Errorf("%w: %q (supported: nearest, linear, bspline)", ErrInvalidInterpolation, name)
}

// SelectInterpolation picks the kernel for one volume. Categorical
// volumes are never blended: they resample with Nearest regardless of
// the requested kernel, or are skipped entirely when scalarsOnly is set
// (ok is false and the volume must be left untouched).
func SelectInterpolation(v *models.Volume, requested Interpolation, scalarsOnly bool) (interp Interpolation, ok bool) {
	if v.Kind == models.Categorical {
		if scalarsOnly {
			return 0, false
		}
		return Nearest, true
	}
	return requested, true
}

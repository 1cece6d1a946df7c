package resample

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"resample3d/internal/models"
)

// CheckAffine validates the correction matrix stored on a volume under
// the given key, if any. A missing key is not an error; a present key
// must hold a 4x4 matrix.
func CheckAffine(name string, v *models.Volume) error {
	if name == "" {
		return fmt.Errorf("%w: affine name must be a non-empty string", ErrInvalidAffineKey)
	}
	m, ok := v.Aux[name]
	if !ok {
		return nil
	}
	if m == nil {
		return fmt.Errorf("%w: matrix under %q is nil", ErrInvalidAffineMatrix, name)
	}
	if r, c := m.Dims(); r != 4 || c != 4 {
		return fmt.Errorf("%w: matrix under %q must be 4x4, not %dx%d", ErrInvalidAffineMatrix, name, r, c)
	}
	return nil
}

// CheckAffineKeyPresence verifies that at least one image in the bundle
// carries a correction matrix under the given key. This runs once per
// subject, before any image is mutated.
func CheckAffineKeyPresence(name string, b Bundle) error {
	for _, img := range b.Images() {
		if _, ok := img.Volume.Aux[name]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: an affine name was given (%q), but it was not found in any image in the subject", ErrAffineKeyNotFound, name)
}

// ComposeAffine left-multiplies the correction stored on the volume
// under the given key into the volume's affine, applying the correction
// in world space after the image's existing embedding. Volumes without
// the key are left unchanged. The stored correction itself is never
// mutated.
func ComposeAffine(name string, v *models.Volume) error {
	if err := CheckAffine(name, v); err != nil {
		return err
	}
	m, ok := v.Aux[name]
	if !ok {
		return nil
	}
	var out mat.Dense
	out.Mul(m, v.Affine)
	v.Affine = &out
	return nil
}

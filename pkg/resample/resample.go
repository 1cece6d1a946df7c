// Package resample changes the voxel spacing of 3D volumes by
// resampling them onto a new sampling grid. The target grid can be given
// as an explicit spacing, a reference volume, a file to load one from,
// or the name of a sibling image in the same subject.
package resample

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"resample3d/internal/models"
)

// NamedImage pairs a bundle key with its volume.
type NamedImage struct {
	Key    string
	Volume *models.Volume
}

// Bundle is the container of named images a transform operates on.
// Images returns the images in stored order; Get looks one up by key.
type Bundle interface {
	Images() []NamedImage
	Get(key string) (*models.Volume, bool)
}

// Kernel is the external resample capability: evaluate a floating
// volume on a reference grid with the given interpolation. Kernels must
// be deterministic and must preserve the floating volume's voxel values
// exactly wherever sample points coincide with source voxel centers.
type Kernel interface {
	Resample(floating *models.Volume, ref GridGeometry, interp Interpolation) ([]float64, *mat.Dense, error)
}

// Params configures a resampling transform.
type Params struct {
	// Target is the resampling target: a positive number (isotropic
	// spacing), a triple of positive numbers, the name of a sibling
	// image, the path of a volume file, or a *models.Volume.
	Target any

	// Interpolation is the kernel name for continuous volumes:
	// "nearest", "linear" (default) or "bspline".
	Interpolation string

	// PreAffineName, when non-empty, names a per-image auxiliary matrix
	// that is left-multiplied into the image's affine before
	// resampling.
	PreAffineName string

	// ScalarsOnly skips categorical volumes instead of resampling them
	// with the nearest kernel.
	ScalarsOnly bool

	// Loader loads reference volumes from disk. Required only when
	// Target is a file path.
	Loader Loader

	// Kernel performs the actual resampling. Required.
	Kernel Kernel
}

// Transform resamples every image of a subject bundle onto a common
// reference grid. All validation of the target and interpolation happens
// in New; a constructed Transform is read-only and safe to apply to
// independent bundles concurrently.
type Transform struct {
	target        *Target
	interp        Interpolation
	preAffineName string
	scalarsOnly   bool
	kernel        Kernel
}

// New resolves the target and interpolation once and returns the
// transform.
func New(params *Params) (*Transform, error) {
	if params.Kernel == nil {
		return nil, fmt.Errorf("resample: no kernel provided")
	}
	target, err := ResolveTarget(params.Target, params.Loader)
	if err != nil {
		return nil, err
	}
	name := params.Interpolation
	if name == "" {
		name = "linear"
	}
	interp, err := ParseInterpolation(name)
	if err != nil {
		return nil, err
	}
	return &Transform{
		target:        target,
		interp:        interp,
		preAffineName: params.PreAffineName,
		scalarsOnly:   params.ScalarsOnly,
		kernel:        params.Kernel,
	}, nil
}

// Target returns the resolved target descriptor.
func (t *Transform) Target() *Target { return t.target }

// Apply resamples the bundle's images in place, sequentially and in
// stored order. Each image either completes the full
// geometry/affine/interpolation pipeline and is overwritten, or the
// transform fails before that image is mutated. Images already
// resampled earlier in the same bundle are not rolled back on failure;
// callers needing all-or-nothing semantics must snapshot beforehand.
func (t *Transform) Apply(b Bundle) error {
	if t.preAffineName != "" {
		if err := CheckAffineKeyPresence(t.preAffineName, b); err != nil {
			return err
		}
	}
	for _, img := range b.Images() {
		v := img.Volume

		// Never resample the reference volume onto itself.
		if t.target.Reference != nil && v == t.target.Reference {
			continue
		}

		interp, ok := SelectInterpolation(v, t.interp, t.scalarsOnly)
		if !ok {
			continue
		}

		if t.preAffineName != "" {
			if err := ComposeAffine(t.preAffineName, v); err != nil {
				return fmt.Errorf("image %q: %w", img.Key, err)
			}
		}

		ref, err := t.referenceGrid(b, v)
		if err != nil {
			return fmt.Errorf("image %q: %w", img.Key, err)
		}

		if v.Dims() != ref.Dims() {
			return fmt.Errorf("%w: image %q is %dD but the reference grid is %dD",
				ErrDimensionMismatch, img.Key, v.Dims(), ref.Dims())
		}

		data, affine, err := t.kernel.Resample(v, ref, interp)
		if err != nil {
			return fmt.Errorf("resampling image %q: %w", img.Key, err)
		}
		v.Data = data
		v.Shape = ref.Size
		v.Affine = affine
	}
	return nil
}

// referenceGrid resolves the grid a floating volume is resampled onto.
// Named references are looked up in the current bundle, so different
// subjects may resolve the same name to different geometries. Fixed
// references yield one grid for every image; spacing targets derive a
// grid from each image's own geometry.
func (t *Transform) referenceGrid(b Bundle, floating *models.Volume) (GridGeometry, error) {
	switch t.target.Kind {
	case NamedReference:
		ref, ok := b.Get(t.target.Name)
		if !ok {
			return GridGeometry{}, fmt.Errorf("%w: reference name %q not found in subject", ErrReferenceNotFound, t.target.Name)
		}
		return GridFromVolume(ref), nil
	case PathReference, InMemoryReference:
		return GridFromVolume(t.target.Reference), nil
	default:
		return BuildGrid(floating, t.target.Spacing)
	}
}

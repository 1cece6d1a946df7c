package resample

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"resample3d/internal/models"
)

// maxGridAxis bounds the voxel count on any output axis. The size
// computation reports overflow instead of truncating.
const maxGridAxis = math.MaxUint32

// GridGeometry fully determines a resampling target grid: the number of
// voxels along each axis, their physical size, the world coordinates of
// the first voxel's center, and the axis directions.
type GridGeometry struct {
	Size      [3]int
	Spacing   [3]float64
	Origin    [3]float64
	Direction *mat.Dense // 3x3 orthonormal
}

// Dims returns the number of axes with at least one voxel.
func (g GridGeometry) Dims() int {
	d := 0
	for _, n := range g.Size {
		if n > 0 {
			d++
		}
	}
	return d
}

// Affine assembles the grid's index-to-world matrix from its direction,
// spacing and origin.
func (g GridGeometry) Affine() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, g.Direction.At(i, j)*g.Spacing[j])
		}
		m.Set(i, 3, g.Origin[i])
	}
	m.Set(3, 3, 1)
	return m
}

// GridFromVolume returns the geometry a volume currently samples.
func GridFromVolume(v *models.Volume) GridGeometry {
	return GridGeometry{
		Size:      v.Shape,
		Spacing:   v.Spacing(),
		Origin:    v.Origin(),
		Direction: v.Direction(),
	}
}

// BuildGrid derives the output grid for resampling a volume at a new
// spacing. The size is rounded up so the new grid covers the full
// physical extent of the old one, and the origin is shifted by half the
// spacing ratio so voxel centers stay aligned with the original volume
// rather than anchored at its corner. Axes one voxel thick stay one
// voxel thick regardless of the spacing ratio, so pseudo-2D volumes
// survive resampling. The direction matrix is unchanged.
//
// This is a pure geometry function: extreme spacing ratios are accepted
// as long as the resulting size is indexable, and resource limits are
// the caller's concern.
func BuildGrid(v *models.Volume, spacing [3]float64) (GridGeometry, error) {
	oldSpacing := v.Spacing()
	var size [3]int
	var shift [3]float64
	for i := 0; i < 3; i++ {
		if v.Shape[i] == 1 {
			size[i] = 1
		} else {
			n := math.Ceil(float64(v.Shape[i]) * oldSpacing[i] / spacing[i])
			if n > maxGridAxis {
				return GridGeometry{}, fmt.Errorf("%w: axis %d would need %.0f voxels", ErrGridOverflow, i, n)
			}
			size[i] = int(n)
		}
		// Continuous index of the new grid's first voxel center in the
		// old grid's index space.
		shift[i] = 0.5 * (spacing[i]/oldSpacing[i] - 1)
	}
	return GridGeometry{
		Size:      size,
		Spacing:   spacing,
		Origin:    v.IndexToWorld(shift),
		Direction: v.Direction(),
	}, nil
}

// GaussianSigma returns the standard deviation of the Gaussian smoothing
// kernel matching the point spread function of a downsampling by the
// given factor, in world units.
//
// From Cardoso et al., "Scale factor point spread function matching:
// beyond aliasing in image resampling", MICCAI 2015.
func GaussianSigma(downsamplingFactor, spacing float64) float64 {
	k := downsamplingFactor
	fwhm := 2 * math.Sqrt(2*math.Log(2))
	variance := (k*k - 1) / (fwhm * fwhm)
	return spacing * math.Sqrt(variance)
}

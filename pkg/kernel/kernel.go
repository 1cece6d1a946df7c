// Package kernel implements the resample capability consumed by
// pkg/resample: evaluating a floating volume on a reference grid by
// mapping each output voxel center through the grids' affines and
// sampling the floating volume with a separable interpolation kernel.
package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// Resampler evaluates floating volumes on reference grids. The zero
// value is ready to use.
type Resampler struct {
	// AntiAlias enables a separable Gaussian pre-filter on axes being
	// downsampled, with the sigma from resample.GaussianSigma. It is
	// skipped for the nearest kernel, which categorical volumes use.
	AntiAlias bool
}

// New returns a resampler with anti-aliasing disabled.
func New() *Resampler { return &Resampler{} }

// Resample evaluates the floating volume at every voxel center of the
// reference grid. Points outside the floating volume sample as zero.
// The returned affine is the reference grid's index-to-world matrix;
// the voxel values are exact copies of source voxels wherever sample
// points land on source voxel centers, so the caller's dtype tag stays
// valid.
func (r *Resampler) Resample(v *models.Volume, ref resample.GridGeometry, interp resample.Interpolation) ([]float64, *mat.Dense, error) {
	refAffine := ref.Affine()
	var worldToVoxel mat.Dense
	if err := worldToVoxel.Inverse(v.Affine); err != nil {
		return nil, nil, fmt.Errorf("floating volume affine is singular: %w", err)
	}
	// Output index -> floating continuous index, composed once.
	var m mat.Dense
	m.Mul(&worldToVoxel, refAffine)

	src := v
	if r.AntiAlias && interp != resample.Nearest {
		src = smoothForDownsampling(v, ref)
	}

	nx, ny, nz := ref.Size[0], ref.Size[1], ref.Size[2]
	ch := v.NumChannels()
	out := make([]float64, nx*ny*nz*ch)
	for c := 0; c < ch; c++ {
		idx := c * nz * ny * nx
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					cx := m.At(0, 0)*float64(x) + m.At(0, 1)*float64(y) + m.At(0, 2)*float64(z) + m.At(0, 3)
					cy := m.At(1, 0)*float64(x) + m.At(1, 1)*float64(y) + m.At(1, 2)*float64(z) + m.At(1, 3)
					cz := m.At(2, 0)*float64(x) + m.At(2, 1)*float64(y) + m.At(2, 2)*float64(z) + m.At(2, 3)
					switch interp {
					case resample.Nearest:
						out[idx] = nearestAt(src, cx, cy, cz, c)
					case resample.Linear:
						out[idx] = trilinearAt(src, cx, cy, cz, c)
					case resample.BSpline:
						out[idx] = cubicAt(src, cx, cy, cz, c)
					default:
						return nil, nil, fmt.Errorf("%w: %v", resample.ErrInvalidInterpolation, interp)
					}
					idx++
				}
			}
		}
	}
	return out, refAffine, nil
}

// sampleAt returns the voxel at integer indices, or zero outside the
// volume.
func sampleAt(v *models.Volume, x, y, z, c int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= v.Shape[0] || y >= v.Shape[1] || z >= v.Shape[2] {
		return 0
	}
	return v.At(x, y, z, c)
}

func nearestAt(v *models.Volume, cx, cy, cz float64, c int) float64 {
	return sampleAt(v, int(math.Round(cx)), int(math.Round(cy)), int(math.Round(cz)), c)
}

func trilinearAt(v *models.Volume, cx, cy, cz float64, c int) float64 {
	x0, y0, z0 := int(math.Floor(cx)), int(math.Floor(cy)), int(math.Floor(cz))
	fx, fy, fz := cx-float64(x0), cy-float64(y0), cz-float64(z0)
	var val float64
	for dz := 0; dz <= 1; dz++ {
		wz := fz
		if dz == 0 {
			wz = 1 - fz
		}
		if wz == 0 {
			continue
		}
		for dy := 0; dy <= 1; dy++ {
			wy := fy
			if dy == 0 {
				wy = 1 - fy
			}
			if wy == 0 {
				continue
			}
			for dx := 0; dx <= 1; dx++ {
				wx := fx
				if dx == 0 {
					wx = 1 - fx
				}
				if wx == 0 {
					continue
				}
				val += wx * wy * wz * sampleAt(v, x0+dx, y0+dy, z0+dz, c)
			}
		}
	}
	return val
}

// cubicWeight is the Catmull-Rom kernel, an interpolating cubic: it
// reproduces source voxel values exactly when a sample point lands on a
// voxel center.
func cubicWeight(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return ((1.5*t-2.5)*t)*t + 1
	case t < 2:
		return ((-0.5*t+2.5)*t-4)*t + 2
	}
	return 0
}

func cubicAt(v *models.Volume, cx, cy, cz float64, c int) float64 {
	x0, y0, z0 := int(math.Floor(cx)), int(math.Floor(cy)), int(math.Floor(cz))
	var val float64
	for dz := -1; dz <= 2; dz++ {
		wz := cubicWeight(cz - float64(z0+dz))
		if wz == 0 {
			continue
		}
		for dy := -1; dy <= 2; dy++ {
			wy := cubicWeight(cy - float64(y0+dy))
			if wy == 0 {
				continue
			}
			for dx := -1; dx <= 2; dx++ {
				wx := cubicWeight(cx - float64(x0+dx))
				if wx == 0 {
					continue
				}
				val += wx * wy * wz * sampleAt(v, x0+dx, y0+dy, z0+dz, c)
			}
		}
	}
	return val
}

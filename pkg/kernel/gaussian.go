package kernel

import (
	"math"

	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// smoothForDownsampling returns a copy of the volume blurred along each
// axis whose spacing is about to grow, using the point-spread-function
// matching sigma. Axes being upsampled or kept are left sharp. The
// input volume is never mutated.
func smoothForDownsampling(v *models.Volume, ref resample.GridGeometry) *models.Volume {
	oldSpacing := v.Spacing()
	smoothed := v
	for axis := 0; axis < 3; axis++ {
		factor := ref.Spacing[axis] / oldSpacing[axis]
		if factor <= 1 || v.Shape[axis] == 1 {
			continue
		}
		// Sigma in voxel units of the floating volume.
		sigma := resample.GaussianSigma(factor, oldSpacing[axis]) / oldSpacing[axis]
		if smoothed == v {
			smoothed = v.Clone()
		}
		smoothAxis(smoothed, axis, sigma)
	}
	return smoothed
}

// smoothAxis applies a 1D Gaussian along one axis in place. The kernel
// is renormalized at the volume boundary so constant regions stay
// constant.
func smoothAxis(v *models.Volume, axis int, sigma float64) {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		return
	}
	weights := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		weights[i+radius] = math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
	}

	n := v.Shape[axis]
	line := make([]float64, n)
	ch := v.NumChannels()

	// The two axes orthogonal to the smoothing axis.
	u, w := (axis+1)%3, (axis+2)%3
	var idx [3]int
	for c := 0; c < ch; c++ {
		for i := 0; i < v.Shape[u]; i++ {
			for j := 0; j < v.Shape[w]; j++ {
				idx[u], idx[w] = i, j
				for k := 0; k < n; k++ {
					idx[axis] = k
					line[k] = v.At(idx[0], idx[1], idx[2], c)
				}
				for k := 0; k < n; k++ {
					var sum, norm float64
					for d := -radius; d <= radius; d++ {
						s := k + d
						if s < 0 || s >= n {
							continue
						}
						wgt := weights[d+radius]
						sum += wgt * line[s]
						norm += wgt
					}
					idx[axis] = k
					v.Set(idx[0], idx[1], idx[2], c, sum/norm)
				}
			}
		}
	}
}

package models

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kind tags the semantic type of a volume's voxel values.
type Kind int

const (
	// Continuous marks intensity images whose values may be blended
	// during interpolation.
	Continuous Kind = iota

	// Categorical marks label or mask images whose values are discrete
	// identifiers and must never be blended.
	Categorical
)

// String returns the YAML/CLI name of the kind.
func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "continuous"
}

// DType records the scalar type a volume's voxels originally had.
// Voxels are held in memory as float64; the tag travels with the volume
// so that resampling and serialization preserve the source type.
type DType string

const (
	UInt8   DType = "uint8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Volume represents a sampled 3D image with spatial metadata.
//
// The voxel data is stored as a 1D array with x varying fastest and the
// channel axis slowest: index (x, y, z, c) maps to
// ((c*Shape[2]+z)*Shape[1]+y)*Shape[0]+x. A pseudo-2D image is a volume
// one voxel thick on one axis; a zero on an axis denotes a genuinely
// lower-dimensional grid.
type Volume struct {
	// Data is the voxel data as a 1D array in x-fastest order.
	Data []float64

	// Shape is the number of voxels along each spatial axis.
	Shape [3]int

	// Channels is the number of components per voxel. Zero means one.
	Channels int

	// DType is the scalar type the voxels originally had.
	DType DType

	// Kind tells whether voxel values are intensities or labels.
	Kind Kind

	// Affine is the 4x4 matrix mapping voxel indices to world
	// coordinates (direction, spacing and origin combined).
	Affine *mat.Dense

	// Aux holds named auxiliary matrices attached to this image, such
	// as a pre-resample affine correction.
	Aux map[string]*mat.Dense
}

// NewVolume creates a single-channel continuous volume with the given
// shape and affine. A nil affine defaults to the identity (1mm isotropic
// spacing, origin at zero). The data array is allocated zero-filled.
func NewVolume(shape [3]int, affine *mat.Dense) *Volume {
	if affine == nil {
		affine = IdentityAffine()
	}
	n := shape[0] * shape[1] * shape[2]
	return &Volume{
		Data:   make([]float64, n),
		Shape:  shape,
		DType:  Float64,
		Affine: affine,
	}
}

// IdentityAffine returns a fresh 4x4 identity matrix.
func IdentityAffine() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// ScaledAffine returns an affine with the given voxel spacing on the
// diagonal and the given world origin, axis-aligned.
func ScaledAffine(spacing, origin [3]float64) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, spacing[i])
		m.Set(i, 3, origin[i])
	}
	m.Set(3, 3, 1)
	return m
}

// NumChannels returns the number of components per voxel, at least one.
func (v *Volume) NumChannels() int {
	if v.Channels < 1 {
		return 1
	}
	return v.Channels
}

// Dims returns the number of spatial axes with at least one voxel.
// Ordinary volumes, including pseudo-2D ones, report 3.
func (v *Volume) Dims() int {
	d := 0
	for _, n := range v.Shape {
		if n > 0 {
			d++
		}
	}
	return d
}

// At returns the voxel value at (x, y, z) in channel c.
func (v *Volume) At(x, y, z, c int) float64 {
	return v.Data[((c*v.Shape[2]+z)*v.Shape[1]+y)*v.Shape[0]+x]
}

// Set stores a voxel value at (x, y, z) in channel c.
func (v *Volume) Set(x, y, z, c int, val float64) {
	v.Data[((c*v.Shape[2]+z)*v.Shape[1]+y)*v.Shape[0]+x] = val
}

// Spacing returns the physical voxel size along each axis, derived from
// the column norms of the affine's rotational part.
func (v *Volume) Spacing() [3]float64 {
	var s [3]float64
	for j := 0; j < 3; j++ {
		var sum float64
		for i := 0; i < 3; i++ {
			a := v.Affine.At(i, j)
			sum += a * a
		}
		s[j] = math.Sqrt(sum)
	}
	return s
}

// Origin returns the world coordinates of the first voxel's center.
func (v *Volume) Origin() [3]float64 {
	return [3]float64{v.Affine.At(0, 3), v.Affine.At(1, 3), v.Affine.At(2, 3)}
}

// Direction returns the 3x3 orthonormal direction matrix obtained by
// dividing the affine's columns by their spacing.
func (v *Volume) Direction() *mat.Dense {
	s := v.Spacing()
	d := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			d.Set(i, j, v.Affine.At(i, j)/s[j])
		}
	}
	return d
}

// IndexToWorld maps a continuous voxel index to world coordinates
// through the volume's affine.
func (v *Volume) IndexToWorld(idx [3]float64) [3]float64 {
	var w [3]float64
	for i := 0; i < 3; i++ {
		w[i] = v.Affine.At(i, 3)
		for j := 0; j < 3; j++ {
			w[i] += v.Affine.At(i, j) * idx[j]
		}
	}
	return w
}

// Clone returns a deep copy of the volume, including auxiliary matrices.
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Data:     append([]float64(nil), v.Data...),
		Shape:    v.Shape,
		Channels: v.Channels,
		DType:    v.DType,
		Kind:     v.Kind,
		Affine:   mat.DenseCopyOf(v.Affine),
	}
	if v.Aux != nil {
		out.Aux = make(map[string]*mat.Dense, len(v.Aux))
		for k, m := range v.Aux {
			out.Aux[k] = mat.DenseCopyOf(m)
		}
	}
	return out
}

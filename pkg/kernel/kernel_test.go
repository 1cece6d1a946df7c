package kernel

import (
	"math"
	"testing"

	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// rampVolume fills a volume with a distinct value per voxel
func rampVolume(size int, spacing float64) *models.Volume {
	shape := [3]int{size, size, size}
	affine := models.ScaledAffine([3]float64{spacing, spacing, spacing}, [3]float64{})
	v := models.NewVolume(shape, affine)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}
	return v
}

// TestResampleIdentity verifies that evaluating a volume on its own grid
// reproduces the data exactly
func TestResampleIdentity(t *testing.T) {
	for _, interp := range []resample.Interpolation{resample.Nearest, resample.Linear, resample.BSpline} {
		v := rampVolume(4, 1)
		ref := resample.GridFromVolume(v)

		data, affine, err := New().Resample(v, ref, interp)
		if err != nil {
			t.Fatalf("Resample(%v) returned error: %v", interp, err)
		}
		for i := range v.Data {
			if math.Abs(data[i]-v.Data[i]) > 1e-9 {
				t.Fatalf("Resample(%v): voxel %d changed from %v to %v", interp, i, v.Data[i], data[i])
			}
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if math.Abs(affine.At(i, j)-v.Affine.At(i, j)) > 1e-12 {
					t.Fatalf("Resample(%v): affine changed at (%d,%d)", interp, i, j)
				}
			}
		}
	}
}

// TestResampleRoundTripGeometry verifies that resampling to the current
// spacing reproduces the original grid geometry
func TestResampleRoundTripGeometry(t *testing.T) {
	v := rampVolume(6, 1.5)
	tr, err := resample.New(&resample.Params{Target: 1.5, Kernel: New()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	original := v.Clone()
	subject := singleImageBundle{key: "img", vol: v}
	if err := tr.Apply(subject); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if v.Shape != original.Shape {
		t.Errorf("Expected shape %v, got %v", original.Shape, v.Shape)
	}
	for i := 0; i < 3; i++ {
		if math.Abs(v.Spacing()[i]-original.Spacing()[i]) > 1e-9 {
			t.Errorf("Expected spacing %v, got %v", original.Spacing(), v.Spacing())
			break
		}
		if math.Abs(v.Origin()[i]-original.Origin()[i]) > 1e-9 {
			t.Errorf("Expected origin %v, got %v", original.Origin(), v.Origin())
			break
		}
	}
	for i := range original.Data {
		if math.Abs(v.Data[i]-original.Data[i]) > 1e-9 {
			t.Fatalf("Voxel %d changed from %v to %v", i, original.Data[i], v.Data[i])
		}
	}
}

// singleImageBundle adapts one volume to the resample.Bundle interface.
type singleImageBundle struct {
	key string
	vol *models.Volume
}

func (b singleImageBundle) Images() []resample.NamedImage {
	return []resample.NamedImage{{Key: b.key, Volume: b.vol}}
}

func (b singleImageBundle) Get(key string) (*models.Volume, bool) {
	if key == b.key {
		return b.vol, true
	}
	return nil, false
}

// TestResampleNearestKeepsLabelValues verifies that nearest never
// invents intermediate label values
func TestResampleNearestKeepsLabelValues(t *testing.T) {
	v := models.NewVolume([3]int{4, 4, 4}, nil)
	v.Kind = models.Categorical
	labels := []float64{0, 1, 3}
	for i := range v.Data {
		v.Data[i] = labels[i%len(labels)]
	}

	ref, err := resample.BuildGrid(v, [3]float64{0.5, 0.5, 0.5})
	if err != nil {
		t.Fatalf("BuildGrid returned error: %v", err)
	}
	data, _, err := New().Resample(v, ref, resample.Nearest)
	if err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}
	for i, val := range data {
		if val != 0 && val != 1 && val != 3 {
			t.Fatalf("Voxel %d has blended label value %v", i, val)
		}
	}
}

// TestResampleDownsampleConstant verifies that a constant volume stays
// constant when all sample points fall inside it
func TestResampleDownsampleConstant(t *testing.T) {
	v := models.NewVolume([3]int{8, 8, 8}, nil)
	for i := range v.Data {
		v.Data[i] = 5
	}

	ref, err := resample.BuildGrid(v, [3]float64{2, 2, 2})
	if err != nil {
		t.Fatalf("BuildGrid returned error: %v", err)
	}
	data, _, err := New().Resample(v, ref, resample.Linear)
	if err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}
	if len(data) != 4*4*4 {
		t.Fatalf("Expected 64 voxels, got %d", len(data))
	}
	for i, val := range data {
		if math.Abs(val-5) > 1e-9 {
			t.Fatalf("Voxel %d drifted from 5 to %v", i, val)
		}
	}
}

// TestResampleAntiAliasKeepsConstant verifies that the Gaussian
// pre-filter is renormalized at the boundary
func TestResampleAntiAliasKeepsConstant(t *testing.T) {
	v := models.NewVolume([3]int{8, 8, 8}, nil)
	for i := range v.Data {
		v.Data[i] = 5
	}
	original := append([]float64(nil), v.Data...)

	ref, err := resample.BuildGrid(v, [3]float64{2, 2, 2})
	if err != nil {
		t.Fatalf("BuildGrid returned error: %v", err)
	}
	r := &Resampler{AntiAlias: true}
	data, _, err := r.Resample(v, ref, resample.Linear)
	if err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}
	for i, val := range data {
		if math.Abs(val-5) > 1e-9 {
			t.Fatalf("Voxel %d drifted from 5 to %v", i, val)
		}
	}
	// Smoothing happens on a copy, never on the input
	for i := range original {
		if v.Data[i] != original[i] {
			t.Fatal("Expected the floating volume to be unmodified")
		}
	}
}

// TestResampleOutsideIsZero verifies the out-of-volume sampling policy
func TestResampleOutsideIsZero(t *testing.T) {
	v := models.NewVolume([3]int{2, 2, 2}, nil)
	for i := range v.Data {
		v.Data[i] = 9
	}

	// A grid shifted entirely outside the floating volume
	ref := resample.GridGeometry{
		Size:      [3]int{2, 2, 2},
		Spacing:   [3]float64{1, 1, 1},
		Origin:    [3]float64{100, 100, 100},
		Direction: v.Direction(),
	}
	data, _, err := New().Resample(v, ref, resample.Linear)
	if err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}
	for i, val := range data {
		if val != 0 {
			t.Fatalf("Voxel %d outside the volume sampled %v, expected 0", i, val)
		}
	}
}

// TestCubicWeightPartitionOfUnity verifies the cubic kernel sums to one
// over the sampling window
func TestCubicWeightPartitionOfUnity(t *testing.T) {
	for _, frac := range []float64{0, 0.25, 0.5, 0.75} {
		sum := 0.0
		for i := -1; i <= 2; i++ {
			sum += cubicWeight(frac - float64(i))
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("Cubic weights at offset %v sum to %v, expected 1", frac, sum)
		}
	}
}

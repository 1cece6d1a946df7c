package intensity

import (
	"math"
	"testing"

	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// listBundle is a minimal resample.Bundle for tests.
type listBundle []resample.NamedImage

func (b listBundle) Images() []resample.NamedImage { return b }

func (b listBundle) Get(key string) (*models.Volume, bool) {
	for _, img := range b {
		if img.Key == key {
			return img.Volume, true
		}
	}
	return nil, false
}

func volumeWithData(data []float64) *models.Volume {
	v := models.NewVolume([3]int{len(data), 1, 1}, nil)
	copy(v.Data, data)
	return v
}

// TestRescaleToUnitRange verifies min-max normalization to [0, 1]
func TestRescaleToUnitRange(t *testing.T) {
	v := volumeWithData([]float64{2, 4, 6, 8, 10})

	n, err := Rescale(listBundle{{Key: "t1", Volume: v}}, nil)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 rescaled volume, got %d", n)
	}
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(v.Data[i]-want[i]) > 1e-12 {
			t.Errorf("Expected voxel %d to be %v, got %v", i, want[i], v.Data[i])
		}
	}
}

// TestRescaleCustomRange verifies an asymmetric output range
func TestRescaleCustomRange(t *testing.T) {
	v := volumeWithData([]float64{0, 5, 10})

	params := &RescaleParams{OutMin: -1, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100}
	if _, err := Rescale(listBundle{{Key: "t1", Volume: v}}, params); err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	want := []float64{-1, 0, 1}
	for i := range want {
		if math.Abs(v.Data[i]-want[i]) > 1e-12 {
			t.Errorf("Expected voxel %d to be %v, got %v", i, want[i], v.Data[i])
		}
	}
}

// TestRescalePercentileClip verifies that outliers beyond the cutoffs
// are clipped before normalization
func TestRescalePercentileClip(t *testing.T) {
	v := volumeWithData([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 1000})

	params := &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 90}
	if _, err := Rescale(listBundle{{Key: "t1", Volume: v}}, params); err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	// The 90th percentile cutoff is 9, so the outlier maps to 1 as well
	if v.Data[10] != 1 {
		t.Errorf("Expected clipped outlier to map to 1, got %v", v.Data[10])
	}
	if v.Data[9] != 1 {
		t.Errorf("Expected the cutoff value to map to 1, got %v", v.Data[9])
	}
	if v.Data[0] != 0 {
		t.Errorf("Expected the minimum to map to 0, got %v", v.Data[0])
	}
}

// TestRescaleWithMask verifies that cutoffs come from the masked voxels
// while the rescale applies to the whole volume
func TestRescaleWithMask(t *testing.T) {
	v := volumeWithData([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	mask := volumeWithData([]float64{0, 0, 0, 0, 1, 1, 1, 1, 1, 1})
	mask.Kind = models.Categorical

	params := &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100, MaskName: "mask"}
	n, err := Rescale(listBundle{{Key: "t1", Volume: v}, {Key: "mask", Volume: mask}}, params)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 rescaled volume, got %d", n)
	}

	// Cutoffs over the masked values 4..9: values below 4 clip to 0
	if v.Data[0] != 0 || v.Data[3] != 0 {
		t.Errorf("Expected values below the masked minimum to clip to 0, got %v and %v", v.Data[0], v.Data[3])
	}
	if math.Abs(v.Data[5]-0.2) > 1e-12 {
		t.Errorf("Expected voxel 5 to map to 0.2, got %v", v.Data[5])
	}
	if v.Data[9] != 1 {
		t.Errorf("Expected the masked maximum to map to 1, got %v", v.Data[9])
	}
	// The mask image itself is untouched
	if mask.Data[4] != 1 {
		t.Error("Expected the mask volume to be left unchanged")
	}
}

// TestRescaleMaskMissing verifies the error for an absent mask image
func TestRescaleMaskMissing(t *testing.T) {
	v := volumeWithData([]float64{0, 1, 2})
	params := &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100, MaskName: "absent"}
	if _, err := Rescale(listBundle{{Key: "t1", Volume: v}}, params); err == nil {
		t.Error("Expected an error for a missing mask image")
	}
}

// TestRescaleMaskSizeMismatch verifies the error for a mask with a
// different voxel count
func TestRescaleMaskSizeMismatch(t *testing.T) {
	v := volumeWithData([]float64{0, 1, 2, 3})
	mask := volumeWithData([]float64{1, 1})
	params := &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100, MaskName: "mask"}
	if _, err := Rescale(listBundle{{Key: "t1", Volume: v}, {Key: "mask", Volume: mask}}, params); err == nil {
		t.Error("Expected an error for a mask of different size")
	}
}

// TestRescaleEmptyMaskSkipped verifies that an all-zero mask skips the
// volume instead of failing
func TestRescaleEmptyMaskSkipped(t *testing.T) {
	v := volumeWithData([]float64{0, 1, 2, 3})
	mask := volumeWithData([]float64{0, 0, 0, 0})
	params := &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100, MaskName: "mask"}
	n, err := Rescale(listBundle{{Key: "t1", Volume: v}, {Key: "mask", Volume: mask}}, params)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no volumes rescaled under an empty mask, got %d", n)
	}
	if v.Data[3] != 3 {
		t.Error("Expected the volume to be left unchanged")
	}
}

// TestRescaleConstantSkipped verifies that zero-range volumes are left
// unchanged rather than divided by zero
func TestRescaleConstantSkipped(t *testing.T) {
	v := volumeWithData([]float64{4, 4, 4, 4})

	n, err := Rescale(listBundle{{Key: "t1", Volume: v}}, nil)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no volumes rescaled, got %d", n)
	}
	for i, val := range v.Data {
		if val != 4 {
			t.Errorf("Expected voxel %d unchanged at 4, got %v", i, val)
		}
	}
}

// TestRescaleSkipsCategorical verifies that label volumes are never
// rescaled
func TestRescaleSkipsCategorical(t *testing.T) {
	labels := volumeWithData([]float64{0, 1, 2, 3})
	labels.Kind = models.Categorical

	n, err := Rescale(listBundle{{Key: "seg", Volume: labels}}, nil)
	if err != nil {
		t.Fatalf("Rescale returned error: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no volumes rescaled, got %d", n)
	}
	if labels.Data[3] != 3 {
		t.Error("Expected label values to be untouched")
	}
}

// TestRescaleInvalidParams verifies parameter validation
func TestRescaleInvalidParams(t *testing.T) {
	v := volumeWithData([]float64{0, 1})
	b := listBundle{{Key: "t1", Volume: v}}

	if _, err := Rescale(b, &RescaleParams{OutMin: 1, OutMax: 0, LowerPercentile: 0, UpperPercentile: 100}); err == nil {
		t.Error("Expected an error for a reversed output range")
	}
	if _, err := Rescale(b, &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 50, UpperPercentile: 40}); err == nil {
		t.Error("Expected an error for reversed percentiles")
	}
	if _, err := Rescale(b, &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: -1, UpperPercentile: 100}); err == nil {
		t.Error("Expected an error for a negative percentile")
	}
}

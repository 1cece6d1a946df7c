// Package intensity normalizes the value range of continuous volumes.
package intensity

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// RescaleParams configures an intensity rescale.
type RescaleParams struct {
	// OutMin and OutMax are the bounds of the output range.
	OutMin, OutMax float64

	// LowerPercentile and UpperPercentile select the input cutoffs, in
	// percent. Values outside the cutoffs are clipped before rescaling,
	// which allows contrast stretching (e.g. 0.5 and 99.5).
	LowerPercentile, UpperPercentile float64

	// MaskName optionally names a sibling image in the bundle whose
	// nonzero voxels select the values the percentile cutoffs are
	// computed over. The rescale itself still applies to the whole
	// volume. Empty means all voxels.
	MaskName string
}

// DefaultRescaleParams rescales the full input range to [0, 1].
func DefaultRescaleParams() *RescaleParams {
	return &RescaleParams{OutMin: 0, OutMax: 1, LowerPercentile: 0, UpperPercentile: 100}
}

func (p *RescaleParams) validate() error {
	if p.OutMin >= p.OutMax {
		return fmt.Errorf("output range bounds must be increasing, got (%g, %g)", p.OutMin, p.OutMax)
	}
	if p.LowerPercentile < 0 || p.UpperPercentile > 100 || p.LowerPercentile >= p.UpperPercentile {
		return fmt.Errorf("percentiles must satisfy 0 <= lower < upper <= 100, got (%g, %g)",
			p.LowerPercentile, p.UpperPercentile)
	}
	return nil
}

// Rescale maps every continuous volume's intensities into the output
// range in place, leaving categorical volumes and the mask image
// untouched. Volumes whose cutoff values coincide cannot be rescaled
// and are skipped. It returns the number of volumes rescaled.
func Rescale(b resample.Bundle, p *RescaleParams) (int, error) {
	if p == nil {
		p = DefaultRescaleParams()
	}
	if err := p.validate(); err != nil {
		return 0, err
	}
	var mask *models.Volume
	if p.MaskName != "" {
		m, ok := b.Get(p.MaskName)
		if !ok {
			return 0, fmt.Errorf("mask image %q not found in subject", p.MaskName)
		}
		mask = m
	}
	count := 0
	for _, img := range b.Images() {
		if img.Volume.Kind == models.Categorical || img.Volume == mask {
			continue
		}
		ok, err := rescaleVolume(img.Volume, mask, p)
		if err != nil {
			return count, fmt.Errorf("image %q: %w", img.Key, err)
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func rescaleVolume(v *models.Volume, mask *models.Volume, p *RescaleParams) (bool, error) {
	if len(v.Data) == 0 {
		return false, nil
	}
	values := v.Data
	if mask != nil {
		if len(mask.Data) != len(v.Data) {
			return false, fmt.Errorf("mask has %d voxels, image has %d", len(mask.Data), len(v.Data))
		}
		values = make([]float64, 0, len(v.Data))
		for i, m := range mask.Data {
			if m != 0 {
				values = append(values, v.Data[i])
			}
		}
		if len(values) == 0 {
			return false, nil
		}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := stat.Quantile(p.LowerPercentile/100, stat.LinInterp, sorted, nil)
	hi := stat.Quantile(p.UpperPercentile/100, stat.LinInterp, sorted, nil)
	if hi <= lo {
		return false, nil
	}
	scale := (p.OutMax - p.OutMin) / (hi - lo)
	for i, x := range v.Data {
		if x < lo {
			x = lo
		} else if x > hi {
			x = hi
		}
		v.Data[i] = (x-lo)*scale + p.OutMin
	}
	return true, nil
}

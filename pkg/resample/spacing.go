package resample

import "fmt"

// ParseSpacing normalizes a spacing specification into three positive
// components. A single number n becomes (n, n, n); a 3-element value
// passes through unchanged. Any other shape, or any component that is
// not strictly positive, is rejected.
func ParseSpacing(spacing any) ([3]float64, error) {
	var out [3]float64
	switch s := spacing.(type) {
	case float64:
		out = [3]float64{s, s, s}
	case float32:
		f := float64(s)
		out = [3]float64{f, f, f}
	case int:
		f := float64(s)
		out = [3]float64{f, f, f}
	case [3]float64:
		out = s
	case [3]int:
		for i, c := range s {
			out[i] = float64(c)
		}
	case []float64:
		if len(s) != 3 {
			return out, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidSpacing, len(s))
		}
		copy(out[:], s)
	case []int:
		if len(s) != 3 {
			return out, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidSpacing, len(s))
		}
		for i, c := range s {
			out[i] = float64(c)
		}
	default:
		return out, fmt.Errorf("%w: spacing must be a positive number or a triple of positive numbers, not %T", ErrInvalidSpacing, spacing)
	}
	for _, c := range out {
		if c <= 0 {
			return [3]float64{}, fmt.Errorf("%w: spacing must be positive, not %v", ErrInvalidSpacing, spacing)
		}
	}
	return out, nil
}

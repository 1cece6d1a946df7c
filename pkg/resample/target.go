package resample

import (
	"fmt"
	"os"

	"resample3d/internal/models"
)

// TargetKind identifies which variant of a resolved target is populated.
type TargetKind int

const (
	// SpacingTarget resamples each image onto a grid derived from its
	// own geometry at the requested spacing.
	SpacingTarget TargetKind = iota

	// NamedReference resamples every image onto the grid of the sibling
	// image stored under a key in the same subject.
	NamedReference

	// PathReference resamples every image onto the grid of a volume
	// loaded from a file.
	PathReference

	// InMemoryReference resamples every image onto the grid of a volume
	// supplied directly by the caller.
	InMemoryReference
)

// Loader constructs a volume from a file, used when the target is a
// path. Only PathReference resolution needs it.
type Loader interface {
	Load(path string) (*models.Volume, error)
}

// Target is a resolved resampling target. Exactly one variant is
// populated according to Kind. Targets are resolved once at transform
// construction and are read-only afterwards, so a single Target may be
// shared across concurrent transforms.
type Target struct {
	Kind TargetKind

	// Name is the sibling image key for NamedReference targets.
	Name string

	// Reference is the fixed reference volume for PathReference and
	// InMemoryReference targets.
	Reference *models.Volume

	// Spacing holds the requested spacing for SpacingTarget, and the
	// reference volume's own spacing for InMemoryReference.
	Spacing [3]float64
}

// ResolveTarget classifies a target value into one of the four Target
// variants.
//
// A string naming an existing file becomes a PathReference, loaded
// eagerly through the loader as a continuous-kind volume. Any other
// string becomes a NamedReference keyed into the subject at apply time.
// A *models.Volume becomes an InMemoryReference, recording its spacing.
// Numbers and triples become SpacingTargets. Anything else is an
// ErrInvalidTarget naming the received type.
func ResolveTarget(target any, loader Loader) (*Target, error) {
	switch tv := target.(type) {
	case string:
		if info, err := os.Stat(tv); err == nil && !info.IsDir() {
			if loader == nil {
				return nil, fmt.Errorf("%w: target %q is a file but no volume loader was provided", ErrInvalidTarget, tv)
			}
			ref, err := loader.Load(tv)
			if err != nil {
				return nil, fmt.Errorf("loading reference volume %q: %w", tv, err)
			}
			ref.Kind = models.Continuous
			return &Target{Kind: PathReference, Reference: ref}, nil
		}
		return &Target{Kind: NamedReference, Name: tv}, nil
	case *models.Volume:
		if tv == nil {
			return nil, fmt.Errorf("%w: reference volume is nil", ErrInvalidTarget)
		}
		return &Target{Kind: InMemoryReference, Reference: tv, Spacing: tv.Spacing()}, nil
	case float64, float32, int, [3]float64, [3]int, []float64, []int:
		spacing, err := ParseSpacing(target)
		if err != nil {
			return nil, err
		}
		return &Target{Kind: SpacingTarget, Spacing: spacing}, nil
	default:
		return nil, fmt.Errorf("%w: target must be a number, a triple of numbers, an image name or path, or a volume, not %T", ErrInvalidTarget, tv)
	}
}

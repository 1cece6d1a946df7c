// Package bundle provides the subject container consumed by
// pkg/resample: an ordered collection of named volumes.
package bundle

import (
	"resample3d/internal/models"
	"resample3d/pkg/resample"
)

// Subject is an ordered collection of named volumes belonging to one
// scanned subject. Iteration order is insertion order.
type Subject struct {
	keys   []string
	images map[string]*models.Volume
}

// NewSubject returns an empty subject.
func NewSubject() *Subject {
	return &Subject{images: make(map[string]*models.Volume)}
}

// Add stores a volume under a key. Adding an existing key replaces the
// volume but keeps its original position.
func (s *Subject) Add(key string, v *models.Volume) {
	if _, ok := s.images[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.images[key] = v
}

// Images returns the subject's images in insertion order.
func (s *Subject) Images() []resample.NamedImage {
	out := make([]resample.NamedImage, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, resample.NamedImage{Key: k, Volume: s.images[k]})
	}
	return out
}

// Get looks up a volume by key.
func (s *Subject) Get(key string) (*models.Volume, bool) {
	v, ok := s.images[key]
	return v, ok
}

// Len returns the number of images in the subject.
func (s *Subject) Len() int { return len(s.keys) }

// Package volio reads and writes volumes in a simple binary container:
// a 4-byte magic, a little-endian uint32 header length, a YAML header
// with the spatial metadata, and the raw voxel data as little-endian
// float64 in x-fastest order. It also loads and saves whole subject
// bundles from directories of such files.
package volio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"resample3d/internal/models"
	"resample3d/pkg/bundle"
)

// Ext is the file extension of volume files.
const Ext = ".rvol"

var magic = [4]byte{'R', 'V', 'O', 'L'}

// header is the YAML metadata block preceding the voxel data.
type header struct {
	Version  int                  `yaml:"version"`
	Shape    [3]int               `yaml:"shape"`
	Channels int                  `yaml:"channels,omitempty"`
	DType    string               `yaml:"dtype"`
	Kind     string               `yaml:"kind"`
	Affine   []float64            `yaml:"affine"` // 16 values, row-major
	Aux      map[string][]float64 `yaml:"aux,omitempty"`
}

// Save writes a volume to path, creating parent directories as needed.
func Save(path string, v *models.Volume) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating volume file: %w", err)
	}
	defer f.Close()
	if err := Write(f, v); err != nil {
		return fmt.Errorf("writing volume file %q: %w", path, err)
	}
	return nil
}

// Write serializes a volume to a writer.
func Write(w io.Writer, v *models.Volume) error {
	h := header{
		Version:  1,
		Shape:    v.Shape,
		Channels: v.Channels,
		DType:    string(v.DType),
		Kind:     v.Kind.String(),
		Affine:   flatten(v.Affine),
	}
	if len(v.Aux) > 0 {
		h.Aux = make(map[string][]float64, len(v.Aux))
		for k, m := range v.Aux {
			h.Aux[k] = flatten(m)
		}
	}
	headerBytes, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerBytes))); err != nil {
		return err
	}
	if _, err := w.Write(headerBytes); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v.Data)
}

// Load reads a volume from path.
func Load(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume file: %w", err)
	}
	defer f.Close()
	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading volume file %q: %w", path, err)
	}
	return v, nil
}

// Read deserializes a volume from a reader.
func Read(r io.Reader) (*models.Volume, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("not a volume file (magic %q)", gotMagic[:])
	}
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var h header
	if err := yaml.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	affine, err := unflatten(h.Affine, 4, 4)
	if err != nil {
		return nil, fmt.Errorf("affine: %w", err)
	}

	v := &models.Volume{
		Shape:    h.Shape,
		Channels: h.Channels,
		DType:    models.DType(h.DType),
		Affine:   affine,
	}
	if h.Kind == models.Categorical.String() {
		v.Kind = models.Categorical
	}
	if len(h.Aux) > 0 {
		v.Aux = make(map[string]*mat.Dense, len(h.Aux))
		for k, vals := range h.Aux {
			m, err := unflatten(vals, 4, 4)
			if err != nil {
				return nil, fmt.Errorf("aux matrix %q: %w", k, err)
			}
			v.Aux[k] = m
		}
	}

	for _, axis := range h.Shape {
		if axis < 0 {
			return nil, fmt.Errorf("invalid shape %v", h.Shape)
		}
	}
	if h.Channels < 0 {
		return nil, fmt.Errorf("invalid channel count %d", h.Channels)
	}
	ch := v.NumChannels()
	n := h.Shape[0] * h.Shape[1] * h.Shape[2] * ch
	v.Data = make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, v.Data); err != nil {
		return nil, fmt.Errorf("reading voxel data: %w", err)
	}
	return v, nil
}

// FileLoader adapts Load to the resample.Loader interface.
type FileLoader struct{}

// Load implements resample.Loader.
func (FileLoader) Load(path string) (*models.Volume, error) {
	return Load(path)
}

// LoadBundle reads every volume file in a directory into a subject,
// keyed by file name without extension, in sorted name order.
func LoadBundle(dir string) (*bundle.Subject, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading bundle directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %s files found in %q", Ext, dir)
	}
	sort.Strings(names)
	subject := bundle.NewSubject()
	for _, name := range names {
		v, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		subject.Add(strings.TrimSuffix(name, Ext), v)
	}
	return subject, nil
}

// SaveBundle writes every image of a subject into a directory.
func SaveBundle(dir string, subject *bundle.Subject) error {
	for _, img := range subject.Images() {
		if err := Save(filepath.Join(dir, img.Key+Ext), img.Volume); err != nil {
			return err
		}
	}
	return nil
}

func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func unflatten(vals []float64, r, c int) (*mat.Dense, error) {
	if len(vals) != r*c {
		return nil, fmt.Errorf("expected %d values, got %d", r*c, len(vals))
	}
	return mat.NewDense(r, c, append([]float64(nil), vals...)), nil
}

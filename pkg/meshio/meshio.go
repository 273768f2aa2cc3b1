// Package meshio picks a codec for a mesh file and moves meshes between
// files and memory. Files ending in .gz are compressed transparently, and
// writes replace their target atomically.
package meshio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/ply"
	"github.com/philipparndt/voxmesh/pkg/stl"
)

// Codec converts between a byte stream and a mesh
type Codec interface {
	Name() string
	Encode(w io.Writer, m *mesh.Mesh) error
	Decode(r io.Reader) (*mesh.Mesh, error)
}

// Format identifies a mesh file format
type Format uint8

const (
	FormatUnknown Format = iota
	FormatSTL
	FormatPLY
)

func (f Format) String() string {
	switch f {
	case FormatSTL:
		return "stl"
	case FormatPLY:
		return "ply"
	default:
		return "unknown"
	}
}

// Options tune the codec chosen for a format
type Options struct {
	// Binary selects the binary variant on write.
	Binary bool
	// Tolerance welds STL corners closer than this on read.
	Tolerance float64
}

// Codec returns the codec for f
func (f Format) Codec(opts Options) (Codec, error) {
	switch f {
	case FormatSTL:
		return stl.Codec{Binary: opts.Binary, Tolerance: opts.Tolerance}, nil
	case FormatPLY:
		return ply.Codec{Binary: opts.Binary}, nil
	default:
		return nil, fmt.Errorf("%w: no codec for format %s", mesh.ErrUnsupportedFormat, f)
	}
}

// ParseFormat accepts a format name with or without a leading dot
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "stl":
		return FormatSTL, nil
	case "ply":
		return FormatPLY, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", mesh.ErrUnsupportedFormat, name)
	}
}

// DetectFormat derives the format from the file extension. A trailing .gz
// marks a compressed file and is looked through.
func DetectFormat(path string) (format Format, compressed bool, err error) {
	lower := strings.ToLower(strings.TrimSpace(path))
	if strings.HasSuffix(lower, ".gz") {
		compressed = true
		lower = strings.TrimSuffix(lower, ".gz")
	}
	ext := filepath.Ext(lower)
	if ext == "" {
		return FormatUnknown, compressed, fmt.Errorf("%w: %s has no extension", mesh.ErrUnsupportedFormat, path)
	}
	format, err = ParseFormat(ext)
	return format, compressed, err
}

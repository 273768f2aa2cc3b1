package meshio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/philipparndt/voxmesh/internal/meshtest"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/stl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box() *mesh.Mesh {
	return meshtest.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 2, 3))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path           string
		wantFormat     Format
		wantCompressed bool
		wantErr        bool
	}{
		{path: "part.stl", wantFormat: FormatSTL},
		{path: "dir.v2/PART.PLY", wantFormat: FormatPLY},
		{path: "scan.ply.gz", wantFormat: FormatPLY, wantCompressed: true},
		{path: "scan.STL.GZ", wantFormat: FormatSTL, wantCompressed: true},
		{path: "model.obj", wantErr: true},
		{path: "noext", wantErr: true},
		{path: "archive.gz", wantCompressed: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, compressed, err := DetectFormat(tt.path)
			assert.Equal(t, tt.wantCompressed, compressed)
			if tt.wantErr {
				assert.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".PLY")
	require.NoError(t, err)
	assert.Equal(t, FormatPLY, f)
	assert.Equal(t, "ply", f.String())

	_, err = ParseFormat("obj")
	assert.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
	_, err = FormatUnknown.Codec(Options{})
	assert.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
}

func TestFileRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		binary bool
	}{
		{name: "binary stl", file: "out.stl", binary: true},
		{name: "ascii stl", file: "out.stl"},
		{name: "binary ply", file: "out.ply", binary: true},
		{name: "ascii ply gzip", file: "out.ply.gz"},
		{name: "binary stl gzip", file: "out.stl.gz", binary: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			m := box()

			require.NoError(t, WriteFile(path, m, Options{Binary: tt.binary}))
			got, err := ReadFile(path, Options{})
			require.NoError(t, err)
			// The box corners are exact in float32 and welding restores the
			// STL vertex sharing, in first-use order.
			assert.Equal(t, 8, got.VertexCount())
			require.Equal(t, 12, got.TriangleCount())
			for i := 0; i < 12; i++ {
				assert.Equal(t, m.Geometry(i), got.Geometry(i))
			}

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary files must not survive")
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
		})
	}
}

func TestCompressedWithoutSuffix(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, stl.Codec{Binary: true}.Encode(&raw, box()))
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	_, err := zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "sniffed.stl")
	require.NoError(t, os.WriteFile(path, zipped.Bytes(), 0o644))

	m, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 12, m.TriangleCount())
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.ply"), Options{})
	assert.ErrorIs(t, err, mesh.ErrIOFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ply")
	require.NoError(t, os.WriteFile(path, []byte("not a ply file\n"), 0o644))

	m, err := ReadFile(path, Options{})
	assert.Nil(t, m)
	assert.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
}

// brokenCodec writes some bytes and then fails, like a disk filling up
type brokenCodec struct{}

func (brokenCodec) Name() string { return "broken" }

func (brokenCodec) Encode(w io.Writer, _ *mesh.Mesh) error {
	_, _ = w.Write([]byte("partial"))
	return errors.New("encoder failed")
}

func (brokenCodec) Decode(io.Reader) (*mesh.Mesh, error) { return nil, errors.New("unused") }

func TestFailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.stl")

	err := WriteFileWith(path, box(), brokenCodec{})
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFailedWriteKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.stl.gz")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	require.Error(t, WriteFileWith(path, box(), brokenCodec{}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

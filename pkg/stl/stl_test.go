package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/philipparndt/voxmesh/internal/meshtest"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTriangle() *mesh.Mesh {
	m := mesh.New()
	a := m.AddVertex(geometry.NewVector3(0, 0, 0))
	b := m.AddVertex(geometry.NewVector3(1, 0, 0))
	c := m.AddVertex(geometry.NewVector3(0, 1, 0))
	_, _ = m.AddTriangle(a, b, c)
	return m
}

func box() *mesh.Mesh {
	return meshtest.Box(geometry.NewVector3(-1, 0.5, 2), geometry.NewVector3(1.25, 3, 4.75))
}

func float32At(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

// assertSameTriangles compares triangle corners by position, in order
func assertSameTriangles(t *testing.T, want, got *mesh.Mesh) {
	t.Helper()
	require.Equal(t, want.TriangleCount(), got.TriangleCount())
	for i := 0; i < want.TriangleCount(); i++ {
		assert.Equal(t, want.Geometry(i), got.Geometry(i), "triangle %d", i)
	}
}

func TestEncodeBinaryUnitTriangle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Codec{Binary: true}.Encode(&buf, unitTriangle()))

	data := buf.Bytes()
	require.Len(t, data, 84+50)
	assert.Equal(t, make([]byte, 80), data[:80])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[80:]))

	assert.Equal(t, float32(0), float32At(data, 84))
	assert.Equal(t, float32(0), float32At(data, 88))
	assert.Equal(t, float32(1), float32At(data, 92))
	assert.Equal(t, float32(1), float32At(data, 84+24)) // second vertex x
	assert.Equal(t, float32(1), float32At(data, 84+40)) // third vertex y
	assert.Equal(t, []byte{0, 0}, data[84+48:])
}

func TestBinaryRoundTrip(t *testing.T) {
	m := box()
	var buf bytes.Buffer
	require.NoError(t, Codec{Binary: true}.Encode(&buf, m))

	model, err := Codec{}.Read(&buf)
	require.NoError(t, err)
	assert.True(t, model.Binary)
	assert.Equal(t, 12, model.Facets)
	assert.Equal(t, 0, model.Skipped)
	assert.Equal(t, 8, model.Mesh.VertexCount())
	assert.True(t, model.Mesh.IsClosed())
	assertSameTriangles(t, m, model.Mesh)
}

func TestASCIIRoundTrip(t *testing.T) {
	m := box()
	m.SetVertex(0, geometry.NewVector3(-0.375, 0.125, 2))
	var buf bytes.Buffer
	require.NoError(t, Codec{Solid: "part"}.Encode(&buf, m))
	assert.True(t, strings.HasPrefix(buf.String(), "solid part"))
	assert.Contains(t, buf.String(), "endsolid part")

	model, err := Codec{}.Read(&buf)
	require.NoError(t, err)
	assert.False(t, model.Binary)
	assert.Equal(t, "part", model.Name)
	assert.Equal(t, 8, model.Mesh.VertexCount())
	assertSameTriangles(t, m, model.Mesh)
}

func TestEncodeFloat32Precision(t *testing.T) {
	m := unitTriangle()
	m.SetVertex(1, geometry.NewVector3(1.0/3.0, 0, 0))
	var buf bytes.Buffer
	require.NoError(t, Codec{Binary: true}.Encode(&buf, m))

	got, err := Codec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(1.0/3.0)), got.Vertex(1).X)
}

func TestBinaryHeaderStartingWithSolid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Codec{Binary: true}.Encode(&buf, unitTriangle()))
	data := buf.Bytes()
	copy(data, "solid exported by some tool")

	model, err := Codec{}.Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, model.Binary)
	assert.Equal(t, "solid exported by some tool", model.Name)
	assert.Equal(t, 1, model.Mesh.TriangleCount())
}

func TestTruncatedBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Codec{Binary: true}.Encode(&buf, box()))
	data := buf.Bytes()[:84+50*5+20]

	m, err := Codec{}.Decode(bytes.NewReader(data))
	assert.Nil(t, m)
	require.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var fe *mesh.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(84+50*5), fe.Offset)
	assert.Equal(t, "triangle", fe.Element)
	assert.Equal(t, 5, fe.Index)
}

func TestShortHeader(t *testing.T) {
	_, err := Codec{}.Decode(bytes.NewReader(make([]byte, 40)))
	var fe *mesh.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "header", fe.Element)
	assert.Equal(t, int64(40), fe.Offset)
}

func TestMalformedASCII(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad coordinate", "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 zero 0\n"},
		{"missing endloop", "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendfacet\n"},
		{"truncated facet", "solid x\n\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\n"},
		{"unknown keyword", "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\npolygon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Codec{}.Decode(strings.NewReader(tt.input))
			assert.Nil(t, m)
			require.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
			var fe *mesh.FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "stl", fe.Format)
			assert.Equal(t, "solid", fe.Element)
		})
	}
}

func TestWeldTolerance(t *testing.T) {
	input := `solid s
facet normal 0 0 1
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
facet normal 0 0 1
outer loop
vertex 1.0000001 0 0
vertex 1 1 0
vertex 0 1.0000001 0
endloop
endfacet
facet normal 0 0 1
outer loop
vertex 0 0 0
vertex 0 0 0
vertex 0 1 0
endloop
endfacet
endsolid s
`
	exact, err := Codec{}.Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 6, exact.Mesh.VertexCount())
	assert.Equal(t, 3, exact.Facets)
	assert.Equal(t, 1, exact.Skipped)
	assert.Equal(t, 2, exact.Mesh.TriangleCount())

	welded, err := Codec{Tolerance: 1e-5}.Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, welded.Mesh.VertexCount())
	assert.Equal(t, 1, welded.Skipped)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeWriteFailure(t *testing.T) {
	for _, c := range []Codec{{}, {Binary: true}} {
		err := c.Encode(failingWriter{}, box())
		assert.ErrorIs(t, err, mesh.ErrIOFailure)
	}
}

func TestBinaryLimit(t *testing.T) {
	assert.NoError(t, checkBinaryLimit(math.MaxUint32))

	err := checkBinaryLimit(math.MaxUint32 + 1)
	require.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, mesh.ErrIOFailure)
	assert.ErrorContains(t, err, "exceed the binary STL limit")
}

func TestName(t *testing.T) {
	assert.Equal(t, "stl", Codec{}.Name())
}

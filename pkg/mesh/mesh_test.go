package mesh_test

import (
	"errors"
	"io"
	"testing"

	"github.com/philipparndt/voxmesh/internal/meshtest"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBox() *mesh.Mesh {
	return meshtest.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))
}

func TestAddTriangleValidation(t *testing.T) {
	m := mesh.New()
	a := m.AddVertex(geometry.NewVector3(0, 0, 0))
	b := m.AddVertex(geometry.NewVector3(1, 0, 0))
	c := m.AddVertex(geometry.NewVector3(0, 1, 0))

	tests := []struct {
		name    string
		tri     mesh.Triangle
		wantErr bool
	}{
		{name: "valid", tri: mesh.Triangle{a, b, c}},
		{name: "repeated index", tri: mesh.Triangle{a, a, c}, wantErr: true},
		{name: "out of range", tri: mesh.Triangle{a, b, 7}, wantErr: true},
		{name: "negative", tri: mesh.Triangle{-1, b, c}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.AddTriangle(tt.tri[0], tt.tri[1], tt.tri[2])
			if tt.wantErr {
				assert.ErrorIs(t, err, mesh.ErrInvalidTriangle)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, 1, m.TriangleCount())
}

func TestRemoveVertexDropsIncidentTriangles(t *testing.T) {
	m := unitBox()
	m.RemoveVertex(0)

	assert.Equal(t, 7, m.VertexCount())
	m.ForEachTriangle(func(_ int, tri mesh.Triangle) {
		assert.False(t, tri.Contains(0), "live triangle %v references removed vertex", tri)
	})
	// Corner 0 touches 6 of the 12 box triangles.
	assert.Equal(t, 6, m.TriangleCount())
}

func TestCompactRenumbers(t *testing.T) {
	m := unitBox()
	m.RemoveVertex(0)
	remap := m.Compact()

	assert.Equal(t, -1, remap.Vertices[0])
	assert.Equal(t, 0, remap.Vertices[1])
	assert.Equal(t, 6, remap.Vertices[7])
	assert.Equal(t, 7, m.VertexCap())
	assert.Equal(t, 6, m.TriangleCap())

	m.ForEachTriangle(func(_ int, tri mesh.Triangle) {
		for _, v := range tri {
			require.True(t, v >= 0 && v < m.VertexCount())
		}
	})
	// Relative order of the survivors is preserved.
	assert.Equal(t, geometry.NewVector3(1, 0, 0), m.Vertex(0))
}

func TestRedirect(t *testing.T) {
	m := unitBox()
	target := make([]int, m.VertexCap())
	for i := range target {
		target[i] = i
	}
	// Fold corner 1 onto corner 0.
	target[1] = 0
	collapsed := m.Redirect(target)

	// Edge 0-1 is shared by two triangles.
	assert.Equal(t, 2, collapsed)
	assert.Equal(t, 10, m.TriangleCount())
	assert.Equal(t, 7, m.VertexCount())
	assert.False(t, m.VertexAlive(1))
	m.ForEachTriangle(func(_ int, tri mesh.Triangle) {
		assert.False(t, tri.Contains(1))
	})
}

func TestRemoveUnreferenced(t *testing.T) {
	m := unitBox()
	extra := m.AddVertex(geometry.NewVector3(5, 5, 5))
	assert.Equal(t, 1, m.RemoveUnreferenced())
	assert.False(t, m.VertexAlive(extra))
	assert.Equal(t, 8, m.VertexCount())
}

func TestAdjacencyClosedBox(t *testing.T) {
	m := unitBox()
	adj := mesh.BuildAdjacency(m)

	assert.Len(t, adj.Edges(), 18)
	assert.True(t, adj.IsClosed())
	assert.Empty(t, adj.BoundaryEdges())
	assert.Empty(t, adj.NonManifoldEdges())
	assert.Len(t, adj.VertexTriangles(0), 6)

	for _, e := range adj.Edges() {
		assert.Less(t, e.A, e.B)
		assert.Len(t, adj.EdgeTriangles(mesh.Edge{A: e.B, B: e.A}), 2)
	}
}

func TestAdjacencyOpenBox(t *testing.T) {
	m := unitBox()
	m.RemoveTriangle(0)
	adj := mesh.BuildAdjacency(m)

	assert.False(t, adj.IsClosed())
	assert.Len(t, adj.BoundaryEdges(), 3)
	assert.False(t, m.IsClosed())
}

func TestComputeNormals(t *testing.T) {
	m := unitBox()
	m.ComputeNormals()

	require.True(t, m.HasNormals())
	n, ok := m.Normal(7)
	require.True(t, ok)
	expected := geometry.NewVector3(1, 1, 1).Normalize()
	assert.InDelta(t, expected.X, n.X, 1e-12)
	assert.InDelta(t, expected.Y, n.Y, 1e-12)
	assert.InDelta(t, expected.Z, n.Z, 1e-12)
}

func TestWelder(t *testing.T) {
	w := mesh.NewWelder(0.1)
	a, created := w.Add(geometry.NewVector3(0, 0, 0))
	assert.True(t, created)
	b, created := w.Add(geometry.NewVector3(0.05, 0, 0))
	assert.False(t, created)
	assert.Equal(t, a, b)
	c, created := w.Add(geometry.NewVector3(0.25, 0, 0))
	assert.True(t, created)
	assert.NotEqual(t, a, c)
	// The representative keeps its first position.
	assert.Equal(t, geometry.NewVector3(0, 0, 0), w.Points()[a])
}

func TestWelderExact(t *testing.T) {
	w := mesh.NewWelder(0)
	a, _ := w.Add(geometry.NewVector3(1, 2, 3))
	b, _ := w.Add(geometry.NewVector3(1, 2, 3))
	c, _ := w.Add(geometry.NewVector3(1, 2, 3.0000001))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestViewAndTriangleReader(t *testing.T) {
	m := unitBox()
	m.RemoveTriangle(3)
	v := m.View()

	assert.Equal(t, 8, v.VertexCount())
	assert.Equal(t, 11, v.TriangleCount())
	assert.Len(t, v.Indices(), 33)
	_, ok := v.Normals()
	assert.False(t, ok)

	r := mesh.NewTriangleReader(v)
	buf := make([]r3.Triangle, 4)
	total := 0
	for {
		n, err := r.ReadTriangles(buf)
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 11, total)
}

func TestCloneAndEqual(t *testing.T) {
	m := unitBox()
	c := m.Clone()
	assert.True(t, m.Equal(c))

	c.SetVertex(0, geometry.NewVector3(-1, 0, 0))
	assert.False(t, m.Equal(c))

	// Tombstones are invisible to Equal.
	d := m.Clone()
	d.AddVertex(geometry.NewVector3(9, 9, 9))
	d.RemoveVertex(8)
	assert.True(t, m.Equal(d))
}

func TestAppend(t *testing.T) {
	m := unitBox()
	offset := meshtest.Append(m, meshtest.Box(geometry.NewVector3(3, 0, 0), geometry.NewVector3(4, 1, 1)))
	assert.Equal(t, 8, offset)
	assert.Equal(t, 16, m.VertexCount())
	assert.Equal(t, 24, m.TriangleCount())
}

func TestFormatErrorUnwrap(t *testing.T) {
	err := &mesh.FormatError{Format: "stl", Offset: 84, Element: "triangle", Index: 2, Kind: mesh.ErrUnsupportedFormat, Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, mesh.ErrUnsupportedFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "triangle 2")
	assert.Contains(t, err.Error(), "byte offset 84")
}

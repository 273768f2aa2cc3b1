package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/philipparndt/voxmesh/internal/meshtest"
	"github.com/philipparndt/voxmesh/pkg/extract"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box() *mesh.Mesh {
	return meshtest.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 3, 4))
}

func openBox() *mesh.Mesh {
	m := box()
	m.RemoveTriangle(0)
	return m
}

func TestBoxQueries(t *testing.T) {
	m := box()

	assert.InDelta(t, 52.0, SurfaceArea(m), 1e-12)
	vol, err := Volume(m)
	require.NoError(t, err)
	assert.InDelta(t, 24.0, vol, 1e-12)
	// Any reference point gives the same volume for a closed mesh.
	assert.InDelta(t, 24.0, SignedVolume(m, geometry.NewVector3(-7, 11, 3)), 1e-9)

	bounds := BoundingBox(m)
	assert.Equal(t, geometry.NewVector3(0, 0, 0), bounds.Min)
	assert.Equal(t, geometry.NewVector3(2, 3, 4), bounds.Max)

	c := Centroid(m)
	assert.InDelta(t, 1.0, c.X, 1e-12)
	assert.InDelta(t, 1.5, c.Y, 1e-12)
	assert.InDelta(t, 2.0, c.Z, 1e-12)
}

func TestVolumeRequiresClosedMesh(t *testing.T) {
	_, err := Volume(openBox())
	assert.ErrorIs(t, err, ErrNotClosed)
	_, err = Sphericity(openBox())
	assert.ErrorIs(t, err, ErrNotClosed)
	_, err = Volume(mesh.New())
	assert.ErrorIs(t, err, ErrNotClosed)
}

func TestEmptyMesh(t *testing.T) {
	m := mesh.New()
	assert.Equal(t, 0.0, SurfaceArea(m))
	assert.True(t, BoundingBox(m).Empty())
	assert.Equal(t, geometry.Vector3{}, Centroid(m))

	result := AnalyzeMesh(m)
	assert.Equal(t, 0, result.EdgeCount)
	assert.Equal(t, 0.0, result.MinEdgeLength)
	assert.Equal(t, geometry.Vector3{}, result.Dimensions)

	i, _, _ := FindNearestVertex(m, geometry.Vector3{})
	assert.Equal(t, -1, i)
}

func TestAnalyzeMesh(t *testing.T) {
	result := AnalyzeMesh(box())

	assert.Equal(t, 8, result.VertexCount)
	assert.Equal(t, 12, result.TriangleCount)
	assert.Equal(t, 18, result.EdgeCount)
	assert.True(t, result.Closed)
	assert.Equal(t, 0, result.BoundaryEdges)
	assert.InDelta(t, 24.0, result.Volume, 1e-12)
	assert.Equal(t, geometry.NewVector3(2, 3, 4), result.Dimensions)
	assert.Equal(t, 2.0, result.MinEdgeLength)
	assert.InDelta(t, 5.0, result.MaxEdgeLength, 1e-12)
	for _, e := range result.AllEdges {
		assert.Equal(t, 2, e.Triangles)
	}

	open := AnalyzeMesh(openBox())
	assert.False(t, open.Closed)
	assert.Equal(t, 3, open.BoundaryEdges)
	assert.Equal(t, 0.0, open.Volume)
}

func TestEdgeFinders(t *testing.T) {
	result := AnalyzeMesh(box())

	longest := FindLongestEdges(result, 2)
	require.Len(t, longest, 2)
	assert.InDelta(t, 5.0, longest[0].Length, 1e-12)
	assert.GreaterOrEqual(t, longest[0].Length, longest[1].Length)

	shortest := FindShortestEdges(result, 100)
	assert.Len(t, shortest, 18)
	assert.Equal(t, 2.0, shortest[0].Length)

	assert.Empty(t, FindLongestEdges(result, -1))
	// Four edges along x.
	assert.Len(t, FindEdgesByLength(result, 1.9, 2.1), 4)
}

func TestFindNearestVertex(t *testing.T) {
	m := box()
	i, p, d := FindNearestVertex(m, geometry.NewVector3(2.1, 2.9, 0.2))
	assert.Equal(t, 3, i)
	assert.Equal(t, geometry.NewVector3(2, 3, 0), p)
	assert.InDelta(t, math.Sqrt(0.06), d, 1e-12)
}

func TestShapeDescriptors(t *testing.T) {
	b, err := Boxivity(box())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, b, 1e-12)

	const r, h = 1.0, 0.1
	n := int(math.Ceil(2.6*r/h)) + 1
	c := float64(n-1) * h / 2
	g, err := volume.FromFunc(n, n, n, h, h, h, func(x, y, z int) float64 {
		dx, dy, dz := float64(x)*h-c, float64(y)*h-c, float64(z)*h-c
		return r - math.Sqrt(dx*dx+dy*dy+dz*dz)
	})
	require.NoError(t, err)
	m, _, err := extract.Extract(context.Background(), g, extract.Options{})
	require.NoError(t, err)

	s, err := Sphericity(m)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 0.01)

	compactness, err := Compactness(m)
	require.NoError(t, err)
	assert.InDelta(t, s*s*s, compactness, 1e-9)

	b, err = Boxivity(m)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/6, b, 0.02)

	cube, err := Sphericity(box())
	require.NoError(t, err)
	assert.Less(t, cube, s)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "(1.000000, -2.500000, 0.000000)", FormatVector(geometry.NewVector3(1, -2.5, 0)))
	assert.Equal(t, "3.000000 units", FormatMeasurement(3, ""))
	assert.Equal(t, "3.000000 mm", FormatMeasurement(3, "mm"))
}

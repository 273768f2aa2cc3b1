package simplify

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

func sphere(t *testing.T) *mesh.Mesh {
	t.Helper()
	const radius, h = 1.0, 0.2
	n := int(math.Ceil(2.6*radius/h)) + 1
	c := float64(n-1) * h / 2
	g, err := volume.FromFunc(n, n, n, h, h, h, func(x, y, z int) float64 {
		dx, dy, dz := float64(x)*h-c, float64(y)*h-c, float64(z)*h-c
		return radius - math.Sqrt(dx*dx+dy*dy+dz*dz)
	})
	require.NoError(t, err)
	m, _, err := extract.Extract(context.Background(), g, extract.Options{})
	require.NoError(t, err)
	require.True(t, m.IsClosed())
	return m
}

// plane is an n x n grid of unit squares in z = 0
func plane(n int) *mesh.Mesh {
	m := mesh.New()
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.AddVertex(geometry.NewVector3(float64(x), float64(y), 0))
		}
	}
	at := func(x, y int) int { return y*(n+1) + x }
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			_, _ = m.AddTriangle(at(x, y), at(x+1, y), at(x+1, y+1))
			_, _ = m.AddTriangle(at(x, y), at(x+1, y+1), at(x, y+1))
		}
	}
	return m
}

func area(m *mesh.Mesh) float64 {
	total := 0.0
	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		total += m.Geometry(i).Area()
	})
	return total
}

// assertValid checks for a compacted mesh without dangling or repeated
// indices.
func assertValid(t *testing.T, m *mesh.Mesh) {
	t.Helper()
	assert.Equal(t, m.VertexCap(), m.VertexCount())
	assert.Equal(t, m.TriangleCap(), m.TriangleCount())
	referenced := make([]bool, m.VertexCount())
	m.ForEachTriangle(func(_ int, tri mesh.Triangle) {
		for _, v := range tri {
			require.Less(t, v, m.VertexCount())
			referenced[v] = true
		}
		assert.NotEqual(t, tri[0], tri[1])
		assert.NotEqual(t, tri[1], tri[2])
		assert.NotEqual(t, tri[0], tri[2])
	})
	for v, ok := range referenced {
		assert.True(t, ok, "vertex %d is unreferenced", v)
	}
}

func TestSimplifyReachesEvenTarget(t *testing.T) {
	m := sphere(t)
	before := m.Clone()

	out, stats, err := Simplify(context.Background(), m, Options{TargetTriangles: 400})
	require.NoError(t, err)
	assert.True(t, m.Equal(before), "input must not be modified")

	assert.Equal(t, 400, out.TriangleCount())
	assert.Equal(t, m.TriangleCount(), stats.InitialTriangles)
	assert.Equal(t, 400, stats.FinalTriangles)
	assert.Equal(t, StopTarget, stats.Stopped)
	assert.Equal(t, (m.TriangleCount()-400)/2, stats.Collapses)
	assert.True(t, out.IsClosed())
	assertValid(t, out)
}

func TestSimplifyOddTargetOnClosedSurface(t *testing.T) {
	m := sphere(t)

	out, stats, err := Simplify(context.Background(), m, Options{TargetTriangles: 301})
	require.NoError(t, err)
	assert.Equal(t, 302, out.TriangleCount())
	assert.Equal(t, StopTarget, stats.Stopped)
	assert.True(t, out.IsClosed())
}

func TestSimplifyTargetRatio(t *testing.T) {
	m := sphere(t)
	want := int(math.Round(0.5 * float64(m.TriangleCount())))

	out, _, err := Simplify(context.Background(), m, Options{TargetRatio: 0.5})
	require.NoError(t, err)
	// Closed meshes have an even count, so half of it may be odd.
	assert.InDelta(t, want, out.TriangleCount(), 1)
	assert.GreaterOrEqual(t, out.TriangleCount(), want)
}

func TestSimplifyKeepsSphereShape(t *testing.T) {
	m := sphere(t)

	out, _, err := Simplify(context.Background(), m, Options{TargetTriangles: 200})
	require.NoError(t, err)
	out.ForEachVertex(func(_ int, p geometry.Vector3) {
		center := geometry.NewVector3(1.3, 1.3, 1.3)
		assert.InDelta(t, 1.0, p.Distance(center), 0.15)
	})
}

func TestSimplifyTargetAboveInput(t *testing.T) {
	m := meshtest.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))

	out, stats, err := Simplify(context.Background(), m, Options{TargetTriangles: 100})
	require.NoError(t, err)
	assert.True(t, out.Equal(m))
	assert.Equal(t, 0, stats.Collapses)
	assert.Equal(t, StopTarget, stats.Stopped)
}

func TestSimplifyStopsAtMaxError(t *testing.T) {
	m := sphere(t)

	out, stats, err := Simplify(context.Background(), m, Options{MaxError: 1e-3})
	require.NoError(t, err)
	assert.Equal(t, StopMaxError, stats.Stopped)
	assert.LessOrEqual(t, stats.MaxCost, 1e-3)
	assert.Less(t, out.TriangleCount(), m.TriangleCount())
	assert.Greater(t, out.TriangleCount(), 0)
	assertValid(t, out)
}

func TestSimplifyFlatRegionKeepsBoundary(t *testing.T) {
	m := plane(6)
	require.Equal(t, 72, m.TriangleCount())

	out, stats, err := Simplify(context.Background(), m, Options{MaxError: 1e-9})
	require.NoError(t, err)
	assert.Less(t, out.TriangleCount(), 18)
	assert.GreaterOrEqual(t, out.TriangleCount(), 2)
	assert.Contains(t, []StopReason{StopMaxError, StopExhausted}, stats.Stopped)
	assert.InDelta(t, 36.0, area(out), 1e-9)

	bounds := geometry.NewBoundingBox()
	out.ForEachVertex(func(_ int, p geometry.Vector3) {
		assert.InDelta(t, 0.0, p.Z, 1e-12)
		bounds.Extend(p)
	})
	assert.InDelta(t, 0.0, bounds.Min.X, 1e-9)
	assert.InDelta(t, 6.0, bounds.Max.Y, 1e-9)
	assertValid(t, out)
}

func TestSimplifyIndependentOfWorkers(t *testing.T) {
	m := sphere(t)

	one, s1, err := Simplify(context.Background(), m, Options{TargetTriangles: 300, Workers: 1})
	require.NoError(t, err)
	four, s4, err := Simplify(context.Background(), m, Options{TargetTriangles: 300, Workers: 4})
	require.NoError(t, err)
	assert.True(t, one.Equal(four))
	assert.Equal(t, s1, s4)
}

// countdown reports cancellation after a fixed number of Err calls
type countdown struct {
	context.Context
	left int
}

func (c *countdown) Err() error {
	if c.left <= 0 {
		return context.Canceled
	}
	c.left--
	return nil
}

func TestSimplifyCancelled(t *testing.T) {
	m := sphere(t)
	ctx := &countdown{Context: context.Background(), left: 50}

	out, stats, err := Simplify(ctx, m, Options{TargetTriangles: 10})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, StopCancelled, stats.Stopped)
	assert.LessOrEqual(t, stats.Collapses, 50)
	assert.Less(t, out.TriangleCount(), m.TriangleCount())
	assert.Equal(t, out.TriangleCount(), stats.FinalTriangles)
	assert.True(t, out.IsClosed())
	assertValid(t, out)
}

func TestSimplifyCancelledBeforeStart(t *testing.T) {
	m := sphere(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, stats, err := Simplify(ctx, m, Options{TargetTriangles: 10})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, m.TriangleCount(), out.TriangleCount())
	assert.Equal(t, StopCancelled, stats.Stopped)
}

func TestSimplifyInvalidOptions(t *testing.T) {
	m := meshtest.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))
	tests := []struct {
		name string
		opts Options
	}{
		{name: "negative target", opts: Options{TargetTriangles: -1}},
		{name: "ratio above one", opts: Options{TargetRatio: 1.5}},
		{name: "nan error", opts: Options{MaxError: math.NaN()}},
		{name: "deviation", opts: Options{TargetTriangles: 4, MaxNormalDeviation: 4}},
		{name: "no goal", opts: Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Simplify(context.Background(), m, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestOptimalPointFallsBackWhenSingular(t *testing.T) {
	a := geometry.NewVector3(0, 0, 0)
	b := geometry.NewVector3(2, 0, 0)
	q := planeQuadric(geometry.NewVector3(0, 0, 1), 0, 1)

	_, ok := optimalPoint(q, a, b)
	assert.False(t, ok)
	assert.Equal(t, geometry.NewVector3(1, 0, 0), fallbackPoint(q, a, b))

	corner := planeQuadric(geometry.NewVector3(1, 0, 0), 0, 1).
		Add(planeQuadric(geometry.NewVector3(0, 1, 0), 0, 1)).
		Add(q)
	p, ok := optimalPoint(corner, geometry.NewVector3(0.1, 0.1, 0), geometry.NewVector3(1, 1, 0))
	require.True(t, ok)
	assert.InDelta(t, 0.0, p.Length(), 1e-12)
	assert.InDelta(t, 0.0, quadricError(corner, p), 1e-12)
}

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/voxmesh/internal/config"
	"github.com/philipparndt/voxmesh/pkg/analysis"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/meshio"
	"github.com/philipparndt/voxmesh/pkg/simplify"
	"github.com/philipparndt/voxmesh/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, quietLogger())
	require.NoError(t, err)
	return p
}

// voxels returns an nx x ny x nz grid of zeros with the given voxels set
func voxels(t *testing.T, nx, ny, nz int, set map[[3]int]float64) *volume.Grid {
	t.Helper()
	g, err := volume.FromFunc(nx, ny, nz, 1, 1, 1, func(x, y, z int) float64 {
		return set[[3]int{x, y, z}]
	})
	require.NoError(t, err)
	return g
}

func sphere(t *testing.T) *volume.Grid {
	t.Helper()
	const h, c = 0.2, 1.3
	g, err := volume.FromFunc(14, 14, 14, h, h, h, func(x, y, z int) float64 {
		dx, dy, dz := float64(x)*h-c, float64(y)*h-c, float64(z)*h-c
		return 1 - math.Sqrt(dx*dx+dy*dy+dz*dz)
	})
	require.NoError(t, err)
	return g
}

func TestProcessKeepsLargestComponent(t *testing.T) {
	// A single voxel becomes an octahedron; the pair becomes a larger blob.
	g := voxels(t, 8, 3, 3, map[[3]int]float64{
		{1, 1, 1}: 1,
		{4, 1, 1}: 1,
		{5, 1, 1}: 1,
	})
	cfg := config.Default()
	cfg.Repair.Keep = "largest"

	result, err := newPipeline(t, cfg).Process(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultIsoValue, result.IsoValue)
	assert.Nil(t, result.Simplify)
	require.NotNil(t, result.Repair)
	assert.Equal(t, 1, result.Repair.Components)
	assert.Equal(t, 1, result.Repair.RemovedComponents)
	assert.True(t, result.Mesh.IsClosed())

	box := analysis.BoundingBox(result.Mesh)
	assert.InDelta(t, 4.5, box.Center().X, 1e-12)
	assert.Greater(t, result.Extract.Triangles, result.Mesh.TriangleCount())
}

func TestProcessLabel(t *testing.T) {
	g := voxels(t, 6, 3, 3, map[[3]int]float64{
		{1, 1, 1}: 2,
		{4, 1, 1}: 1,
	})
	label := 2.0
	cfg := config.Default()
	cfg.Extract.Label = &label
	cfg.Input.Spacing = []float64{2, 2, 2}

	result, err := newPipeline(t, cfg).Process(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Mesh.TriangleCount())
	assert.Equal(t, 6, result.Mesh.VertexCount())
	box := analysis.BoundingBox(result.Mesh)
	assert.Equal(t, geometry.NewVector3(2, 2, 2), box.Center())
	assert.Equal(t, geometry.NewVector3(2, 2, 2), box.Size())
}

func TestProcessThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Extract.Threshold = "otsu"

	result, err := newPipeline(t, cfg).Process(context.Background(), sphere(t))
	require.NoError(t, err)

	want, err := volume.Threshold(sphere(t), volume.Otsu)
	require.NoError(t, err)
	assert.Equal(t, want, result.IsoValue)
	assert.True(t, result.Mesh.IsClosed())
}

func TestProcessSimplifies(t *testing.T) {
	cfg := config.Default()
	// At zero the sphere has radius 1, well above the target.
	zero := 0.0
	cfg.Extract.IsoValue = &zero
	cfg.Repair.Enabled = false
	cfg.Simplify.TargetTriangles = 400

	result, err := newPipeline(t, cfg).Process(context.Background(), sphere(t))
	require.NoError(t, err)

	assert.Greater(t, result.Extract.Triangles, 400)
	assert.Nil(t, result.Repair)
	require.NotNil(t, result.Simplify)
	assert.Equal(t, result.Extract.Triangles, result.Simplify.InitialTriangles)
	assert.Equal(t, simplify.StopTarget, result.Simplify.Stopped)
	assert.Equal(t, 400, result.Mesh.TriangleCount())
	assert.True(t, result.Mesh.IsClosed())
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, config.Default()).Process(ctx, sphere(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWritesMesh(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "voxel.json")
	require.NoError(t, os.WriteFile(input, []byte("[[[1]]]"), 0o644))

	cfg := config.Default()
	cfg.Input.Path = input
	cfg.Output.Path = filepath.Join(dir, "voxel.stl")

	result, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Output.Path, result.Output)
	assert.True(t, result.Elapsed > 0)

	m, err := meshio.ReadFile(cfg.Output.Path, meshio.Options{})
	require.NoError(t, err)
	assert.Equal(t, 8, m.TriangleCount())
	assert.Equal(t, 6, m.VertexCount())
	assert.True(t, m.IsClosed())
}

func TestRunWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "voxel.json")
	require.NoError(t, os.WriteFile(input, []byte("[[[1]]]"), 0o644))

	cfg := config.Default()
	cfg.Input.Path = input

	result, err := newPipeline(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Output)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunErrors(t *testing.T) {
	_, err := newPipeline(t, config.Default()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoInput)

	cfg := config.Default()
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.binvox")
	_, err = newPipeline(t, cfg).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Simplify.TargetRatio = 2

	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// Package extract turns a scalar volume into a triangle mesh with marching
// cubes.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"github.com/philipparndt/voxmesh/pkg/volume"
	"golang.org/x/sync/errgroup"
)

// DefaultSlabDepth is the number of cube layers handed to a worker at once
const DefaultSlabDepth = 4

// ErrInvalidOptions is returned for a non-finite iso value
var ErrInvalidOptions = errors.New("invalid extraction options")

// Options controls an extraction run
type Options struct {
	// IsoValue separates inside (sample >= IsoValue) from outside.
	IsoValue float64
	// Workers bounds the number of slabs processed concurrently. Zero means
	// GOMAXPROCS.
	Workers int
	// SlabDepth is the number of cube layers per work unit. Zero means
	// DefaultSlabDepth.
	SlabDepth int
}

// Stats summarizes an extraction run
type Stats struct {
	Cubes        int // cubes visited, halo included
	ActiveCubes  int // cubes the surface passes through
	SkippedCubes int // cubes with a NaN corner
	Vertices     int
	Triangles    int
}

func (s *Stats) add(other Stats) {
	s.Cubes += other.Cubes
	s.ActiveCubes += other.ActiveCubes
	s.SkippedCubes += other.SkippedCubes
}

// Extract builds the isosurface of v at opts.IsoValue.
//
// The lattice is surrounded by an implicit halo of outside samples, so a
// region touching the volume border is still closed off; crossings on halo
// edges sit halfway along the edge. Triangles are wound so their normals
// point out of the inside region, toward lower sample values. Cubes with a
// NaN corner produce no triangles and leave the surface open there.
//
// The output is the same for every Workers and SlabDepth setting.
func Extract(ctx context.Context, v volume.Volume, opts Options) (*mesh.Mesh, Stats, error) {
	if err := volume.Validate(v); err != nil {
		return nil, Stats{}, err
	}
	if math.IsNaN(opts.IsoValue) || math.IsInf(opts.IsoValue, 0) {
		return nil, Stats{}, fmt.Errorf("%w: iso value %v", ErrInvalidOptions, opts.IsoValue)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	depth := opts.SlabDepth
	if depth <= 0 {
		depth = DefaultSlabDepth
	}

	e := newExtractor(v, opts.IsoValue)

	// Cube layers run from -1 to nz-1.
	var slabs []*slab
	for z0 := -1; z0 < e.nz; z0 += depth {
		slabs = append(slabs, &slab{z0: z0, z1: min(z0+depth, e.nz)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range slabs {
		s := s
		g.Go(func() error {
			return e.run(gctx, s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	m, stats, err := merge(slabs)
	if err != nil {
		return nil, Stats{}, err
	}
	return m, stats, nil
}

// ExtractLabel builds the boundary surface of every sample equal to label
func ExtractLabel(ctx context.Context, v volume.Volume, label float64, opts Options) (*mesh.Mesh, Stats, error) {
	opts.IsoValue = 0.5
	return Extract(ctx, volume.Labels(v, label), opts)
}

type slab struct {
	z0, z1    int // cube layers [z0, z1)
	cache     *edgeCache
	triangles [][3]int
	stats     Stats
}

type extractor struct {
	vol        volume.Volume
	iso        float64
	nx, ny, nz int
	sx, sy, sz float64
}

func newExtractor(v volume.Volume, iso float64) *extractor {
	e := &extractor{vol: v, iso: iso}
	e.nx, e.ny, e.nz = v.Dimensions()
	e.sx, e.sy, e.sz = v.Spacing()
	return e
}

// layer holds one z plane of samples. A halo layer has no samples.
type layer struct {
	z      int
	halo   bool
	values []float64
}

func (e *extractor) readLayer(z int, l *layer) error {
	l.z = z
	l.halo = z < 0 || z >= e.nz
	if l.halo {
		return nil
	}
	if l.values == nil {
		l.values = make([]float64, e.nx*e.ny)
	}
	for y := 0; y < e.ny; y++ {
		for x := 0; x < e.nx; x++ {
			s, err := e.vol.Sample(x, y, z)
			if err != nil {
				return fmt.Errorf("failed to read sample (%d, %d, %d): %w", x, y, z, err)
			}
			l.values[x+e.nx*y] = s
		}
	}
	return nil
}

func (e *extractor) at(l *layer, x, y int) (float64, bool) {
	if l.halo || x < 0 || y < 0 || x >= e.nx || y >= e.ny {
		return 0, false
	}
	return l.values[x+e.nx*y], true
}

// cube holds the corner samples of the cube whose lowest corner is (x, y, z)
type cube struct {
	x, y, z int
	values  [8]float64
	present [8]bool // false for halo corners
}

func (e *extractor) run(ctx context.Context, s *slab) error {
	s.cache = newEdgeCache()
	below, above := &layer{}, &layer{}
	if err := e.readLayer(s.z0, below); err != nil {
		return err
	}

	for cz := s.z0; cz < s.z1; cz++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.readLayer(cz+1, above); err != nil {
			return err
		}
		layers := [2]*layer{below, above}

		for cy := -1; cy < e.ny; cy++ {
			for cx := -1; cx < e.nx; cx++ {
				s.stats.Cubes++
				c := cube{x: cx, y: cy, z: cz}
				config, ok := e.classify(&c, layers)
				if !ok {
					s.stats.SkippedCubes++
					continue
				}
				if config == 0 || config == 255 {
					continue
				}
				s.stats.ActiveCubes++
				for _, t := range triangleTable[config] {
					s.triangles = append(s.triangles, [3]int{
						e.vertex(s.cache, &c, t[0]),
						e.vertex(s.cache, &c, t[1]),
						e.vertex(s.cache, &c, t[2]),
					})
				}
			}
		}
		below, above = above, below
	}
	return nil
}

// classify loads the corners of c and returns its configuration. It reports
// false when a corner is NaN.
func (e *extractor) classify(c *cube, layers [2]*layer) (int, bool) {
	config := 0
	for i, o := range cornerOffsets {
		value, ok := e.at(layers[o[2]], c.x+o[0], c.y+o[1])
		c.values[i], c.present[i] = value, ok
		if !ok {
			continue
		}
		if math.IsNaN(value) {
			return 0, false
		}
		if value >= e.iso {
			config |= 1 << i
		}
	}
	return config, true
}

// vertex returns the slab-local vertex on cube edge edge of c
func (e *extractor) vertex(cache *edgeCache, c *cube, edge int) int {
	ce := cubeEdges[edge]
	o := cornerOffsets[ce.lower]
	x, y, z := c.x+o[0], c.y+o[1], c.z+o[2]

	return cache.vertex(e.edgeKey(x, y, z, ce.axis), z, func() geometry.Vector3 {
		t := 0.5
		if c.present[ce.lower] && c.present[ce.upper] {
			v0, v1 := c.values[ce.lower], c.values[ce.upper]
			t = (e.iso - v0) / (v1 - v0)
		}
		x1, y1, z1 := x, y, z
		switch ce.axis {
		case 0:
			x1++
		case 1:
			y1++
		default:
			z1++
		}
		return e.world(x, y, z).Lerp(e.world(x1, y1, z1), t)
	})
}

// edgeKey identifies a lattice edge by its lower endpoint and axis. Endpoints
// range over [-1, n] on each axis.
func (e *extractor) edgeKey(x, y, z, axis int) int64 {
	nx, ny := int64(e.nx+2), int64(e.ny+2)
	return ((int64(z+1)*ny+int64(y+1))*nx+int64(x+1))*3 + int64(axis)
}

func (e *extractor) world(x, y, z int) geometry.Vector3 {
	return geometry.NewVector3(float64(x)*e.sx, float64(y)*e.sy, float64(z)*e.sz)
}

// merge joins the slabs in z order. Only the plane between two neighbouring
// slabs can hold vertices both of them created.
func merge(slabs []*slab) (*mesh.Mesh, Stats, error) {
	var stats Stats
	vertices, triangles := 0, 0
	for _, s := range slabs {
		vertices += s.cache.size()
		triangles += len(s.triangles)
	}
	m := mesh.NewWithCapacity(vertices, triangles)

	var shared map[int64]int
	for _, s := range slabs {
		local := make([]int, s.cache.size())
		top := make(map[int64]int)
		for i, entry := range s.cache.entries {
			index, ok := shared[entry.key]
			if !ok {
				index = m.AddVertex(entry.position)
			}
			local[i] = index
			if entry.z == s.z1 {
				top[entry.key] = index
			}
		}
		shared = top

		for _, t := range s.triangles {
			if _, err := m.AddTriangle(local[t[0]], local[t[1]], local[t[2]]); err != nil {
				return nil, Stats{}, fmt.Errorf("failed to assemble slab at z=%d: %w", s.z0, err)
			}
		}
		stats.add(s.stats)
	}

	stats.Vertices = m.VertexCount()
	stats.Triangles = m.TriangleCount()
	return m, stats, nil
}

// Package simplify reduces triangle count with quadric error metric edge
// collapses (Garland and Heckbert).
package simplify

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxNormalDeviation rejects collapses that turn a face by more
	// than a right angle.
	DefaultMaxNormalDeviation = math.Pi / 2
	// DefaultBoundaryWeight scales the planes that pin boundary edges.
	DefaultBoundaryWeight = 1000.0
)

// ErrInvalidOptions is returned for negative or missing targets
var ErrInvalidOptions = errors.New("invalid simplification options")

// Options controls a simplification run. At least one of TargetTriangles,
// TargetRatio and MaxError must be set.
type Options struct {
	// TargetTriangles is the triangle count to reach.
	TargetTriangles int
	// TargetRatio sets the target as a fraction of the input triangles when
	// TargetTriangles is zero.
	TargetRatio float64
	// MaxError stops the run once the cheapest collapse costs more. Zero
	// means unbounded.
	MaxError float64
	// MaxNormalDeviation is the largest rotation, in radians, allowed for a
	// surviving face. Zero means DefaultMaxNormalDeviation.
	MaxNormalDeviation float64
	// BoundaryWeight scales the boundary-preserving planes. Zero means
	// DefaultBoundaryWeight.
	BoundaryWeight float64
	// Workers bounds the goroutines used for the initial quadric and cost
	// pass. Zero means GOMAXPROCS.
	Workers int
}

// StopReason tells why a run ended
type StopReason string

const (
	StopTarget    StopReason = "target"
	StopMaxError  StopReason = "max-error"
	StopExhausted StopReason = "exhausted"
	StopCancelled StopReason = "cancelled"
)

// Stats summarizes a simplification run
type Stats struct {
	InitialTriangles  int
	FinalTriangles    int
	Collapses         int
	Rejected          int // collapses refused by the link or normal checks
	SingularFallbacks int // edges placed at midpoint or endpoint
	MaxCost           float64
	Stopped           StopReason
}

// Simplify returns a simplified copy of m; m itself is not modified.
//
// Every collapse removes at least one triangle, so the run terminates. On a
// closed surface each collapse removes two triangles, so an odd target ends
// one triangle above it. When ctx is cancelled between collapses the partial
// result is returned, compacted and valid, together with ctx.Err().
func Simplify(ctx context.Context, m *mesh.Mesh, opts Options) (*mesh.Mesh, Stats, error) {
	if err := validate(opts); err != nil {
		return nil, Stats{}, err
	}

	work := m.Clone()
	work.Compact()
	initial := work.TriangleCount()

	target := opts.TargetTriangles
	if target == 0 && opts.TargetRatio > 0 {
		target = int(math.Round(opts.TargetRatio * float64(initial)))
	}
	if target >= initial {
		return work, Stats{InitialTriangles: initial, FinalTriangles: initial, Stopped: StopTarget}, nil
	}

	s := newSimplifier(work, opts)
	// Preparation only fails when ctx is done; the mesh is still untouched.
	if err := s.prepare(ctx); err != nil {
		s.stats.Stopped = StopCancelled
		return s.finish(), s.stats, err
	}

	current := work.TriangleCount()
	parity := false
	for current > target {
		if err := ctx.Err(); err != nil {
			s.stats.Stopped = StopCancelled
			return s.finish(), s.stats, err
		}
		if s.queue.Len() == 0 {
			s.stats.Stopped = StopExhausted
			break
		}
		c := heap.Pop(&s.queue).(candidate)
		if s.stale(c) {
			continue
		}
		if opts.MaxError > 0 && c.cost > opts.MaxError {
			s.stats.Stopped = StopMaxError
			break
		}
		if c.removes < 1 {
			continue
		}
		if current-c.removes < target {
			parity = true
			continue
		}
		if !s.legal(c) {
			s.stats.Rejected++
			continue
		}
		current -= s.collapse(c)
		s.stats.Collapses++
		s.stats.MaxCost = math.Max(s.stats.MaxCost, c.cost)
	}
	// A closed surface cannot land on an odd target; one above it counts.
	if current <= target || (parity && current == target+1) {
		s.stats.Stopped = StopTarget
	}
	return s.finish(), s.stats, nil
}

func validate(opts Options) error {
	switch {
	case opts.TargetTriangles < 0:
		return fmt.Errorf("%w: negative target %d", ErrInvalidOptions, opts.TargetTriangles)
	case !(opts.TargetRatio >= 0 && opts.TargetRatio <= 1):
		return fmt.Errorf("%w: target ratio %v outside [0, 1]", ErrInvalidOptions, opts.TargetRatio)
	case !(opts.MaxError >= 0) || math.IsInf(opts.MaxError, 0):
		return fmt.Errorf("%w: max error %v", ErrInvalidOptions, opts.MaxError)
	case !(opts.MaxNormalDeviation >= 0 && opts.MaxNormalDeviation <= math.Pi):
		return fmt.Errorf("%w: normal deviation %v outside [0, pi]", ErrInvalidOptions, opts.MaxNormalDeviation)
	case !(opts.BoundaryWeight >= 0) || math.IsInf(opts.BoundaryWeight, 0):
		return fmt.Errorf("%w: boundary weight %v", ErrInvalidOptions, opts.BoundaryWeight)
	case opts.TargetTriangles == 0 && opts.TargetRatio == 0 && opts.MaxError == 0:
		return fmt.Errorf("%w: no target triangle count, ratio or error bound", ErrInvalidOptions)
	}
	return nil
}

type simplifier struct {
	m              *mesh.Mesh
	workers        int
	boundaryWeight float64
	cosMax         float64

	quadrics []mgl64.Mat4
	incident [][]int // vertex -> triangles; may hold removed triangles
	version  []int
	merged   []bool // vertices folded into a neighbour
	queue    collapseQueue
	stats    Stats
}

func newSimplifier(m *mesh.Mesh, opts Options) *simplifier {
	s := &simplifier{
		m:              m,
		workers:        opts.Workers,
		boundaryWeight: opts.BoundaryWeight,
		quadrics:       make([]mgl64.Mat4, m.VertexCap()),
		incident:       make([][]int, m.VertexCap()),
		version:        make([]int, m.VertexCap()),
		merged:         make([]bool, m.VertexCap()),
		stats:          Stats{InitialTriangles: m.TriangleCount()},
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if s.boundaryWeight == 0 {
		s.boundaryWeight = DefaultBoundaryWeight
	}
	deviation := opts.MaxNormalDeviation
	if deviation == 0 {
		deviation = DefaultMaxNormalDeviation
	}
	s.cosMax = math.Cos(deviation)
	return s
}

// prepare accumulates the vertex quadrics and queues every edge. Both passes
// fan out over vertex and edge ranges; each vertex sums its planes in
// triangle order, so the result does not depend on the worker count.
func (s *simplifier) prepare(ctx context.Context) error {
	s.m.ForEachTriangle(func(i int, t mesh.Triangle) {
		for _, v := range t {
			s.incident[v] = append(s.incident[v], i)
		}
	})

	adj := mesh.BuildAdjacency(s.m)
	boundary := make([][]mgl64.Mat4, s.m.VertexCap())
	for _, e := range adj.BoundaryEdges() {
		t := adj.EdgeTriangles(e)[0]
		tri := s.m.Triangle(t)
		normal := s.m.Geometry(t).CalculateNormal()
		// Walk the edge in the triangle's winding.
		from, to := e.A, e.B
		for k := 0; k < 3; k++ {
			if tri[k] == e.B && tri[(k+1)%3] == e.A {
				from, to = e.B, e.A
			}
		}
		q := boundaryQuadric(s.m.Vertex(from), s.m.Vertex(to), normal, s.boundaryWeight)
		boundary[e.A] = append(boundary[e.A], q)
		boundary[e.B] = append(boundary[e.B], q)
	}

	err := parallel(ctx, s.m.VertexCap(), s.workers, func(lo, hi int) error {
		for v := lo; v < hi; v++ {
			var q mgl64.Mat4
			for _, t := range s.incident[v] {
				q = q.Add(triangleQuadric(s.m.Geometry(t)))
			}
			for _, b := range boundary[v] {
				q = q.Add(b)
			}
			s.quadrics[v] = q
		}
		return nil
	})
	if err != nil {
		return err
	}

	edges := adj.Edges()
	s.queue = make(collapseQueue, len(edges))
	fallbacks := make([]int, len(edges))
	err = parallel(ctx, len(edges), s.workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c, fallback := s.evaluate(edges[i].A, edges[i].B)
			s.queue[i] = c
			if fallback {
				fallbacks[i] = 1
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, f := range fallbacks {
		s.stats.SingularFallbacks += f
	}
	heap.Init(&s.queue)
	return nil
}

// parallel runs fn over [0, n) split into one contiguous range per worker
func parallel(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

// evaluate prices the collapse of edge (a, b). It only reads shared state.
func (s *simplifier) evaluate(a, b int) (candidate, bool) {
	if a > b {
		a, b = b, a
	}
	q := s.quadrics[a].Add(s.quadrics[b])
	pa, pb := s.m.Vertex(a), s.m.Vertex(b)

	target, ok := optimalPoint(q, pa, pb)
	if !ok {
		target = fallbackPoint(q, pa, pb)
	}

	removes := 0
	for _, t := range s.incident[a] {
		if s.m.TriangleAlive(t) && s.m.Triangle(t).Contains(b) {
			removes++
		}
	}
	return candidate{
		a:        a,
		b:        b,
		target:   target,
		cost:     math.Max(0, quadricError(q, target)),
		removes:  removes,
		versionA: s.version[a],
		versionB: s.version[b],
	}, !ok
}

func (s *simplifier) stale(c candidate) bool {
	return s.merged[c.a] || s.merged[c.b] ||
		s.version[c.a] != c.versionA || s.version[c.b] != c.versionB
}

// live drops removed triangles from the incidence list of v and returns it
func (s *simplifier) live(v int) []int {
	list := s.incident[v][:0]
	for _, t := range s.incident[v] {
		if s.m.TriangleAlive(t) {
			list = append(list, t)
		}
	}
	s.incident[v] = list
	return list
}

// neighbors returns the vertices sharing a live triangle with v
func (s *simplifier) neighbors(v int) []int {
	var out []int
	for _, t := range s.live(v) {
		for _, u := range s.m.Triangle(t) {
			if u != v && !containsInt(out, u) {
				out = append(out, u)
			}
		}
	}
	return out
}

func (s *simplifier) onBoundary(v int) bool {
	for _, u := range s.neighbors(v) {
		shared := 0
		for _, t := range s.incident[v] {
			if s.m.Triangle(t).Contains(u) {
				shared++
			}
		}
		if shared == 1 {
			return true
		}
	}
	return false
}

// legal checks the link condition, boundary pinching, duplicate faces and
// face rotation for collapsing c.b into c.a at c.target.
func (s *simplifier) legal(c candidate) bool {
	a, b := c.a, c.b
	na, nb := s.neighbors(a), s.neighbors(b)

	var opposite []int
	for _, t := range s.incident[a] {
		tri := s.m.Triangle(t)
		if tri.Contains(b) {
			for _, u := range tri {
				if u != a && u != b {
					opposite = append(opposite, u)
				}
			}
		}
	}
	common := 0
	for _, u := range na {
		if containsInt(nb, u) {
			common++
		}
	}
	if common != len(opposite) {
		return false
	}
	if len(opposite) != 1 && s.onBoundary(a) && s.onBoundary(b) {
		return false
	}

	for _, t := range s.incident[b] {
		tri := s.m.Triangle(t)
		if tri.Contains(a) {
			continue
		}
		for _, other := range s.incident[a] {
			if sameAfterCollapse(tri, s.m.Triangle(other), a, b) {
				return false
			}
		}
	}

	for _, v := range [2]int{a, b} {
		for _, t := range s.incident[v] {
			tri := s.m.Triangle(t)
			if tri.Contains(a) && tri.Contains(b) {
				continue
			}
			before := s.m.Geometry(t).AreaVector()
			if before == (geometry.Vector3{}) {
				continue
			}
			var corners [3]geometry.Vector3
			for k, u := range tri {
				corners[k] = s.m.Vertex(u)
				if u == a || u == b {
					corners[k] = c.target
				}
			}
			after := geometry.NewTriangle(corners[0], corners[1], corners[2]).AreaVector()
			if after == (geometry.Vector3{}) {
				return false
			}
			if before.Normalize().Dot(after.Normalize()) < s.cosMax {
				return false
			}
		}
	}
	return true
}

// sameAfterCollapse reports whether t (holding b) and other (holding a) span
// the same vertices once b becomes a.
func sameAfterCollapse(t, other mesh.Triangle, a, b int) bool {
	if other.Contains(b) {
		return false
	}
	for _, u := range t {
		if u == b {
			u = a
		}
		if !other.Contains(u) {
			return false
		}
	}
	return true
}

// collapse merges c.b into c.a at c.target and returns the number of
// removed triangles.
func (s *simplifier) collapse(c candidate) int {
	keep, drop := c.a, c.b
	s.m.SetVertex(keep, c.target)
	s.quadrics[keep] = s.quadrics[keep].Add(s.quadrics[drop])

	removed := 0
	for _, t := range s.live(drop) {
		tri := s.m.Triangle(t)
		if tri.Contains(keep) {
			s.m.RemoveTriangle(t)
			removed++
			continue
		}
		for k := range tri {
			if tri[k] == drop {
				tri[k] = keep
			}
		}
		// Legal collapses keep the corners distinct and alive.
		_ = s.m.SetTriangle(t, tri)
		s.incident[keep] = append(s.incident[keep], t)
	}
	s.incident[drop] = nil
	s.version[keep]++
	s.version[drop]++
	s.merged[drop] = true

	for _, u := range s.neighbors(keep) {
		next, fallback := s.evaluate(keep, u)
		if fallback {
			s.stats.SingularFallbacks++
		}
		heap.Push(&s.queue, next)
	}
	return removed
}

// finish drops the merged vertices, compacts and refreshes normals
func (s *simplifier) finish() *mesh.Mesh {
	s.m.RemoveUnreferenced()
	s.m.Compact()
	if s.m.HasNormals() {
		s.m.ComputeNormals()
	}
	s.stats.FinalTriangles = s.m.TriangleCount()
	return s.m
}

func containsInt(list []int, v int) bool {
	for _, u := range list {
		if u == v {
			return true
		}
	}
	return false
}

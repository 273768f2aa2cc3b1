// Package mesh holds the indexed triangle mesh shared by every pipeline
// stage. Vertices and triangles live in an arena addressed by stable indices;
// removals leave tombstones that Compact folds away at pass boundaries.
package mesh

import (
	"fmt"

	"github.com/philipparndt/voxmesh/pkg/geometry"
)

// Triangle is an ordered triple of vertex indices. Counter-clockwise order
// gives the outward normal by the right-hand rule.
type Triangle [3]int

// Flipped returns the triangle with reversed winding
func (t Triangle) Flipped() Triangle {
	return Triangle{t[0], t[2], t[1]}
}

// Contains reports whether v is one of the triangle's corners
func (t Triangle) Contains(v int) bool {
	return t[0] == v || t[1] == v || t[2] == v
}

// Mesh is an arena of vertices and triangles.
type Mesh struct {
	positions []geometry.Vector3
	normals   []geometry.Vector3
	triangles []Triangle

	deadVertex   []bool
	deadTriangle []bool

	liveVertices  int
	liveTriangles int
}

// Remap maps arena indices from before a Compact to indices after it.
// Removed entries map to -1.
type Remap struct {
	Vertices  []int
	Triangles []int
}

// New creates an empty mesh
func New() *Mesh {
	return &Mesh{}
}

// NewWithCapacity creates an empty mesh with preallocated storage
func NewWithCapacity(vertices, triangles int) *Mesh {
	return &Mesh{
		positions:    make([]geometry.Vector3, 0, vertices),
		deadVertex:   make([]bool, 0, vertices),
		triangles:    make([]Triangle, 0, triangles),
		deadTriangle: make([]bool, 0, triangles),
	}
}

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(p geometry.Vector3) int {
	m.positions = append(m.positions, p)
	m.deadVertex = append(m.deadVertex, false)
	if m.normals != nil {
		m.normals = append(m.normals, geometry.Vector3{})
	}
	m.liveVertices++
	return len(m.positions) - 1
}

// AddTriangle appends a triangle and returns its index. The three indices
// must be distinct and reference live vertices.
func (m *Mesh) AddTriangle(a, b, c int) (int, error) {
	t := Triangle{a, b, c}
	if err := m.checkTriangle(t); err != nil {
		return -1, err
	}
	m.triangles = append(m.triangles, t)
	m.deadTriangle = append(m.deadTriangle, false)
	m.liveTriangles++
	return len(m.triangles) - 1, nil
}

func (m *Mesh) checkTriangle(t Triangle) error {
	if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
		return fmt.Errorf("%w: repeated vertex index in %v", ErrInvalidTriangle, t)
	}
	for _, v := range t {
		if v < 0 || v >= len(m.positions) || m.deadVertex[v] {
			return fmt.Errorf("%w: vertex %d not in mesh", ErrInvalidTriangle, v)
		}
	}
	return nil
}

// VertexCount returns the number of live vertices
func (m *Mesh) VertexCount() int { return m.liveVertices }

// TriangleCount returns the number of live triangles
func (m *Mesh) TriangleCount() int { return m.liveTriangles }

// VertexCap returns the arena size for vertices, including tombstones
func (m *Mesh) VertexCap() int { return len(m.positions) }

// TriangleCap returns the arena size for triangles, including tombstones
func (m *Mesh) TriangleCap() int { return len(m.triangles) }

// Vertex returns the position of vertex i
func (m *Mesh) Vertex(i int) geometry.Vector3 { return m.positions[i] }

// SetVertex moves vertex i
func (m *Mesh) SetVertex(i int, p geometry.Vector3) { m.positions[i] = p }

// Triangle returns triangle i
func (m *Mesh) Triangle(i int) Triangle { return m.triangles[i] }

// SetTriangle replaces triangle i, validating the new indices
func (m *Mesh) SetTriangle(i int, t Triangle) error {
	if err := m.checkTriangle(t); err != nil {
		return err
	}
	m.triangles[i] = t
	return nil
}

// VertexAlive reports whether vertex i has not been removed
func (m *Mesh) VertexAlive(i int) bool { return !m.deadVertex[i] }

// TriangleAlive reports whether triangle i has not been removed
func (m *Mesh) TriangleAlive(i int) bool { return !m.deadTriangle[i] }

// Geometry returns the corner positions of triangle i
func (m *Mesh) Geometry(i int) geometry.Triangle {
	t := m.triangles[i]
	return geometry.NewTriangle(m.positions[t[0]], m.positions[t[1]], m.positions[t[2]])
}

// ForEachTriangle calls fn for every live triangle in index order
func (m *Mesh) ForEachTriangle(fn func(i int, t Triangle)) {
	for i, t := range m.triangles {
		if !m.deadTriangle[i] {
			fn(i, t)
		}
	}
}

// ForEachVertex calls fn for every live vertex in index order
func (m *Mesh) ForEachVertex(fn func(i int, p geometry.Vector3)) {
	for i, p := range m.positions {
		if !m.deadVertex[i] {
			fn(i, p)
		}
	}
}

// RemoveTriangle tombstones triangle i
func (m *Mesh) RemoveTriangle(i int) {
	if m.deadTriangle[i] {
		return
	}
	m.deadTriangle[i] = true
	m.liveTriangles--
}

// RemoveVertex tombstones vertex i together with every triangle that uses it
func (m *Mesh) RemoveVertex(i int) {
	if m.deadVertex[i] {
		return
	}
	m.deadVertex[i] = true
	m.liveVertices--
	for ti, t := range m.triangles {
		if !m.deadTriangle[ti] && t.Contains(i) {
			m.RemoveTriangle(ti)
		}
	}
}

// Redirect replaces every triangle reference to vertex i with target[i] and
// tombstones the vertices redirected elsewhere. Each target must be a live
// vertex that maps to itself. Triangles left with a repeated index are
// removed and counted.
func (m *Mesh) Redirect(target []int) int {
	collapsed := 0
	for i, t := range m.triangles {
		if m.deadTriangle[i] {
			continue
		}
		t = Triangle{target[t[0]], target[t[1]], target[t[2]]}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			m.RemoveTriangle(i)
			collapsed++
			continue
		}
		m.triangles[i] = t
	}
	for i, to := range target {
		if to != i && !m.deadVertex[i] {
			m.deadVertex[i] = true
			m.liveVertices--
		}
	}
	return collapsed
}

// RemoveUnreferenced tombstones live vertices that no live triangle uses and
// returns how many were removed.
func (m *Mesh) RemoveUnreferenced() int {
	used := make([]bool, len(m.positions))
	m.ForEachTriangle(func(_ int, t Triangle) {
		used[t[0]], used[t[1]], used[t[2]] = true, true, true
	})
	removed := 0
	for i := range m.positions {
		if !m.deadVertex[i] && !used[i] {
			m.deadVertex[i] = true
			m.liveVertices--
			removed++
		}
	}
	return removed
}

// Compact drops every tombstone, renumbering vertices and triangles while
// keeping their relative order. Triangles that still reference a removed
// vertex are dropped as well.
func (m *Mesh) Compact() Remap {
	remap := Remap{
		Vertices:  make([]int, len(m.positions)),
		Triangles: make([]int, len(m.triangles)),
	}

	next := 0
	for i := range m.positions {
		if m.deadVertex[i] {
			remap.Vertices[i] = -1
			continue
		}
		remap.Vertices[i] = next
		m.positions[next] = m.positions[i]
		if m.normals != nil {
			m.normals[next] = m.normals[i]
		}
		next++
	}
	m.positions = m.positions[:next]
	if m.normals != nil {
		m.normals = m.normals[:next]
	}
	m.deadVertex = make([]bool, next)
	m.liveVertices = next

	next = 0
	for i, t := range m.triangles {
		remap.Triangles[i] = -1
		if m.deadTriangle[i] {
			continue
		}
		a, b, c := remap.Vertices[t[0]], remap.Vertices[t[1]], remap.Vertices[t[2]]
		if a < 0 || b < 0 || c < 0 {
			continue
		}
		remap.Triangles[i] = next
		m.triangles[next] = Triangle{a, b, c}
		next++
	}
	m.triangles = m.triangles[:next]
	m.deadTriangle = make([]bool, next)
	m.liveTriangles = next

	return remap
}

// Clone returns a deep copy of the mesh, tombstones included
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		positions:     append([]geometry.Vector3(nil), m.positions...),
		triangles:     append([]Triangle(nil), m.triangles...),
		deadVertex:    append([]bool(nil), m.deadVertex...),
		deadTriangle:  append([]bool(nil), m.deadTriangle...),
		liveVertices:  m.liveVertices,
		liveTriangles: m.liveTriangles,
	}
	if m.normals != nil {
		c.normals = append([]geometry.Vector3(nil), m.normals...)
	}
	return c
}

// Equal reports whether both meshes have the same live vertex positions and
// triangle connectivity, in the same order. Normals are not compared.
func (m *Mesh) Equal(other *Mesh) bool {
	a, b := m.View(), other.View()
	if len(a.vertices) != len(b.vertices) || len(a.indices) != len(b.indices) {
		return false
	}
	for i := range a.vertices {
		if a.vertices[i] != b.vertices[i] {
			return false
		}
	}
	for i := range a.indices {
		if a.indices[i] != b.indices[i] {
			return false
		}
	}
	return true
}

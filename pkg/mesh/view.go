package mesh

import (
	"io"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// View is a read-only, compacted snapshot of a mesh for downstream
// consumers. Indices are renumbered densely; the source mesh is not touched.
type View struct {
	vertices []geometry.Vector3
	normals  []geometry.Vector3
	indices  []uint32
}

// View takes a compacted snapshot of the live vertices and triangles
func (m *Mesh) View() View {
	remap := make([]int, len(m.positions))
	v := View{vertices: make([]geometry.Vector3, 0, m.liveVertices)}
	if m.normals != nil {
		v.normals = make([]geometry.Vector3, 0, m.liveVertices)
	}
	for i, p := range m.positions {
		if m.deadVertex[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(v.vertices)
		v.vertices = append(v.vertices, p)
		if m.normals != nil {
			v.normals = append(v.normals, m.normals[i])
		}
	}

	v.indices = make([]uint32, 0, 3*m.liveTriangles)
	m.ForEachTriangle(func(_ int, t Triangle) {
		v.indices = append(v.indices, uint32(remap[t[0]]), uint32(remap[t[1]]), uint32(remap[t[2]]))
	})
	return v
}

// Vertices returns a copy of the vertex positions
func (v View) Vertices() []geometry.Vector3 {
	return append([]geometry.Vector3(nil), v.vertices...)
}

// Indices returns a copy of the flat triangle index array, three per triangle
func (v View) Indices() []uint32 {
	return append([]uint32(nil), v.indices...)
}

// Normals returns a copy of the per-vertex normals, if the mesh has them
func (v View) Normals() ([]geometry.Vector3, bool) {
	if v.normals == nil {
		return nil, false
	}
	return append([]geometry.Vector3(nil), v.normals...), true
}

// VertexCount returns the number of vertices in the view
func (v View) VertexCount() int { return len(v.vertices) }

// TriangleCount returns the number of triangles in the view
func (v View) TriangleCount() int { return len(v.indices) / 3 }

// Triangle returns the corner positions of triangle i
func (v View) Triangle(i int) geometry.Triangle {
	return geometry.NewTriangle(
		v.vertices[v.indices[3*i]],
		v.vertices[v.indices[3*i+1]],
		v.vertices[v.indices[3*i+2]],
	)
}

// TriangleReader streams the triangles of a view as gonum r3 triangles, in
// the shape renderers and slicers consume.
type TriangleReader struct {
	view View
	next int
}

// NewTriangleReader creates a reader positioned at the first triangle
func NewTriangleReader(v View) *TriangleReader {
	return &TriangleReader{view: v}
}

// ReadTriangles fills t with the next triangles and returns how many were
// written. It returns io.EOF once every triangle has been read.
func (r *TriangleReader) ReadTriangles(t []r3.Triangle) (int, error) {
	n := 0
	for n < len(t) && r.next < r.view.TriangleCount() {
		tri := r.view.Triangle(r.next)
		t[n] = r3.Triangle{toR3(tri.V1), toR3(tri.V2), toR3(tri.V3)}
		n++
		r.next++
	}
	if r.next >= r.view.TriangleCount() {
		return n, io.EOF
	}
	return n, nil
}

func toR3(p geometry.Vector3) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

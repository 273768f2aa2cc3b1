// Package meshtest builds small meshes for tests.
package meshtest

import (
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// boxFaces lists the 12 outward-wound triangles of a box whose corner i sits
// at (i&1, i>>1&1, i>>2&1).
var boxFaces = [12]mesh.Triangle{
	{0, 2, 3}, {0, 3, 1}, // -Z
	{4, 5, 7}, {4, 7, 6}, // +Z
	{0, 1, 5}, {0, 5, 4}, // -Y
	{2, 6, 7}, {2, 7, 3}, // +Y
	{0, 4, 6}, {0, 6, 2}, // -X
	{1, 3, 7}, {1, 7, 5}, // +X
}

// Box creates a closed axis-aligned box with outward-facing triangles
func Box(min, max geometry.Vector3) *mesh.Mesh {
	m := mesh.NewWithCapacity(8, 12)
	for i := 0; i < 8; i++ {
		p := min
		if i&1 != 0 {
			p.X = max.X
		}
		if i&2 != 0 {
			p.Y = max.Y
		}
		if i&4 != 0 {
			p.Z = max.Z
		}
		m.AddVertex(p)
	}
	for _, f := range boxFaces {
		// Indices are valid by construction.
		_, _ = m.AddTriangle(f[0], f[1], f[2])
	}
	return m
}

// Append copies the live vertices and triangles of src into dst and returns
// the index offset applied to src's vertices.
func Append(dst, src *mesh.Mesh) int {
	offset := dst.VertexCap()
	remap := make([]int, src.VertexCap())
	src.ForEachVertex(func(i int, p geometry.Vector3) {
		remap[i] = dst.AddVertex(p)
		if n, ok := src.Normal(i); ok {
			dst.SetNormal(remap[i], n)
		}
	})
	src.ForEachTriangle(func(_ int, t mesh.Triangle) {
		_, _ = dst.AddTriangle(remap[t[0]], remap[t[1]], remap[t[2]])
	})
	return offset
}

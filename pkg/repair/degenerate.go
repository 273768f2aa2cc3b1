package repair

import (
	"sort"

	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// RemoveDegenerate drops triangles whose area is at most areaEpsilon and
// triangles that repeat the vertex set of an earlier one, whatever their
// winding. It returns both counts and compacts m.
func RemoveDegenerate(m *mesh.Mesh, areaEpsilon float64) (degenerate, duplicate int) {
	seen := make(map[[3]int]struct{}, m.TriangleCount())
	m.ForEachTriangle(func(i int, t mesh.Triangle) {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] || m.Geometry(i).Area() <= areaEpsilon {
			m.RemoveTriangle(i)
			degenerate++
			return
		}
		key := [3]int(t)
		sort.Ints(key[:])
		if _, ok := seen[key]; ok {
			m.RemoveTriangle(i)
			duplicate++
			return
		}
		seen[key] = struct{}{}
	})
	m.Compact()
	return degenerate, duplicate
}

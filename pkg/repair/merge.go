package repair

import (
	"math"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// DefaultTolerance derives a merge distance from the volume spacing: a ten
// thousandth of the finest axis.
func DefaultTolerance(sx, sy, sz float64) float64 {
	return 1e-4 * math.Min(sx, math.Min(sy, sz))
}

// MergeVertices unifies vertices closer than tolerance, in index order: the
// first vertex of a cluster keeps its position and absorbs the others.
// Triangles that collapse onto a repeated index are removed. It returns the
// number of merged vertices and of collapsed triangles, and compacts m.
func MergeVertices(m *mesh.Mesh, tolerance float64) (merged, collapsed int) {
	welder := mesh.NewWelder(tolerance)
	target := make([]int, m.VertexCap())
	var owner []int // welder index -> vertex index

	for i := range target {
		target[i] = i
	}
	m.ForEachVertex(func(i int, p geometry.Vector3) {
		rep, created := welder.Add(p)
		if created {
			owner = append(owner, i)
			return
		}
		target[i] = owner[rep]
		merged++
	})

	if merged > 0 {
		collapsed = m.Redirect(target)
	}
	m.Compact()
	return merged, collapsed
}

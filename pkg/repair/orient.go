package repair

import "github.com/philipparndt/voxmesh/pkg/mesh"

// Orient makes triangle windings agree across manifold edges. Starting from
// the lowest unvisited triangle, neighbours reached over an edge shared by
// exactly two triangles are flipped to match. A closed patch that ends up
// with negative signed volume is flipped whole so its normals face outward.
// It returns the number of flipped triangles.
func Orient(m *mesh.Mesh) int {
	adj := mesh.BuildAdjacency(m)
	visited := make([]bool, m.TriangleCap())
	flipped := 0

	m.ForEachTriangle(func(seed int, _ mesh.Triangle) {
		if visited[seed] {
			return
		}
		visited[seed] = true
		patch := []int{seed}
		for head := 0; head < len(patch); head++ {
			t := m.Triangle(patch[head])
			for k := 0; k < 3; k++ {
				a, b := t[k], t[(k+1)%3]
				shared := adj.EdgeTriangles(mesh.NewEdge(a, b))
				if len(shared) != 2 {
					continue
				}
				other := shared[0]
				if other == patch[head] {
					other = shared[1]
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				if hasDirectedEdge(m.Triangle(other), a, b) {
					flip(m, other)
					flipped++
				}
				patch = append(patch, other)
			}
		}

		if closedPatch(adj, m, patch) && patchVolume(m, patch) < 0 {
			for _, i := range patch {
				flip(m, i)
			}
			flipped += len(patch)
		}
	})
	return flipped
}

func hasDirectedEdge(t mesh.Triangle, a, b int) bool {
	return (t[0] == a && t[1] == b) || (t[1] == a && t[2] == b) || (t[2] == a && t[0] == b)
}

func flip(m *mesh.Mesh, i int) {
	// Reversing the winding keeps the same vertices, so this cannot fail.
	_ = m.SetTriangle(i, m.Triangle(i).Flipped())
}

func closedPatch(adj *mesh.Adjacency, m *mesh.Mesh, patch []int) bool {
	for _, i := range patch {
		for _, e := range m.Triangle(i).Edges() {
			if len(adj.EdgeTriangles(e)) != 2 {
				return false
			}
		}
	}
	return true
}

func patchVolume(m *mesh.Mesh, patch []int) float64 {
	ref := m.Vertex(m.Triangle(patch[0])[0])
	volume := 0.0
	for _, i := range patch {
		volume += m.Geometry(i).SignedVolume(ref)
	}
	return volume
}

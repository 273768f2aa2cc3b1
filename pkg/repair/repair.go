// Package repair cleans raw meshes: it merges coincident vertices, drops
// degenerate and duplicate triangles, makes windings consistent and selects
// connected components. Repair never fails; everything it drops is counted.
package repair

import "github.com/philipparndt/voxmesh/pkg/mesh"

// Options configures a repair run
type Options struct {
	// Tolerance is the vertex merge distance. Zero merges only identical
	// positions.
	Tolerance float64
	// AreaEpsilon is the largest area still treated as degenerate.
	AreaEpsilon float64
	// Keep selects the surviving components.
	Keep Selection
}

// Stats counts what a repair run changed
type Stats struct {
	MergedVertices       int
	DegenerateTriangles  int
	DuplicateTriangles   int
	FlippedTriangles     int
	Components           int // components left after selection
	RemovedComponents    int
	UnreferencedVertices int
	// DegenerateGeometry is set when the input had triangles and none
	// survived.
	DegenerateGeometry bool
}

// DroppedTriangles is the number of triangles removed for any reason other
// than component selection
func (s Stats) DroppedTriangles() int {
	return s.DegenerateTriangles + s.DuplicateTriangles
}

// Repair returns a cleaned copy of m; m itself is not modified. Running it
// again on its own output changes nothing.
func Repair(m *mesh.Mesh, opts Options) (*mesh.Mesh, Stats) {
	var stats Stats
	out := m.Clone()
	out.Compact()

	merged, collapsed := MergeVertices(out, opts.Tolerance)
	stats.MergedVertices = merged
	stats.DegenerateTriangles = collapsed

	degenerate, duplicate := RemoveDegenerate(out, opts.AreaEpsilon)
	stats.DegenerateTriangles += degenerate
	stats.DuplicateTriangles = duplicate

	stats.FlippedTriangles = Orient(out)
	stats.RemovedComponents = Select(out, opts.Keep)

	stats.UnreferencedVertices = out.RemoveUnreferenced()
	out.Compact()

	if out.TriangleCount() > 0 {
		stats.Components = len(Components(out))
	}
	stats.DegenerateGeometry = m.TriangleCount() > 0 && out.TriangleCount() == 0
	return out, stats
}

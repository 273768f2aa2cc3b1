package mesh

import "sort"

// Edge is an unordered vertex pair, normalized so that A < B.
type Edge struct {
	A, B int
}

// NewEdge creates a normalized edge
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Edges returns the three edges of the triangle in winding order
func (t Triangle) Edges() [3]Edge {
	return [3]Edge{NewEdge(t[0], t[1]), NewEdge(t[1], t[2]), NewEdge(t[2], t[0])}
}

// Adjacency is a snapshot of the incidence relations of a mesh. It is derived
// from the live triangles and goes stale as soon as the mesh changes.
type Adjacency struct {
	vertexTriangles [][]int
	edgeTriangles   map[Edge][]int
	edges           []Edge
}

// BuildAdjacency derives vertex and edge incidence from the live triangles
func BuildAdjacency(m *Mesh) *Adjacency {
	adj := &Adjacency{
		vertexTriangles: make([][]int, m.VertexCap()),
		edgeTriangles:   make(map[Edge][]int, m.TriangleCount()*3/2),
	}
	m.ForEachTriangle(func(i int, t Triangle) {
		for _, v := range t {
			adj.vertexTriangles[v] = append(adj.vertexTriangles[v], i)
		}
		for _, e := range t.Edges() {
			adj.edgeTriangles[e] = append(adj.edgeTriangles[e], i)
		}
	})

	adj.edges = make([]Edge, 0, len(adj.edgeTriangles))
	for e := range adj.edgeTriangles {
		adj.edges = append(adj.edges, e)
	}
	sort.Slice(adj.edges, func(i, j int) bool {
		if adj.edges[i].A != adj.edges[j].A {
			return adj.edges[i].A < adj.edges[j].A
		}
		return adj.edges[i].B < adj.edges[j].B
	})
	return adj
}

// VertexTriangles returns the triangles incident to vertex v, in index order
func (a *Adjacency) VertexTriangles(v int) []int {
	if v < 0 || v >= len(a.vertexTriangles) {
		return nil
	}
	return a.vertexTriangles[v]
}

// Edges returns every distinct edge, sorted by (A, B)
func (a *Adjacency) Edges() []Edge {
	return a.edges
}

// EdgeTriangles returns the triangles sharing edge e, in index order
func (a *Adjacency) EdgeTriangles(e Edge) []int {
	return a.edgeTriangles[NewEdge(e.A, e.B)]
}

// BoundaryEdges returns the edges used by exactly one triangle
func (a *Adjacency) BoundaryEdges() []Edge {
	return a.edgesWhere(func(n int) bool { return n == 1 })
}

// NonManifoldEdges returns the edges shared by more than two triangles
func (a *Adjacency) NonManifoldEdges() []Edge {
	return a.edgesWhere(func(n int) bool { return n > 2 })
}

func (a *Adjacency) edgesWhere(keep func(n int) bool) []Edge {
	var out []Edge
	for _, e := range a.edges {
		if keep(len(a.edgeTriangles[e])) {
			out = append(out, e)
		}
	}
	return out
}

// IsClosed reports whether the mesh is watertight: it has at least one
// triangle and every edge is shared by exactly two triangles.
func (a *Adjacency) IsClosed() bool {
	if len(a.edges) == 0 {
		return false
	}
	for _, tris := range a.edgeTriangles {
		if len(tris) != 2 {
			return false
		}
	}
	return true
}

// IsClosed is a convenience for BuildAdjacency(m).IsClosed()
func (m *Mesh) IsClosed() bool {
	return BuildAdjacency(m).IsClosed()
}

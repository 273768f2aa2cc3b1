package repair

import (
	"fmt"
	"sort"
	"strings"

	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// Components partitions the live triangles into edge-connected groups. Each
// group lists triangle indices in ascending order; groups are ordered by
// their lowest triangle index.
func Components(m *mesh.Mesh) [][]int {
	adj := mesh.BuildAdjacency(m)
	visited := make([]bool, m.TriangleCap())
	var components [][]int

	m.ForEachTriangle(func(seed int, _ mesh.Triangle) {
		if visited[seed] {
			return
		}
		visited[seed] = true
		component := []int{seed}
		for head := 0; head < len(component); head++ {
			for _, e := range m.Triangle(component[head]).Edges() {
				for _, other := range adj.EdgeTriangles(e) {
					if !visited[other] {
						visited[other] = true
						component = append(component, other)
					}
				}
			}
		}
		sort.Ints(component)
		components = append(components, component)
	})
	return components
}

// SplitComponents copies every component into a mesh of its own. Vertex and
// triangle order follow the source mesh.
func SplitComponents(m *mesh.Mesh) []*mesh.Mesh {
	components := Components(m)
	out := make([]*mesh.Mesh, 0, len(components))
	for _, component := range components {
		out = append(out, subset(m, component))
	}
	return out
}

func subset(m *mesh.Mesh, triangles []int) *mesh.Mesh {
	used := make([]bool, m.VertexCap())
	for _, i := range triangles {
		for _, v := range m.Triangle(i) {
			used[v] = true
		}
	}

	sub := mesh.NewWithCapacity(0, len(triangles))
	remap := make([]int, m.VertexCap())
	for v, ok := range used {
		if !ok {
			continue
		}
		remap[v] = sub.AddVertex(m.Vertex(v))
		if n, ok := m.Normal(v); ok {
			sub.SetNormal(remap[v], n)
		}
	}
	for _, i := range triangles {
		t := m.Triangle(i)
		// Source triangles are valid, so the remapped ones are too.
		_, _ = sub.AddTriangle(remap[t[0]], remap[t[1]], remap[t[2]])
	}
	return sub
}

type selectionKind int

const (
	keepAll selectionKind = iota
	keepLargest
	keepMinTriangles
)

// Selection decides which components survive a repair
type Selection struct {
	kind         selectionKind
	minTriangles int
}

var (
	// KeepAll keeps every component.
	KeepAll = Selection{kind: keepAll}
	// KeepLargest keeps the component with the most triangles; ties go to
	// the one that comes first.
	KeepLargest = Selection{kind: keepLargest}
)

// KeepMinTriangles keeps the components with at least n triangles
func KeepMinTriangles(n int) Selection {
	return Selection{kind: keepMinTriangles, minTriangles: n}
}

// ParseSelection maps "all", "largest" or "min" to a Selection. minTriangles
// only applies to "min".
func ParseSelection(name string, minTriangles int) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return KeepAll, nil
	case "largest":
		return KeepLargest, nil
	case "min":
		if minTriangles < 1 {
			return Selection{}, fmt.Errorf("minimum component size must be at least 1, got %d", minTriangles)
		}
		return KeepMinTriangles(minTriangles), nil
	default:
		return Selection{}, fmt.Errorf("unknown component selection %q (expected all, largest or min)", name)
	}
}

func (s Selection) String() string {
	switch s.kind {
	case keepLargest:
		return "largest"
	case keepMinTriangles:
		return fmt.Sprintf("min %d", s.minTriangles)
	default:
		return "all"
	}
}

// Select removes the triangles of every component the selection rejects and
// returns how many components were dropped. Vertices left unreferenced stay
// in place; m is compacted.
func Select(m *mesh.Mesh, s Selection) int {
	if s.kind == keepAll {
		return 0
	}
	components := Components(m)

	largest := -1
	for i, c := range components {
		if largest < 0 || len(c) > len(components[largest]) {
			largest = i
		}
	}

	removed := 0
	for i, c := range components {
		keep := true
		switch s.kind {
		case keepLargest:
			keep = i == largest
		case keepMinTriangles:
			keep = len(c) >= s.minTriangles
		}
		if keep {
			continue
		}
		for _, t := range c {
			m.RemoveTriangle(t)
		}
		removed++
	}
	m.Compact()
	return removed
}

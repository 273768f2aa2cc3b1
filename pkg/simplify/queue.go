package simplify

import "github.com/philipparndt/voxmesh/pkg/geometry"

// candidate is a proposed collapse of edge (a, b), a < b, into target. It is
// stale once either endpoint's version moves on.
type candidate struct {
	a, b     int
	target   geometry.Vector3
	cost     float64
	removes  int // triangles sharing the edge
	versionA int
	versionB int
}

// collapseQueue is a container/heap min-heap: cheapest first, then the
// collapse removing more triangles, then the lowest vertex pair.
type collapseQueue []candidate

func (q collapseQueue) Len() int { return len(q) }

func (q collapseQueue) Less(i, j int) bool {
	x, y := &q[i], &q[j]
	if x.cost != y.cost {
		return x.cost < y.cost
	}
	if x.removes != y.removes {
		return x.removes > y.removes
	}
	if x.a != y.a {
		return x.a < y.a
	}
	return x.b < y.b
}

func (q collapseQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *collapseQueue) Push(x any) { *q = append(*q, x.(candidate)) }

func (q *collapseQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

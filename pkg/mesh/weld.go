package mesh

import (
	"math"

	"github.com/philipparndt/voxmesh/pkg/geometry"
)

type cellKey struct {
	X, Y, Z int64
}

// Welder unifies points that lie within a distance tolerance of each other.
// Points are hashed into a uniform grid with cell size equal to the
// tolerance, so a lookup only has to inspect the 27 surrounding cells.
//
// The first point inserted in a neighbourhood becomes its representative and
// keeps its exact position; later points within tolerance resolve to it.
// Representatives are therefore always more than the tolerance apart, which
// makes welding idempotent.
type Welder struct {
	tolerance float64
	tol2      float64
	cells     map[cellKey][]int
	exact     map[geometry.Vector3]int
	points    []geometry.Vector3
}

// NewWelder creates a welder. A tolerance of zero or less only merges
// bit-identical positions.
func NewWelder(tolerance float64) *Welder {
	w := &Welder{tolerance: tolerance, tol2: tolerance * tolerance}
	if tolerance > 0 {
		w.cells = make(map[cellKey][]int)
	} else {
		w.exact = make(map[geometry.Vector3]int)
	}
	return w
}

// Add returns the representative index for p and whether p created a new
// representative.
func (w *Welder) Add(p geometry.Vector3) (int, bool) {
	if w.exact != nil {
		if i, ok := w.exact[p]; ok {
			return i, false
		}
		i := len(w.points)
		w.points = append(w.points, p)
		w.exact[p] = i
		return i, true
	}

	key := w.cell(p)
	best, bestDist := -1, math.Inf(1)
	for dz := int64(-1); dz <= 1; dz++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dx := int64(-1); dx <= 1; dx++ {
				for _, i := range w.cells[cellKey{key.X + dx, key.Y + dy, key.Z + dz}] {
					d := w.points[i].Sub(p).LengthSquared()
					// Ties go to the oldest representative.
					if d <= w.tol2 && (d < bestDist || (d == bestDist && i < best)) {
						best, bestDist = i, d
					}
				}
			}
		}
	}
	if best >= 0 {
		return best, false
	}

	i := len(w.points)
	w.points = append(w.points, p)
	w.cells[key] = append(w.cells[key], i)
	return i, true
}

// Points returns the representative positions in insertion order
func (w *Welder) Points() []geometry.Vector3 {
	return w.points
}

func (w *Welder) cell(p geometry.Vector3) cellKey {
	return cellKey{
		X: int64(math.Floor(p.X / w.tolerance)),
		Y: int64(math.Floor(p.Y / w.tolerance)),
		Z: int64(math.Floor(p.Z / w.tolerance)),
	}
}

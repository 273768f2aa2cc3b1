package extract

import "math/bits"

// Cube corners are numbered by their lattice offset:
//
//	0:(0,0,0) 1:(1,0,0) 2:(1,1,0) 3:(0,1,0)
//	4:(0,0,1) 5:(1,0,1) 6:(1,1,1) 7:(0,1,1)
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// faceCorners lists the corners of each face counter-clockwise as seen from
// outside the cube: -z, +z, -y, +y, -x, +x.
var faceCorners = [6][4]int{
	{0, 3, 2, 1},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{3, 7, 6, 2},
	{0, 4, 7, 3},
	{1, 2, 6, 5},
}

// cubeEdge locates an edge on the lattice: it starts at corner lower and runs
// one step along axis to corner upper.
type cubeEdge struct {
	lower, upper int
	axis         int
}

var (
	cubeEdges     [12]cubeEdge
	edgeBetween   [8][8]int
	edgeFaces     [12]uint8
	triangleTable [256][][3]int
	caseClass     [256]int
)

func init() {
	buildEdges()
	for config := range triangleTable {
		triangleTable[config] = triangulate(config)
	}
	buildClasses()
}

func buildEdges() {
	for a := range edgeBetween {
		for b := range edgeBetween[a] {
			edgeBetween[a][b] = -1
		}
	}
	for e, c := range edgeCorners {
		a, b := c[0], c[1]
		edgeBetween[a][b], edgeBetween[b][a] = e, e

		oa, ob := cornerOffsets[a], cornerOffsets[b]
		if oa[0]+oa[1]+oa[2] > ob[0]+ob[1]+ob[2] {
			a, b = b, a
			oa, ob = ob, oa
		}
		axis := 0
		for k := range oa {
			if oa[k] != ob[k] {
				axis = k
			}
		}
		cubeEdges[e] = cubeEdge{lower: a, upper: b, axis: axis}
	}
	for f, corners := range faceCorners {
		for k := range corners {
			e := edgeBetween[corners[k]][corners[(k+1)%4]]
			edgeFaces[e] |= 1 << f
		}
	}
}

// triangulate derives the triangles for one corner configuration (bit i set
// when corner i is inside).
//
// Walking each face counter-clockwise, a crossing from an inside to an
// outside corner is an exit and the reverse is an entry. Every entry is
// joined to the crossing that follows it, which on a face with four
// crossings cuts the two inside corners off separately. The rule only looks
// at the face's own corners, so the two cubes sharing a face produce the same
// segment in opposite directions. Segments chain into closed loops around the
// inside region, and each loop is fanned into triangles.
func triangulate(config int) [][3]int {
	var next [12]int
	for i := range next {
		next[i] = -1
	}

	type crossing struct {
		edge  int
		entry bool
	}
	for _, face := range faceCorners {
		var crossings [4]crossing
		n := 0
		for k := range face {
			a, b := face[k], face[(k+1)%4]
			inA, inB := config&(1<<a) != 0, config&(1<<b) != 0
			if inA != inB {
				crossings[n] = crossing{edge: edgeBetween[a][b], entry: inB}
				n++
			}
		}
		// Entries and exits alternate around a face.
		for k := 0; k < n; k++ {
			if crossings[k].entry {
				next[crossings[k].edge] = crossings[(k+1)%n].edge
			}
		}
	}

	var triangles [][3]int
	var visited [12]bool
	for start := range next {
		if next[start] < 0 || visited[start] {
			continue
		}
		var loop []int
		for e := start; !visited[e]; e = next[e] {
			visited[e] = true
			loop = append(loop, e)
		}
		apex := fanApex(loop)
		n := len(loop)
		for i := 1; i < n-1; i++ {
			triangles = append(triangles, [3]int{loop[apex], loop[(apex+i)%n], loop[(apex+i+1)%n]})
		}
	}
	return triangles
}

// fanApex picks the first loop position whose fan diagonals never join two
// edges of the same face. A diagonal lying in a face would be duplicated with
// the opposite winding by the neighbouring cube.
func fanApex(loop []int) int {
	n := len(loop)
	for k := 0; k < n; k++ {
		ok := true
		for j := 2; j < n-1; j++ {
			if edgeFaces[loop[k]]&edgeFaces[loop[(k+j)%n]] != 0 {
				ok = false
				break
			}
		}
		if ok {
			return k
		}
	}
	return 0
}

func buildClasses() {
	// Axis permutations; the first three are even.
	perms := [6][3]int{{0, 1, 2}, {1, 2, 0}, {2, 0, 1}, {0, 2, 1}, {2, 1, 0}, {1, 0, 2}}

	var rotations [][8]int
	for pi, p := range perms {
		for flips := 0; flips < 8; flips++ {
			odd := pi >= 3
			if bits.OnesCount(uint(flips))%2 == 1 {
				odd = !odd
			}
			if odd {
				continue
			}
			var mapping [8]int
			for c, o := range cornerOffsets {
				var q [3]int
				for k := range q {
					q[k] = o[p[k]]
					if flips&(1<<k) != 0 {
						q[k] = 1 - q[k]
					}
				}
				mapping[c] = cornerIndex(q)
			}
			rotations = append(rotations, mapping)
		}
	}

	canonical := func(config int) int {
		best := 256
		for _, c := range [2]int{config, 255 ^ config} {
			for _, mapping := range rotations {
				rotated := 0
				for i := 0; i < 8; i++ {
					if c&(1<<i) != 0 {
						rotated |= 1 << mapping[i]
					}
				}
				best = min(best, rotated)
			}
		}
		return best
	}

	ids := make(map[int]int)
	for config := range caseClass {
		key := canonical(config)
		id, ok := ids[key]
		if !ok {
			id = len(ids)
			ids[key] = id
		}
		caseClass[config] = id
	}
}

func cornerIndex(offset [3]int) int {
	for i, o := range cornerOffsets {
		if o == offset {
			return i
		}
	}
	return -1
}

// TopologicalCase returns the class of a corner configuration under the 24
// cube rotations and inside/outside complement. Classes are numbered 0-14 in
// order of their smallest configuration; 0 is the empty cube.
func TopologicalCase(config uint8) int {
	return caseClass[config]
}

// CaseTriangles returns the triangles emitted for a corner configuration as
// triples of cube edge indices.
func CaseTriangles(config uint8) [][3]int {
	out := make([][3]int, len(triangleTable[config]))
	copy(out, triangleTable[config])
	return out
}

package simplify

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/philipparndt/voxmesh/pkg/geometry"
)

const (
	// singularTolerance bounds |det| relative to the cubed mean diagonal of
	// the 3x3 system below which it is treated as singular.
	singularTolerance = 1e-10
	// farFactor bounds how far, in edge lengths, an optimal point may lie
	// from the edge midpoint.
	farFactor = 4.0
)

// planeQuadric returns weight * p p^T for the plane n.x + d = 0
func planeQuadric(n geometry.Vector3, d, weight float64) mgl64.Mat4 {
	p := [4]float64{n.X, n.Y, n.Z, d}
	var q mgl64.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			q[col*4+row] = weight * p[row] * p[col]
		}
	}
	return q
}

// triangleQuadric is the area-weighted quadric of the triangle's plane. A
// degenerate triangle contributes nothing.
func triangleQuadric(t geometry.Triangle) mgl64.Mat4 {
	av := t.AreaVector()
	length := av.Length()
	if length == 0 {
		return mgl64.Mat4{}
	}
	n := av.Mul(1 / length)
	return planeQuadric(n, -n.Dot(t.V1), length/2)
}

// boundaryQuadric penalizes moving away from a boundary edge: its plane
// contains the edge and is perpendicular to the face.
func boundaryQuadric(from, to, faceNormal geometry.Vector3, weight float64) mgl64.Mat4 {
	edge := to.Sub(from)
	n := edge.Cross(faceNormal).Normalize()
	if n == (geometry.Vector3{}) {
		return mgl64.Mat4{}
	}
	return planeQuadric(n, -n.Dot(from), weight*edge.LengthSquared())
}

// quadricError evaluates v^T Q v for the homogeneous point (p, 1)
func quadricError(q mgl64.Mat4, p geometry.Vector3) float64 {
	h := mgl64.Vec4{p.X, p.Y, p.Z, 1}
	return h.Dot(q.Mul4x1(h))
}

// optimalPoint minimizes the quadric by solving its 3x3 system. It reports
// false when the system is singular or the solution lands far from the edge.
func optimalPoint(q mgl64.Mat4, a, b geometry.Vector3) (geometry.Vector3, bool) {
	system := q.Mat3()
	scale := (system[0] + system[4] + system[8]) / 3
	det := system.Det()
	if !(scale > 0) || math.Abs(det) <= singularTolerance*scale*scale*scale {
		return geometry.Vector3{}, false
	}

	x := system.Inv().Mul3x1(mgl64.Vec3{-q[12], -q[13], -q[14]})
	p := geometry.NewVector3(x[0], x[1], x[2])
	if !p.IsFinite() {
		return geometry.Vector3{}, false
	}
	mid := a.Lerp(b, 0.5)
	if p.Distance(mid) > farFactor*a.Distance(b) {
		return geometry.Vector3{}, false
	}
	return p, true
}

// fallbackPoint picks the cheapest of the midpoint and the two endpoints
func fallbackPoint(q mgl64.Mat4, a, b geometry.Vector3) geometry.Vector3 {
	best := a.Lerp(b, 0.5)
	bestCost := quadricError(q, best)
	for _, p := range [2]geometry.Vector3{a, b} {
		if cost := quadricError(q, p); cost < bestCost {
			best, bestCost = p, cost
		}
	}
	return best
}

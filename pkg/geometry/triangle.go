package geometry

// Triangle is a facet given by three corner positions in counter-clockwise
// order; its outward normal follows the right-hand rule.
type Triangle struct {
	V1, V2, V3 Vector3
}

// NewTriangle creates a new triangle
func NewTriangle(v1, v2, v3 Vector3) Triangle {
	return Triangle{V1: v1, V2: v2, V3: v3}
}

// AreaVector returns (V2-V1) x (V3-V1); its length is twice the area
func (t Triangle) AreaVector() Vector3 {
	return t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1))
}

// CalculateNormal computes the unit normal vector for the triangle.
// Degenerate triangles yield the zero vector.
func (t Triangle) CalculateNormal() Vector3 {
	return t.AreaVector().Normalize()
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	return t.AreaVector().Length() / 2.0
}

// SignedVolume returns the signed volume of the tetrahedron spanned by the
// triangle and the reference point.
func (t Triangle) SignedVolume(ref Vector3) float64 {
	a := t.V1.Sub(ref)
	b := t.V2.Sub(ref)
	c := t.V3.Sub(ref)
	return a.Dot(b.Cross(c)) / 6.0
}

// EdgeLengths returns the lengths of all three edges
func (t Triangle) EdgeLengths() [3]float64 {
	return [3]float64{
		t.V1.Distance(t.V2),
		t.V2.Distance(t.V3),
		t.V3.Distance(t.V1),
	}
}

// Perimeter returns the total length of all edges
func (t Triangle) Perimeter() float64 {
	lengths := t.EdgeLengths()
	return lengths[0] + lengths[1] + lengths[2]
}

// Center returns the centroid of the triangle
func (t Triangle) Center() Vector3 {
	return Vector3{
		X: (t.V1.X + t.V2.X + t.V3.X) / 3.0,
		Y: (t.V1.Y + t.V2.Y + t.V3.Y) / 3.0,
		Z: (t.V1.Z + t.V2.Z + t.V3.Z) / 3.0,
	}
}

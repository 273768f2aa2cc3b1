// Package analysis measures meshes: area, enclosed volume, bounds, centroid,
// edge statistics and a few shape descriptors. Nothing here modifies a mesh.
package analysis

import (
	"errors"
	"math"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// ErrNotClosed is returned when a query needs a watertight mesh
var ErrNotClosed = errors.New("mesh is not closed")

// SurfaceArea sums the triangle areas
func SurfaceArea(m *mesh.Mesh) float64 {
	area := 0.0
	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		area += m.Geometry(i).Area()
	})
	return area
}

// SignedVolume sums the tetrahedra spanned by ref and each triangle. It is
// only meaningful for closed meshes, where it does not depend on ref and is
// positive for outward normals.
func SignedVolume(m *mesh.Mesh, ref geometry.Vector3) float64 {
	volume := 0.0
	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		volume += m.Geometry(i).SignedVolume(ref)
	})
	return volume
}

// Volume returns the enclosed volume of a closed mesh
func Volume(m *mesh.Mesh) (float64, error) {
	if !m.IsClosed() {
		return 0, ErrNotClosed
	}
	// The box center keeps the tetrahedra small and the sum well conditioned.
	return SignedVolume(m, BoundingBox(m).Center()), nil
}

// BoundingBox spans the vertices referenced by live triangles. It is empty
// for a mesh without triangles.
func BoundingBox(m *mesh.Mesh) geometry.BoundingBox {
	box := geometry.NewBoundingBox()
	m.ForEachTriangle(func(_ int, t mesh.Triangle) {
		for _, v := range t {
			box.Extend(m.Vertex(v))
		}
	})
	return box
}

// Centroid is the area-weighted mean of the triangle centers. A mesh without
// area yields the zero vector.
func Centroid(m *mesh.Mesh) geometry.Vector3 {
	var sum geometry.Vector3
	total := 0.0
	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		tri := m.Geometry(i)
		area := tri.Area()
		sum = sum.Add(tri.Center().Mul(area))
		total += area
	})
	if total == 0 {
		return geometry.Vector3{}
	}
	return sum.Mul(1 / total)
}

// Sphericity is the surface of the sphere with the mesh's volume divided by
// the mesh's surface: 1 for a sphere, smaller otherwise.
func Sphericity(m *mesh.Mesh) (float64, error) {
	volume, area, err := volumeAndArea(m)
	if err != nil {
		return 0, err
	}
	return math.Cbrt(math.Pi) * math.Pow(6*volume, 2.0/3.0) / area, nil
}

// Compactness is 36 pi V^2 / A^3, the cube of Sphericity
func Compactness(m *mesh.Mesh) (float64, error) {
	volume, area, err := volumeAndArea(m)
	if err != nil {
		return 0, err
	}
	return 36 * math.Pi * volume * volume / (area * area * area), nil
}

// Boxivity is the enclosed volume divided by the bounding box volume
func Boxivity(m *mesh.Mesh) (float64, error) {
	volume, _, err := volumeAndArea(m)
	if err != nil {
		return 0, err
	}
	return volume / BoundingBox(m).Volume(), nil
}

func volumeAndArea(m *mesh.Mesh) (float64, float64, error) {
	volume, err := Volume(m)
	if err != nil {
		return 0, 0, err
	}
	area := SurfaceArea(m)
	if !(area > 0) || !(volume > 0) {
		return 0, 0, ErrNotClosed
	}
	return volume, area, nil
}

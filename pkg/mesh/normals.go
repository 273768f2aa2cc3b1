package mesh

import "github.com/philipparndt/voxmesh/pkg/geometry"

// HasNormals reports whether per-vertex normals are attached
func (m *Mesh) HasNormals() bool {
	return m.normals != nil
}

// Normal returns the normal of vertex i, if normals are attached
func (m *Mesh) Normal(i int) (geometry.Vector3, bool) {
	if m.normals == nil {
		return geometry.Vector3{}, false
	}
	return m.normals[i], true
}

// SetNormal attaches a normal to vertex i. The first call allocates normal
// storage for every vertex, zero-filled.
func (m *Mesh) SetNormal(i int, n geometry.Vector3) {
	if m.normals == nil {
		m.normals = make([]geometry.Vector3, len(m.positions))
	}
	m.normals[i] = n
}

// ClearNormals drops the per-vertex normals
func (m *Mesh) ClearNormals() {
	m.normals = nil
}

// ComputeNormals sets every vertex normal to the normalized, area-weighted
// sum of its incident face normals.
func (m *Mesh) ComputeNormals() {
	normals := make([]geometry.Vector3, len(m.positions))
	m.ForEachTriangle(func(i int, t Triangle) {
		// Unnormalized cross product weights each face by twice its area.
		n := m.Geometry(i).AreaVector()
		for _, v := range t {
			normals[v] = normals[v].Add(n)
		}
	})
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	m.normals = normals
}

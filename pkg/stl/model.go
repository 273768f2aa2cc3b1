// Package stl reads and writes STL files in both the ASCII and the binary
// variant. STL stores every facet with its own corners, so the reader welds
// them back into an indexed mesh.
package stl

import (
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// Model is a decoded STL file
type Model struct {
	Name    string // solid name or binary header text
	Binary  bool
	Mesh    *mesh.Mesh
	Facets  int // facet records in the file
	Skipped int // facets that collapsed onto repeated vertices
}

// builder welds facet corners into a mesh
type builder struct {
	welder *mesh.Welder
	model  *Model
}

func newBuilder(tolerance float64, facets int) *builder {
	return &builder{
		welder: mesh.NewWelder(tolerance),
		model:  &Model{Mesh: mesh.NewWithCapacity(facets/2+3, facets)},
	}
}

// add welds the corners of one facet and adds it unless two corners coincide
func (b *builder) add(corners [3]geometry.Vector3) {
	var idx [3]int
	for k, p := range corners {
		i, created := b.welder.Add(p)
		if created {
			b.model.Mesh.AddVertex(p)
		}
		idx[k] = i
	}
	b.model.Facets++
	if _, err := b.model.Mesh.AddTriangle(idx[0], idx[1], idx[2]); err != nil {
		b.model.Skipped++
	}
}

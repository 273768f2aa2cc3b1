package stl

import (
	"bufio"
	"fmt"
	"io"
	"math"

	gostl "github.com/hschendel/stl"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// DefaultSolidName is written when Codec.Solid is empty
const DefaultSolidName = "voxmesh"

// Codec encodes and decodes STL. The zero value writes ASCII and welds only
// bit-identical corners on read.
type Codec struct {
	// Binary selects the binary variant on write. Reading detects the
	// variant.
	Binary bool
	// Tolerance welds corners closer than this on read.
	Tolerance float64
	// Solid names the ASCII solid.
	Solid string
}

// Name returns "stl"
func (Codec) Name() string { return "stl" }

// Decode reads an STL stream into an indexed mesh
func (c Codec) Decode(r io.Reader) (*mesh.Mesh, error) {
	model, err := c.Read(r)
	if err != nil {
		return nil, err
	}
	return model.Mesh, nil
}

// Encode writes the live triangles of m. Facet normals are computed from the
// winding; degenerate facets get a zero normal. Coordinates are stored as
// float32 in both variants.
func (c Codec) Encode(w io.Writer, m *mesh.Mesh) error {
	if c.Binary {
		if err := checkBinaryLimit(m.TriangleCount()); err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(w)
	err := c.solid(m).WriteAll(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return formatError(-1, 0, "", -1, mesh.ErrIOFailure, err)
	}
	return nil
}

// checkBinaryLimit rejects meshes whose triangle count does not fit the
// 32-bit count field
func checkBinaryLimit(triangles int) error {
	if uint64(triangles) > math.MaxUint32 {
		return formatError(-1, 0, "triangle", -1, mesh.ErrUnsupportedFormat,
			fmt.Errorf("%d triangles exceed the binary STL limit", triangles))
	}
	return nil
}

func (c Codec) solid(m *mesh.Mesh) *gostl.Solid {
	s := &gostl.Solid{
		IsAscii:   !c.Binary,
		Triangles: make([]gostl.Triangle, 0, m.TriangleCount()),
	}
	if c.Binary {
		s.BinaryHeader = make([]byte, headerSize)
	} else {
		s.Name = c.Solid
		if s.Name == "" {
			s.Name = DefaultSolidName
		}
	}

	m.ForEachTriangle(func(i int, _ mesh.Triangle) {
		tri := m.Geometry(i)
		s.Triangles = append(s.Triangles, gostl.Triangle{
			Normal:   toVec3(tri.CalculateNormal()),
			Vertices: [3]gostl.Vec3{toVec3(tri.V1), toVec3(tri.V2), toVec3(tri.V3)},
		})
	})
	return s
}

func toVec3(v geometry.Vector3) gostl.Vec3 {
	return gostl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

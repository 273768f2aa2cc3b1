// Package ply reads and writes the Stanford polygon format. PLY keeps shared
// vertices, so connectivity survives a round trip unchanged.
package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// Model is a decoded PLY file
type Model struct {
	Format   string
	Comments []string
	Mesh     *mesh.Mesh
	Skipped  int // triangles dropped for repeated vertex indices
}

// Codec encodes and decodes PLY. The zero value writes ASCII; reading
// accepts ASCII and both binary byte orders.
type Codec struct {
	// Binary selects binary_little_endian on write.
	Binary bool
	// Comment is written as a header comment when set.
	Comment string
}

// Name returns "ply"
func (Codec) Name() string { return "ply" }

// Decode reads a PLY stream into a mesh
func (c Codec) Decode(r io.Reader) (*mesh.Mesh, error) {
	model, err := c.Read(r)
	if err != nil {
		return nil, err
	}
	return model.Mesh, nil
}

// Encode writes the live vertices and triangles of m, compacted. Positions
// are written as doubles so both variants reproduce them exactly.
func (c Codec) Encode(w io.Writer, m *mesh.Mesh) error {
	view := m.View()
	bw := bufio.NewWriter(w)

	c.writeHeader(bw, view)
	if c.Binary {
		writeBinary(bw, view)
	} else {
		writeASCII(bw, view)
	}
	// bufio keeps the first write error; Flush reports it.
	if err := bw.Flush(); err != nil {
		return formatError(-1, 0, "", -1, mesh.ErrIOFailure, err)
	}
	return nil
}

func (c Codec) writeHeader(w *bufio.Writer, view mesh.View) {
	format := FormatASCII
	if c.Binary {
		format = FormatLittleEndian
	}
	fmt.Fprintf(w, "ply\nformat %s 1.0\n", format)
	if c.Comment != "" {
		fmt.Fprintf(w, "comment %s\n", c.Comment)
	}
	fmt.Fprintf(w, "element vertex %d\n", view.VertexCount())
	w.WriteString("property double x\nproperty double y\nproperty double z\n")
	if _, ok := view.Normals(); ok {
		w.WriteString("property double nx\nproperty double ny\nproperty double nz\n")
	}
	fmt.Fprintf(w, "element face %d\n", view.TriangleCount())
	w.WriteString("property list uchar int vertex_indices\nend_header\n")
}

func writeASCII(w *bufio.Writer, view mesh.View) {
	normals, hasNormals := view.Normals()
	for i, p := range view.Vertices() {
		w.WriteString(formatVector(p))
		if hasNormals {
			w.WriteByte(' ')
			w.WriteString(formatVector(normals[i]))
		}
		w.WriteByte('\n')
	}
	indices := view.Indices()
	for i := 0; i < len(indices); i += 3 {
		fmt.Fprintf(w, "3 %d %d %d\n", indices[i], indices[i+1], indices[i+2])
	}
}

func formatVector(v geometry.Vector3) string {
	return strconv.FormatFloat(v.X, 'g', -1, 64) + " " +
		strconv.FormatFloat(v.Y, 'g', -1, 64) + " " +
		strconv.FormatFloat(v.Z, 'g', -1, 64)
}

func writeBinary(w *bufio.Writer, view mesh.View) {
	normals, hasNormals := view.Normals()
	var buf [13]byte
	putVector := func(v geometry.Vector3) {
		for _, x := range [3]float64{v.X, v.Y, v.Z} {
			binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(x))
			w.Write(buf[:8])
		}
	}
	for i, p := range view.Vertices() {
		putVector(p)
		if hasNormals {
			putVector(normals[i])
		}
	}

	indices := view.Indices()
	buf[0] = 3
	for i := 0; i < len(indices); i += 3 {
		for k := 0; k < 3; k++ {
			binary.LittleEndian.PutUint32(buf[1+4*k:], indices[i+k])
		}
		w.Write(buf[:13])
	}
}

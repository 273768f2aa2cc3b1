package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// maxListPrealloc bounds the capacity reserved from a declared list length
const maxListPrealloc = 64

// valueReader yields the scalars of one element instance at a time
type valueReader interface {
	begin(element string, index int) error
	scalar(t scalarType) (float64, error)
	end() error
}

type binaryReader struct {
	br      *bufio.Reader
	order   binary.ByteOrder
	offset  int64
	start   int64
	element string
	index   int
	buf     [8]byte
}

func (r *binaryReader) begin(element string, index int) error {
	r.element, r.index, r.start = element, index, r.offset
	return nil
}

func (r *binaryReader) scalar(t scalarType) (float64, error) {
	b := r.buf[:t.size]
	if _, err := io.ReadFull(r.br, b); err != nil {
		return 0, readError(r.start, 0, r.element, r.index, err)
	}
	r.offset += int64(t.size)
	return t.decode(b, r.order), nil
}

func (r *binaryReader) end() error { return nil }

// asciiReader reads one element instance per line
type asciiReader struct {
	br      *bufio.Reader
	line    int
	tokens  []string
	element string
	index   int
}

func (r *asciiReader) begin(element string, index int) error {
	r.element, r.index = element, index
	for {
		raw, err := r.br.ReadString('\n')
		if raw == "" && err != nil {
			return readError(-1, r.line, element, index, err)
		}
		r.line++
		if r.tokens = strings.Fields(raw); len(r.tokens) > 0 {
			return nil
		}
		if err != nil {
			return readError(-1, r.line, element, index, err)
		}
	}
}

func (r *asciiReader) scalar(t scalarType) (float64, error) {
	if len(r.tokens) == 0 {
		return 0, r.fail(fmt.Errorf("too few values"))
	}
	v, err := t.parse(r.tokens[0])
	if err != nil {
		return 0, r.fail(err)
	}
	r.tokens = r.tokens[1:]
	return v, nil
}

func (r *asciiReader) end() error {
	if len(r.tokens) > 0 {
		return r.fail(fmt.Errorf("%d unexpected trailing values", len(r.tokens)))
	}
	return nil
}

func (r *asciiReader) fail(err error) error {
	return formatError(-1, r.line, r.element, r.index, mesh.ErrUnsupportedFormat, err)
}

// Read decodes a PLY stream. Vertices need x, y and z; nx, ny and nz are
// attached as normals when all three are present. Faces are read from the
// vertex_indices (or vertex_index) list and fan-triangulated. Other elements
// and properties are skipped.
func (c Codec) Read(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	vertexElement := h.element("vertex")
	if vertexElement == nil {
		return nil, formatError(h.size, h.lines, "header", -1, mesh.ErrUnsupportedFormat, fmt.Errorf("no vertex element"))
	}
	position := [3]int{vertexElement.property("x"), vertexElement.property("y"), vertexElement.property("z")}
	normal := [3]int{vertexElement.property("nx"), vertexElement.property("ny"), vertexElement.property("nz")}
	for _, p := range position {
		if p < 0 || vertexElement.properties[p].list {
			return nil, formatError(h.size, h.lines, "header", -1, mesh.ErrUnsupportedFormat, fmt.Errorf("vertex element needs scalar x, y and z"))
		}
	}
	hasNormals := normal[0] >= 0 && normal[1] >= 0 && normal[2] >= 0

	indices := -1
	faceElement := h.element("face")
	if faceElement != nil {
		if indices = faceElement.property("vertex_indices"); indices < 0 {
			indices = faceElement.property("vertex_index")
		}
		if indices < 0 || !faceElement.properties[indices].list {
			return nil, formatError(h.size, h.lines, "header", -1, mesh.ErrUnsupportedFormat, fmt.Errorf("face element needs a vertex_indices list"))
		}
	}

	var values valueReader
	switch h.format {
	case FormatASCII:
		values = &asciiReader{br: br, line: h.lines}
	case FormatLittleEndian:
		values = &binaryReader{br: br, order: binary.LittleEndian, offset: h.size}
	default:
		values = &binaryReader{br: br, order: binary.BigEndian, offset: h.size}
	}

	var vertices, normals []geometry.Vector3
	var faces [][]int
	for _, e := range h.elements {
		for i := 0; i < e.count; i++ {
			record, lists, err := readInstance(values, e, i)
			if err != nil {
				return nil, err
			}
			switch {
			case e == vertexElement:
				p := geometry.NewVector3(record[position[0]], record[position[1]], record[position[2]])
				if !p.IsFinite() {
					return nil, formatError(-1, 0, e.name, i, mesh.ErrUnsupportedFormat, fmt.Errorf("non-finite position %v", p))
				}
				vertices = append(vertices, p)
				if hasNormals {
					normals = append(normals, geometry.NewVector3(record[normal[0]], record[normal[1]], record[normal[2]]))
				}
			case e == faceElement:
				faces = append(faces, lists[indices])
			}
		}
	}

	return build(vertices, normals, faces, h)
}

// readInstance reads every property of one element instance. Scalars land in
// record, lists in lists, both indexed by property.
func readInstance(values valueReader, e *element, index int) ([]float64, [][]int, error) {
	if err := values.begin(e.name, index); err != nil {
		return nil, nil, err
	}
	record := make([]float64, len(e.properties))
	var lists [][]int
	for k, p := range e.properties {
		if !p.list {
			v, err := values.scalar(p.typ)
			if err != nil {
				return nil, nil, err
			}
			record[k] = v
			continue
		}

		n, err := values.scalar(p.countType)
		if err != nil {
			return nil, nil, err
		}
		if n < 0 {
			return nil, nil, formatError(-1, 0, e.name, index, mesh.ErrUnsupportedFormat, fmt.Errorf("negative list length %v", n))
		}
		if lists == nil {
			lists = make([][]int, len(e.properties))
		}
		// The count is untrusted; a short body fails on read instead.
		items := make([]int, 0, min(int(n), maxListPrealloc))
		for j := 0; j < int(n); j++ {
			v, err := values.scalar(p.typ)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, int(v))
		}
		lists[k] = items
	}
	return record, lists, values.end()
}

// build assembles the mesh once the whole body has been read, so a failure
// never leaves a partial mesh behind
func build(vertices, normals []geometry.Vector3, faces [][]int, h *header) (*Model, error) {
	model := &Model{
		Format:   h.format,
		Comments: h.comments,
		Mesh:     mesh.NewWithCapacity(len(vertices), len(faces)),
	}
	for i, p := range vertices {
		model.Mesh.AddVertex(p)
		if normals != nil {
			model.Mesh.SetNormal(i, normals[i])
		}
	}

	for i, face := range faces {
		if len(face) < 3 {
			return nil, formatError(-1, 0, "face", i, mesh.ErrUnsupportedFormat, fmt.Errorf("face with %d vertices", len(face)))
		}
		for _, v := range face {
			if v < 0 || v >= len(vertices) {
				return nil, formatError(-1, 0, "face", i, mesh.ErrUnsupportedFormat, fmt.Errorf("vertex index %d out of range", v))
			}
		}
		for k := 1; k+1 < len(face); k++ {
			if _, err := model.Mesh.AddTriangle(face[0], face[k], face[k+1]); err != nil {
				model.Skipped++
			}
		}
	}
	return model, nil
}

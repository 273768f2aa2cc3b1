package stl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	gostl "github.com/hschendel/stl"
	"github.com/philipparndt/voxmesh/pkg/geometry"
	"github.com/philipparndt/voxmesh/pkg/mesh"
)

const (
	headerSize = 80
	recordSize = 50
)

var solidPrefix = []byte("solid")

func formatError(offset int64, line int, element string, index int, kind, err error) error {
	return &mesh.FormatError{
		Format:  "stl",
		Offset:  offset,
		Line:    line,
		Element: element,
		Index:   index,
		Kind:    kind,
		Err:     err,
	}
}

// Read decodes an STL stream. It automatically detects whether the data is
// ASCII or binary: data whose length matches the binary record count is
// binary even when its header starts with "solid".
func (c Codec) Read(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, formatError(-1, 0, "", -1, mesh.ErrIOFailure, err)
	}

	if isBinary(data) {
		return readBinary(data, c.Tolerance)
	}
	return readASCII(data, c.Tolerance)
}

func isBinary(data []byte) bool {
	if len(data) >= headerSize+4 {
		count := uint64(binary.LittleEndian.Uint32(data[headerSize:]))
		if uint64(len(data)) == headerSize+4+recordSize*count {
			return true
		}
	}
	return !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), solidPrefix)
}

// readBinary checks the record count against the data length before
// decoding, so a truncated file never yields a partial mesh
func readBinary(data []byte, tolerance float64) (*Model, error) {
	if len(data) < headerSize+4 {
		return nil, formatError(int64(len(data)), 0, "header", -1, mesh.ErrUnsupportedFormat, io.ErrUnexpectedEOF)
	}

	count := int(binary.LittleEndian.Uint32(data[headerSize:]))
	if available := (len(data) - headerSize - 4) / recordSize; available < count {
		offset := int64(headerSize + 4 + recordSize*available)
		return nil, formatError(offset, 0, "triangle", available, mesh.ErrUnsupportedFormat, io.ErrUnexpectedEOF)
	}
	name := string(bytes.TrimSpace(bytes.TrimRight(data[:headerSize], "\x00")))

	// The decoder sniffs the header for "solid"; the variant is already known.
	data = data[:headerSize+4+recordSize*count]
	if bytes.HasPrefix(data, solidPrefix) {
		data = bytes.Clone(data)
		clear(data[:len(solidPrefix)])
	}

	solid, err := gostl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, formatError(-1, 0, "", -1, mesh.ErrUnsupportedFormat, err)
	}

	b := newBuilder(tolerance, len(solid.Triangles))
	b.model.Binary = true
	b.model.Name = name
	for i, tri := range solid.Triangles {
		offset := int64(headerSize + 4 + recordSize*i)
		if err := b.addFacet(tri, func(err error) error {
			return formatError(offset, 0, "triangle", i, mesh.ErrUnsupportedFormat, err)
		}); err != nil {
			return nil, err
		}
	}
	return b.model, nil
}

func readASCII(data []byte, tolerance float64) (*Model, error) {
	solid, err := gostl.ReadAll(bytes.NewReader(bytes.TrimLeft(data, " \t\r\n")))
	if err != nil {
		return nil, formatError(-1, 0, "solid", -1, mesh.ErrUnsupportedFormat, err)
	}

	b := newBuilder(tolerance, len(solid.Triangles))
	b.model.Name = solid.Name
	for i, tri := range solid.Triangles {
		if err := b.addFacet(tri, func(err error) error {
			return formatError(-1, 0, "facet", i, mesh.ErrUnsupportedFormat, err)
		}); err != nil {
			return nil, err
		}
	}
	return b.model, nil
}

// addFacet rejects non-finite corners and welds the rest. The stored normal
// is ignored; it is recomputed from the winding.
func (b *builder) addFacet(tri gostl.Triangle, fail func(error) error) error {
	var corners [3]geometry.Vector3
	for k, v := range tri.Vertices {
		corners[k] = geometry.NewVector3(float64(v[0]), float64(v[1]), float64(v[2]))
		if !corners[k].IsFinite() {
			return fail(fmt.Errorf("non-finite vertex %v", corners[k]))
		}
	}
	b.add(corners)
	return nil
}

package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/philipparndt/voxmesh/pkg/mesh"
)

// Format names as they appear in the header
const (
	FormatASCII        = "ascii"
	FormatLittleEndian = "binary_little_endian"
	FormatBigEndian    = "binary_big_endian"
)

type scalarType struct {
	size   int
	float  bool
	signed bool
}

var scalarTypes = map[string]scalarType{
	"char":    {size: 1, signed: true},
	"int8":    {size: 1, signed: true},
	"uchar":   {size: 1},
	"uint8":   {size: 1},
	"short":   {size: 2, signed: true},
	"int16":   {size: 2, signed: true},
	"ushort":  {size: 2},
	"uint16":  {size: 2},
	"int":     {size: 4, signed: true},
	"int32":   {size: 4, signed: true},
	"uint":    {size: 4},
	"uint32":  {size: 4},
	"float":   {size: 4, float: true, signed: true},
	"float32": {size: 4, float: true, signed: true},
	"double":  {size: 8, float: true, signed: true},
	"float64": {size: 8, float: true, signed: true},
}

func (t scalarType) decode(b []byte, order binary.ByteOrder) float64 {
	switch t.size {
	case 1:
		if t.signed {
			return float64(int8(b[0]))
		}
		return float64(b[0])
	case 2:
		v := order.Uint16(b)
		if t.signed {
			return float64(int16(v))
		}
		return float64(v)
	case 4:
		v := order.Uint32(b)
		switch {
		case t.float:
			return float64(math.Float32frombits(v))
		case t.signed:
			return float64(int32(v))
		}
		return float64(v)
	default:
		return math.Float64frombits(order.Uint64(b))
	}
}

func (t scalarType) parse(token string) (float64, error) {
	if t.float {
		return strconv.ParseFloat(token, 8*t.size)
	}
	if t.signed {
		v, err := strconv.ParseInt(token, 10, 8*t.size)
		return float64(v), err
	}
	v, err := strconv.ParseUint(token, 10, 8*t.size)
	return float64(v), err
}

type property struct {
	name      string
	typ       scalarType
	list      bool
	countType scalarType
}

type element struct {
	name       string
	count      int
	properties []property
}

func (e *element) property(name string) int {
	for i, p := range e.properties {
		if p.name == name {
			return i
		}
	}
	return -1
}

type header struct {
	format   string
	comments []string
	elements []*element
	size     int64 // bytes up to and including end_header
	lines    int
}

func (h *header) element(name string) *element {
	for _, e := range h.elements {
		if e.name == name {
			return e
		}
	}
	return nil
}

func formatError(offset int64, line int, element string, index int, kind, err error) error {
	return &mesh.FormatError{
		Format:  "ply",
		Offset:  offset,
		Line:    line,
		Element: element,
		Index:   index,
		Kind:    kind,
		Err:     err,
	}
}

// readError classifies a failed read: running out of data means the file is
// truncated, anything else is an I/O failure.
func readError(offset int64, line int, element string, index int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return formatError(offset, line, element, index, mesh.ErrUnsupportedFormat, io.ErrUnexpectedEOF)
	}
	return formatError(offset, line, element, index, mesh.ErrIOFailure, err)
}

func readHeader(br *bufio.Reader) (*header, error) {
	h := &header{}
	fail := func(err error) error {
		return formatError(h.size, h.lines, "header", -1, mesh.ErrUnsupportedFormat, err)
	}

	for {
		raw, err := br.ReadString('\n')
		if err != nil && (raw == "" || err != io.EOF) {
			return nil, readError(h.size, h.lines, "header", -1, err)
		}
		h.size += int64(len(raw))
		h.lines++
		line := strings.TrimRight(raw, "\r\n")
		fields := strings.Fields(line)

		if h.lines == 1 {
			if line != "ply" {
				return nil, fail(fmt.Errorf("missing ply magic"))
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) != 3 || fields[2] != "1.0" {
				return nil, fail(fmt.Errorf("malformed format line %q", line))
			}
			switch fields[1] {
			case FormatASCII, FormatLittleEndian, FormatBigEndian:
				h.format = fields[1]
			default:
				return nil, fail(fmt.Errorf("unknown format %q", fields[1]))
			}
		case "comment", "obj_info":
			h.comments = append(h.comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "element":
			if len(fields) != 3 {
				return nil, fail(fmt.Errorf("malformed element line %q", line))
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fail(fmt.Errorf("invalid %s count %q", fields[1], fields[2]))
			}
			h.elements = append(h.elements, &element{name: fields[1], count: count})
		case "property":
			p, err := parseProperty(fields)
			if err != nil {
				return nil, fail(err)
			}
			if len(h.elements) == 0 {
				return nil, fail(fmt.Errorf("property %s outside an element", p.name))
			}
			e := h.elements[len(h.elements)-1]
			e.properties = append(e.properties, p)
		case "end_header":
			if h.format == "" {
				return nil, fail(fmt.Errorf("missing format line"))
			}
			return h, nil
		default:
			return nil, fail(fmt.Errorf("unknown header keyword %q", fields[0]))
		}

		if err == io.EOF {
			return nil, readError(h.size, h.lines, "header", -1, err)
		}
	}
}

func parseProperty(fields []string) (property, error) {
	if len(fields) == 5 && fields[1] == "list" {
		count, ok := scalarTypes[fields[2]]
		item, ok2 := scalarTypes[fields[3]]
		if !ok || !ok2 || count.float {
			return property{}, fmt.Errorf("invalid list property %q", strings.Join(fields, " "))
		}
		return property{name: fields[4], typ: item, list: true, countType: count}, nil
	}
	if len(fields) == 3 {
		typ, ok := scalarTypes[fields[1]]
		if !ok {
			return property{}, fmt.Errorf("unknown property type %q", fields[1])
		}
		return property{name: fields[2], typ: typ}, nil
	}
	return property{}, fmt.Errorf("malformed property line %q", strings.Join(fields, " "))
}

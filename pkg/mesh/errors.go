package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTriangle is returned for triangles with repeated or unknown
	// vertex indices.
	ErrInvalidTriangle = errors.New("invalid triangle")

	// ErrUnsupportedFormat is returned when a codec cannot parse its input:
	// header mismatch, malformed records or truncated data.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrIOFailure is returned when the underlying reader or writer fails.
	ErrIOFailure = errors.New("i/o failure")
)

// FormatError describes a codec failure with enough context to locate it in
// the input: a byte offset for binary data, a line number for text, and the
// element being decoded.
type FormatError struct {
	Format  string // "stl", "ply", ...
	Offset  int64  // byte offset, -1 when unknown
	Line    int    // 1-based line number for text formats, 0 when unknown
	Element string // "header", "triangle", "vertex", "face", ...
	Index   int    // element index, -1 when not applicable
	Kind    error  // ErrUnsupportedFormat or ErrIOFailure
	Err     error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Format, e.Kind)
	if e.Element != "" {
		msg += ": " + e.Element
		if e.Index >= 0 {
			msg += fmt.Sprintf(" %d", e.Index)
		}
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	} else if e.Offset >= 0 {
		msg += fmt.Sprintf(" (byte offset %d)", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the error kind and the underlying cause to errors.Is
// and errors.As.
func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

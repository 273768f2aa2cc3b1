package volume

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// ReadJSON decodes a volume stored as nested arrays with z on the outer
// dimension, then y, then x. Every plane and row must have the same length.
func ReadJSON(r io.Reader, sx, sy, sz float64) (*Grid, error) {
	var planes [][][]float64
	if err := json.NewDecoder(r).Decode(&planes); err != nil {
		return nil, fmt.Errorf("failed to decode volume JSON: %w", err)
	}

	nz := len(planes)
	if nz == 0 || len(planes[0]) == 0 || len(planes[0][0]) == 0 {
		return nil, fmt.Errorf("%w: empty volume", ErrInvalidVolume)
	}
	ny, nx := len(planes[0]), len(planes[0][0])

	g, err := NewGrid(nx, ny, nz, sx, sy, sz)
	if err != nil {
		return nil, err
	}
	for z, plane := range planes {
		if len(plane) != ny {
			return nil, fmt.Errorf("%w: plane %d has %d rows, expected %d", ErrInvalidVolume, z, len(plane), ny)
		}
		for y, row := range plane {
			if len(row) != nx {
				return nil, fmt.Errorf("%w: row %d of plane %d has %d values, expected %d", ErrInvalidVolume, y, z, len(row), nx)
			}
			copy(g.values[g.index(0, y, z):], row)
		}
	}
	return g, nil
}
